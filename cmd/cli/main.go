// cmd/cli/main.go
package main

import "github.com/keshon/voicebot/internal/cli"

func main() {
	cli.Execute()
}
