// Package version holds build identity, overridable with -ldflags.
package version

var (
	AppName = "voicebot"
	Version = "dev"
)
