package discord

import "fmt"

// RegistrationError reports that slash commands could not be registered.
// The bot keeps running without them.
type RegistrationError struct {
	Reason string
	Err    error
}

func (e *RegistrationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("register commands: %s: %v", e.Reason, e.Err)
	}
	return "register commands: " + e.Reason
}

func (e *RegistrationError) Unwrap() error { return e.Err }
