package config

import "fmt"

// ConfigError reports a schedule document or scenario that cannot be used.
type ConfigError struct {
	// Path is the file being loaded, if any.
	Path string

	// Field names the offending field, such as "messageList[2].receiver".
	Field string

	Err error
}

func (e *ConfigError) Error() string {
	msg := "config"
	if e.Path != "" {
		msg += " " + e.Path
	}

	if e.Field != "" {
		msg += ": " + e.Field
	}

	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
