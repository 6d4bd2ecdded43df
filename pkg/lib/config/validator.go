package config

import (
	"fmt"
	"net"
	"slices"
	"strings"

	"github.com/ni/labview-automation/pkg/lib/logging"
)

// ValidationError is a single invalid setting.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects every invalid setting found by Validate.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return ""
	case 1:
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

func ValidLogFormats() []string {
	return []string{logging.FormatText, logging.FormatJSON}
}

// Validate returns every invalid setting; nil means the config is usable.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors
	add := func(field string, value any, msg string) {
		errs = append(errs, ValidationError{Field: field, Value: value, Message: msg})
	}

	if strings.TrimSpace(c.Host) == "" {
		add("host", c.Host, "must not be empty")
	}

	switch strings.ToLower(c.LabVIEW.Bitness) {
	case "", "x86", "x64":
	default:
		add("labview.bitness", c.LabVIEW.Bitness, `must be "x86", "x64" or empty`)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		add("server.port", c.Server.Port, "must be between 0 and 65535")
	} else if c.Server.Enabled && c.Server.Port == 0 {
		add("server.port", c.Server.Port, "must be set when the server is enabled")
	}
	if c.Server.TCPTimeoutSeconds < 0 {
		add("server.tcp_timeout_seconds", c.Server.TCPTimeoutSeconds, "must not be negative")
	}

	if c.Start.Timeout < 0 {
		add("start.timeout", c.Start.Timeout, "must not be negative")
	}
	if c.Start.PollInterval <= 0 {
		add("start.poll_interval", c.Start.PollInterval, "must be positive")
	}
	if c.Start.KillTimeout < 0 {
		add("start.kill_timeout", c.Start.KillTimeout, "must not be negative")
	}

	if c.Helper.Address != "" {
		if _, _, err := net.SplitHostPort(c.Helper.Address); err != nil {
			add("helper.address", c.Helper.Address, "must be host:port")
		}
	}
	if _, _, err := net.SplitHostPort(c.Daemon.Address); err != nil {
		add("daemon.address", c.Daemon.Address, "must be host:port")
	}
	if c.Daemon.MetricsAddress != "" {
		if _, _, err := net.SplitHostPort(c.Daemon.MetricsAddress); err != nil {
			add("daemon.metrics_address", c.Daemon.MetricsAddress, "must be host:port")
		}
	}

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		add("logging.level", c.Logging.Level, fmt.Sprintf("must be one of %v", ValidLogLevels()))
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Logging.Format)) {
		add("logging.format", c.Logging.Format, fmt.Sprintf("must be one of %v", ValidLogFormats()))
	}
	return errs
}
