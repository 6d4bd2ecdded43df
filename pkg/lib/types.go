package lib

import "time"

// LifecycleState mirrors the states a supervised LabVIEW instance moves through.
type LifecycleState int

const (
	StateNotStarted LifecycleState = iota
	StateStarting
	StateServerWaiting
	StateRunning
	StateStopped
)

func (s LifecycleState) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateStarting:
		return "Starting"
	case StateServerWaiting:
		return "ServerWaiting"
	case StateRunning:
		return "Running"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// ServerConfiguration describes how the automation listener is launched.
// Empty LogPath / ErrorLogPath mean the flag is not passed.
type ServerConfiguration struct {
	Enabled           bool
	Port              uint16
	LogPath           string
	ErrorLogPath      string
	TCPTimeoutSeconds uint32
}

// DefaultServerConfiguration returns the listener defaults: enabled on 2552 with a 60s TCP timeout.
func DefaultServerConfiguration() ServerConfiguration {
	return ServerConfiguration{Enabled: true, Port: 2552, TCPTimeoutSeconds: 60}
}

// TCPTimeout returns the listener TCP timeout as a time.Duration.
func (c ServerConfiguration) TCPTimeout() time.Duration {
	return time.Duration(c.TCPTimeoutSeconds) * time.Second
}

// ProcessHandle identifies a supervised process. PID 0 means "not known to be running".
// A PID is only meaningful together with ExecutablePath; PIDs get reused.
type ProcessHandle struct {
	PID            int
	ExecutablePath string
}

// Known reports whether the handle carries a PID at all.
func (h ProcessHandle) Known() bool {
	return h.PID > 0
}

// Installation is a located LabVIEW installation.
type Installation struct {
	Dir        string
	Executable string
}

// INIEntry is a single key=value token.
type INIEntry struct {
	Key   string
	Value string
}

// INISection is an ordered group of tokens under one [Name] header.
type INISection struct {
	Name    string
	Entries []INIEntry
}
