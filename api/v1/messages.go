package v1

import "google.golang.org/protobuf/types/known/durationpb"

type LocateInstallationRequest struct {
	Version string `bson:"version"`
	Bitness string `bson:"bitness"`
}

type LocateInstallationResponse struct {
	Dir        string `bson:"dir"`
	Executable string `bson:"executable"`
}

type ListenerVIPathRequest struct{}

type ListenerVIPathResponse struct {
	Path string `bson:"path"`
}

type INIEntry struct {
	Key   string `bson:"key"`
	Value string `bson:"value"`
}

type INISection struct {
	Name    string     `bson:"name"`
	Entries []INIEntry `bson:"entries"`
}

type CreateTempINIRequest struct {
	Sections []INISection `bson:"sections"`
}

type CreateTempINIResponse struct {
	Path string `bson:"path"`
}

type StartProcessRequest struct {
	Args []string `bson:"args"`
}

type StartProcessResponse struct {
	PID int64 `bson:"pid"`
}

type FindProcessRequest struct {
	Executable string `bson:"executable"`
}

type FindProcessResponse struct {
	PID   int64 `bson:"pid"`
	Found bool  `bson:"found"`
}

// ProcessRequest identifies a process by PID and the executable it must be running.
type ProcessRequest struct {
	PID        int64  `bson:"pid"`
	Executable string `bson:"executable"`
}

type IsProcessRunningResponse struct {
	Running bool `bson:"running"`
}

type MemoryOfResponse struct {
	Bytes int64 `bson:"bytes"`
}

type KillProcessRequest struct {
	PID        int64  `bson:"pid"`
	Executable string `bson:"executable"`
	// A nil or non-positive Timeout waits until the process exits or the call is cancelled.
	Timeout *durationpb.Duration `bson:"timeout,omitempty"`
}

type CopyTreeRequest struct {
	Source      string `bson:"source"`
	Destination string `bson:"destination"`
}

type MakeWritableRequest struct {
	Path string `bson:"path"`
}

type GetOutputRequest struct {
	PID int64 `bson:"pid"`
}

// Output stream names.
const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)

type GetOutputResponse struct {
	Stream string `bson:"stream"`
	Data   []byte `bson:"data"`
}
