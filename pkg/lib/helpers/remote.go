package helpers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	apiv1 "github.com/ni/labview-automation/api/v1"
	"github.com/ni/labview-automation/pkg/lib"
)

const (
	opLocate = "locate installation"
	opKill   = "kill process"
)

// Remote forwards SystemHelpers calls to an lvhelperd daemon.
type Remote struct {
	client apiv1.HelperServiceClient
	conn   *grpc.ClientConn
}

var _ SystemHelpers = (*Remote)(nil)

// NewRemote uses an existing connection; Close does not close it.
func NewRemote(cc grpc.ClientConnInterface) *Remote {
	return &Remote{client: apiv1.NewHelperServiceClient(cc)}
}

// DialRemote connects to the daemon at target. Close releases the connection.
func DialRemote(target string, creds credentials.TransportCredentials, opts ...grpc.DialOption) (*Remote, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial helper daemon %s: %w", target, err)
	}
	return &Remote{client: apiv1.NewHelperServiceClient(conn), conn: conn}, nil
}

func (r *Remote) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

func (r *Remote) LocateInstallation(ctx context.Context, version, bitness string) (lib.Installation, error) {
	resp, err := r.client.LocateInstallation(ctx, &apiv1.LocateInstallationRequest{Version: version, Bitness: bitness})
	if err != nil {
		return lib.Installation{}, fromStatus(ctx, opLocate, err)
	}
	return lib.Installation{Dir: resp.Dir, Executable: resp.Executable}, nil
}

func (r *Remote) ListenerVIPath(ctx context.Context) (string, error) {
	resp, err := r.client.ListenerVIPath(ctx, &apiv1.ListenerVIPathRequest{})
	if err != nil {
		return "", fromStatus(ctx, "listener VI path", err)
	}
	return resp.Path, nil
}

func (r *Remote) CreateTempINI(ctx context.Context, sections []lib.INISection) (string, error) {
	resp, err := r.client.CreateTempINI(ctx, &apiv1.CreateTempINIRequest{Sections: toAPISections(sections)})
	if err != nil {
		return "", fromStatus(ctx, "create ini", err)
	}
	return resp.Path, nil
}

func (r *Remote) StartProcess(ctx context.Context, args []string) (int, error) {
	resp, err := r.client.StartProcess(ctx, &apiv1.StartProcessRequest{Args: args})
	if err != nil {
		return 0, fromStatus(ctx, "start process", err)
	}
	return int(resp.PID), nil
}

func (r *Remote) FindProcessByExecutable(ctx context.Context, path string) (int, bool, error) {
	resp, err := r.client.FindProcessByExecutable(ctx, &apiv1.FindProcessRequest{Executable: path})
	if err != nil {
		return 0, false, fromStatus(ctx, "find process", err)
	}
	return int(resp.PID), resp.Found, nil
}

func (r *Remote) IsProcessRunning(ctx context.Context, pid int, path string) (bool, error) {
	resp, err := r.client.IsProcessRunning(ctx, &apiv1.ProcessRequest{PID: int64(pid), Executable: path})
	if err != nil {
		return false, fromStatus(ctx, "is process running", err)
	}
	return resp.Running, nil
}

func (r *Remote) KillProcess(ctx context.Context, pid int, path string, timeout time.Duration) error {
	_, err := r.client.KillProcess(ctx, &apiv1.KillProcessRequest{
		PID:        int64(pid),
		Executable: path,
		Timeout:    durationpb.New(timeout),
	})
	if err != nil {
		return fromStatus(ctx, opKill, err)
	}
	return nil
}

func (r *Remote) MemoryOf(ctx context.Context, pid int, path string) (uint64, error) {
	resp, err := r.client.MemoryOf(ctx, &apiv1.ProcessRequest{PID: int64(pid), Executable: path})
	if err != nil {
		return 0, fromStatus(ctx, "memory of", err)
	}
	return uint64(resp.Bytes), nil
}

func (r *Remote) CopyTree(ctx context.Context, src, dst string) error {
	_, err := r.client.CopyTree(ctx, &apiv1.CopyTreeRequest{Source: src, Destination: dst})
	if err != nil {
		return fromStatus(ctx, "copy tree", err)
	}
	return nil
}

func (r *Remote) MakeWritable(ctx context.Context, path string) error {
	_, err := r.client.MakeWritable(ctx, &apiv1.MakeWritableRequest{Path: path})
	if err != nil {
		return fromStatus(ctx, "make writable", err)
	}
	return nil
}

// StreamOutput calls fn for every chunk of output the daemon captured for pid,
// from the first byte, until the process exits or ctx is done.
func (r *Remote) StreamOutput(ctx context.Context, pid int, fn func(stream string, data []byte) error) error {
	stream, err := r.client.GetOutput(ctx, &apiv1.GetOutputRequest{PID: int64(pid)})
	if err != nil {
		return fromStatus(ctx, "get output", err)
	}
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fromStatus(ctx, "get output", err)
		}
		if err := fn(chunk.Stream, chunk.Data); err != nil {
			return err
		}
	}
}

// fromStatus maps daemon status codes back onto the lib error taxonomy.
func fromStatus(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return &lib.ConfigurationError{Field: op, Reason: st.Message()}
	case codes.DeadlineExceeded:
		if op == opKill {
			return fmt.Errorf("%s: %s: %w", op, st.Message(), lib.ErrKillTimeout)
		}
	case codes.NotFound:
		if op == opLocate {
			return fmt.Errorf("%s: %s: %w", op, st.Message(), lib.ErrNotInstalled)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func toAPISections(sections []lib.INISection) []apiv1.INISection {
	out := make([]apiv1.INISection, 0, len(sections))
	for _, s := range sections {
		entries := make([]apiv1.INIEntry, 0, len(s.Entries))
		for _, e := range s.Entries {
			entries = append(entries, apiv1.INIEntry{Key: e.Key, Value: e.Value})
		}
		out = append(out, apiv1.INISection{Name: s.Name, Entries: entries})
	}
	return out
}

func fromAPISections(sections []apiv1.INISection) []lib.INISection {
	out := make([]lib.INISection, 0, len(sections))
	for _, s := range sections {
		entries := make([]lib.INIEntry, 0, len(s.Entries))
		for _, e := range s.Entries {
			entries = append(entries, lib.INIEntry{Key: e.Key, Value: e.Value})
		}
		out = append(out, lib.INISection{Name: s.Name, Entries: entries})
	}
	return out
}
