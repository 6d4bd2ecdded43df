package helpers

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	apiv1 "github.com/ni/labview-automation/api/v1"
	"github.com/ni/labview-automation/pkg/lib"
	"github.com/ni/labview-automation/pkg/lib/logging"
)

// Ownership decides which caller may act on a process.
type Ownership interface {
	// Claim records the caller in ctx as the owner of a process it just started.
	Claim(ctx context.Context, pid int)
	// Check returns a status error when the caller in ctx may not act on pid.
	Check(ctx context.Context, pid int) error
}

// Server exposes a SystemHelpers over the HelperService gRPC API.
type Server struct {
	apiv1.UnimplementedHelperServiceServer

	helpers   SystemHelpers
	ownership Ownership
	logger    *slog.Logger
}

type ServerOption func(*Server)

func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithOwnership restricts kill and output access. Without it every caller may act on every process.
func WithOwnership(o Ownership) ServerOption {
	return func(s *Server) { s.ownership = o }
}

func NewServer(h SystemHelpers, opts ...ServerOption) *Server {
	s := &Server{helpers: h, logger: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds the service to a gRPC server.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	apiv1.RegisterHelperServiceServer(r, s)
}

func (s *Server) LocateInstallation(ctx context.Context, req *apiv1.LocateInstallationRequest) (*apiv1.LocateInstallationResponse, error) {
	inst, err := s.helpers.LocateInstallation(ctx, req.Version, req.Bitness)
	if err != nil {
		return nil, s.toStatus("locate installation", err)
	}
	return &apiv1.LocateInstallationResponse{Dir: inst.Dir, Executable: inst.Executable}, nil
}

func (s *Server) ListenerVIPath(ctx context.Context, _ *apiv1.ListenerVIPathRequest) (*apiv1.ListenerVIPathResponse, error) {
	path, err := s.helpers.ListenerVIPath(ctx)
	if err != nil {
		return nil, s.toStatus("listener VI path", err)
	}
	return &apiv1.ListenerVIPathResponse{Path: path}, nil
}

func (s *Server) CreateTempINI(ctx context.Context, req *apiv1.CreateTempINIRequest) (*apiv1.CreateTempINIResponse, error) {
	path, err := s.helpers.CreateTempINI(ctx, fromAPISections(req.Sections))
	if err != nil {
		return nil, s.toStatus("create ini", err)
	}
	return &apiv1.CreateTempINIResponse{Path: path}, nil
}

func (s *Server) StartProcess(ctx context.Context, req *apiv1.StartProcessRequest) (*apiv1.StartProcessResponse, error) {
	s.logger.Info("starting process", "args", req.Args)
	pid, err := s.helpers.StartProcess(ctx, req.Args)
	if err != nil {
		return nil, s.toStatus("start process", err)
	}
	if s.ownership != nil {
		s.ownership.Claim(ctx, pid)
	}
	return &apiv1.StartProcessResponse{PID: int64(pid)}, nil
}

func (s *Server) FindProcessByExecutable(ctx context.Context, req *apiv1.FindProcessRequest) (*apiv1.FindProcessResponse, error) {
	pid, found, err := s.helpers.FindProcessByExecutable(ctx, req.Executable)
	if err != nil {
		return nil, s.toStatus("find process", err)
	}
	return &apiv1.FindProcessResponse{PID: int64(pid), Found: found}, nil
}

func (s *Server) IsProcessRunning(ctx context.Context, req *apiv1.ProcessRequest) (*apiv1.IsProcessRunningResponse, error) {
	running, err := s.helpers.IsProcessRunning(ctx, int(req.PID), req.Executable)
	if err != nil {
		return nil, s.toStatus("is process running", err)
	}
	return &apiv1.IsProcessRunningResponse{Running: running}, nil
}

func (s *Server) KillProcess(ctx context.Context, req *apiv1.KillProcessRequest) (*emptypb.Empty, error) {
	if err := s.checkOwnership(ctx, int(req.PID)); err != nil {
		return nil, err
	}
	timeout := req.Timeout.AsDuration()
	if err := s.helpers.KillProcess(ctx, int(req.PID), req.Executable, timeout); err != nil {
		return nil, s.toStatus("kill process", err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) MemoryOf(ctx context.Context, req *apiv1.ProcessRequest) (*apiv1.MemoryOfResponse, error) {
	bytes, err := s.helpers.MemoryOf(ctx, int(req.PID), req.Executable)
	if err != nil {
		return nil, s.toStatus("memory of", err)
	}
	return &apiv1.MemoryOfResponse{Bytes: int64(bytes)}, nil
}

func (s *Server) CopyTree(ctx context.Context, req *apiv1.CopyTreeRequest) (*emptypb.Empty, error) {
	if err := s.helpers.CopyTree(ctx, req.Source, req.Destination); err != nil {
		return nil, s.toStatus("copy tree", err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) MakeWritable(ctx context.Context, req *apiv1.MakeWritableRequest) (*emptypb.Empty, error) {
	if err := s.helpers.MakeWritable(ctx, req.Path); err != nil {
		return nil, s.toStatus("make writable", err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) GetOutput(req *apiv1.GetOutputRequest, stream grpc.ServerStreamingServer[apiv1.GetOutputResponse]) error {
	source, ok := s.helpers.(OutputSource)
	if !ok {
		return status.Error(codes.Unimplemented, "output capture is not available")
	}
	ctx := stream.Context()
	if err := s.checkOwnership(ctx, int(req.PID)); err != nil {
		return err
	}

	stdout, stderr, err := source.Output(ctx, int(req.PID))
	if err != nil {
		return s.toStatus("get output", err)
	}
	for stdout != nil || stderr != nil {
		select {
		case <-ctx.Done():
			return nil
		case chunk, ok := <-stdout:
			if !ok {
				stdout = nil
				continue
			}
			if err := stream.Send(&apiv1.GetOutputResponse{Stream: apiv1.StreamStdout, Data: chunk}); err != nil {
				return err
			}
		case chunk, ok := <-stderr:
			if !ok {
				stderr = nil
				continue
			}
			if err := stream.Send(&apiv1.GetOutputResponse{Stream: apiv1.StreamStderr, Data: chunk}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Server) checkOwnership(ctx context.Context, pid int) error {
	if s.ownership == nil {
		return nil
	}
	return s.ownership.Check(ctx, pid)
}

func (s *Server) toStatus(op string, err error) error {
	var cfgErr *lib.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		return status.Error(codes.InvalidArgument, cfgErr.Error())
	case errors.Is(err, lib.ErrKillTimeout):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, lib.ErrNotInstalled), errors.Is(err, os.ErrNotExist):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	s.logger.Warn("helper request failed", "op", op, "error", err)
	return status.Errorf(codes.Internal, "%s: %v", op, err)
}
