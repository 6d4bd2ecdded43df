package v1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

const ServiceName = "labview.helpers.v1.HelperService"

const (
	HelperService_LocateInstallation_FullMethodName      = "/" + ServiceName + "/LocateInstallation"
	HelperService_ListenerVIPath_FullMethodName          = "/" + ServiceName + "/ListenerVIPath"
	HelperService_CreateTempINI_FullMethodName           = "/" + ServiceName + "/CreateTempINI"
	HelperService_StartProcess_FullMethodName            = "/" + ServiceName + "/StartProcess"
	HelperService_FindProcessByExecutable_FullMethodName = "/" + ServiceName + "/FindProcessByExecutable"
	HelperService_IsProcessRunning_FullMethodName        = "/" + ServiceName + "/IsProcessRunning"
	HelperService_KillProcess_FullMethodName             = "/" + ServiceName + "/KillProcess"
	HelperService_MemoryOf_FullMethodName                = "/" + ServiceName + "/MemoryOf"
	HelperService_CopyTree_FullMethodName                = "/" + ServiceName + "/CopyTree"
	HelperService_MakeWritable_FullMethodName            = "/" + ServiceName + "/MakeWritable"
	HelperService_GetOutput_FullMethodName               = "/" + ServiceName + "/GetOutput"
)

// HelperServiceClient is the client API for HelperService.
type HelperServiceClient interface {
	LocateInstallation(ctx context.Context, in *LocateInstallationRequest, opts ...grpc.CallOption) (*LocateInstallationResponse, error)
	ListenerVIPath(ctx context.Context, in *ListenerVIPathRequest, opts ...grpc.CallOption) (*ListenerVIPathResponse, error)
	CreateTempINI(ctx context.Context, in *CreateTempINIRequest, opts ...grpc.CallOption) (*CreateTempINIResponse, error)
	StartProcess(ctx context.Context, in *StartProcessRequest, opts ...grpc.CallOption) (*StartProcessResponse, error)
	FindProcessByExecutable(ctx context.Context, in *FindProcessRequest, opts ...grpc.CallOption) (*FindProcessResponse, error)
	IsProcessRunning(ctx context.Context, in *ProcessRequest, opts ...grpc.CallOption) (*IsProcessRunningResponse, error)
	KillProcess(ctx context.Context, in *KillProcessRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
	MemoryOf(ctx context.Context, in *ProcessRequest, opts ...grpc.CallOption) (*MemoryOfResponse, error)
	CopyTree(ctx context.Context, in *CopyTreeRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
	MakeWritable(ctx context.Context, in *MakeWritableRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
	GetOutput(ctx context.Context, in *GetOutputRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[GetOutputResponse], error)
}

type helperServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewHelperServiceClient(cc grpc.ClientConnInterface) HelperServiceClient {
	return &helperServiceClient{cc}
}

func invoke[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	cOpts := append([]grpc.CallOption{CallOption()}, opts...)
	if err := cc.Invoke(ctx, method, in, out, cOpts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *helperServiceClient) LocateInstallation(ctx context.Context, in *LocateInstallationRequest, opts ...grpc.CallOption) (*LocateInstallationResponse, error) {
	return invoke[LocateInstallationRequest, LocateInstallationResponse](ctx, c.cc, HelperService_LocateInstallation_FullMethodName, in, opts)
}

func (c *helperServiceClient) ListenerVIPath(ctx context.Context, in *ListenerVIPathRequest, opts ...grpc.CallOption) (*ListenerVIPathResponse, error) {
	return invoke[ListenerVIPathRequest, ListenerVIPathResponse](ctx, c.cc, HelperService_ListenerVIPath_FullMethodName, in, opts)
}

func (c *helperServiceClient) CreateTempINI(ctx context.Context, in *CreateTempINIRequest, opts ...grpc.CallOption) (*CreateTempINIResponse, error) {
	return invoke[CreateTempINIRequest, CreateTempINIResponse](ctx, c.cc, HelperService_CreateTempINI_FullMethodName, in, opts)
}

func (c *helperServiceClient) StartProcess(ctx context.Context, in *StartProcessRequest, opts ...grpc.CallOption) (*StartProcessResponse, error) {
	return invoke[StartProcessRequest, StartProcessResponse](ctx, c.cc, HelperService_StartProcess_FullMethodName, in, opts)
}

func (c *helperServiceClient) FindProcessByExecutable(ctx context.Context, in *FindProcessRequest, opts ...grpc.CallOption) (*FindProcessResponse, error) {
	return invoke[FindProcessRequest, FindProcessResponse](ctx, c.cc, HelperService_FindProcessByExecutable_FullMethodName, in, opts)
}

func (c *helperServiceClient) IsProcessRunning(ctx context.Context, in *ProcessRequest, opts ...grpc.CallOption) (*IsProcessRunningResponse, error) {
	return invoke[ProcessRequest, IsProcessRunningResponse](ctx, c.cc, HelperService_IsProcessRunning_FullMethodName, in, opts)
}

func (c *helperServiceClient) KillProcess(ctx context.Context, in *KillProcessRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[KillProcessRequest, emptypb.Empty](ctx, c.cc, HelperService_KillProcess_FullMethodName, in, opts)
}

func (c *helperServiceClient) MemoryOf(ctx context.Context, in *ProcessRequest, opts ...grpc.CallOption) (*MemoryOfResponse, error) {
	return invoke[ProcessRequest, MemoryOfResponse](ctx, c.cc, HelperService_MemoryOf_FullMethodName, in, opts)
}

func (c *helperServiceClient) CopyTree(ctx context.Context, in *CopyTreeRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[CopyTreeRequest, emptypb.Empty](ctx, c.cc, HelperService_CopyTree_FullMethodName, in, opts)
}

func (c *helperServiceClient) MakeWritable(ctx context.Context, in *MakeWritableRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[MakeWritableRequest, emptypb.Empty](ctx, c.cc, HelperService_MakeWritable_FullMethodName, in, opts)
}

func (c *helperServiceClient) GetOutput(ctx context.Context, in *GetOutputRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[GetOutputResponse], error) {
	cOpts := append([]grpc.CallOption{CallOption()}, opts...)
	stream, err := c.cc.NewStream(ctx, &HelperService_ServiceDesc.Streams[0], HelperService_GetOutput_FullMethodName, cOpts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[GetOutputRequest, GetOutputResponse]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// HelperServiceServer is the server API for HelperService.
// Implementations must embed UnimplementedHelperServiceServer.
type HelperServiceServer interface {
	LocateInstallation(context.Context, *LocateInstallationRequest) (*LocateInstallationResponse, error)
	ListenerVIPath(context.Context, *ListenerVIPathRequest) (*ListenerVIPathResponse, error)
	CreateTempINI(context.Context, *CreateTempINIRequest) (*CreateTempINIResponse, error)
	StartProcess(context.Context, *StartProcessRequest) (*StartProcessResponse, error)
	FindProcessByExecutable(context.Context, *FindProcessRequest) (*FindProcessResponse, error)
	IsProcessRunning(context.Context, *ProcessRequest) (*IsProcessRunningResponse, error)
	KillProcess(context.Context, *KillProcessRequest) (*emptypb.Empty, error)
	MemoryOf(context.Context, *ProcessRequest) (*MemoryOfResponse, error)
	CopyTree(context.Context, *CopyTreeRequest) (*emptypb.Empty, error)
	MakeWritable(context.Context, *MakeWritableRequest) (*emptypb.Empty, error)
	GetOutput(*GetOutputRequest, grpc.ServerStreamingServer[GetOutputResponse]) error
	mustEmbedUnimplementedHelperServiceServer()
}

type UnimplementedHelperServiceServer struct{}

func (UnimplementedHelperServiceServer) LocateInstallation(context.Context, *LocateInstallationRequest) (*LocateInstallationResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method LocateInstallation not implemented")
}
func (UnimplementedHelperServiceServer) ListenerVIPath(context.Context, *ListenerVIPathRequest) (*ListenerVIPathResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListenerVIPath not implemented")
}
func (UnimplementedHelperServiceServer) CreateTempINI(context.Context, *CreateTempINIRequest) (*CreateTempINIResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CreateTempINI not implemented")
}
func (UnimplementedHelperServiceServer) StartProcess(context.Context, *StartProcessRequest) (*StartProcessResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method StartProcess not implemented")
}
func (UnimplementedHelperServiceServer) FindProcessByExecutable(context.Context, *FindProcessRequest) (*FindProcessResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method FindProcessByExecutable not implemented")
}
func (UnimplementedHelperServiceServer) IsProcessRunning(context.Context, *ProcessRequest) (*IsProcessRunningResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method IsProcessRunning not implemented")
}
func (UnimplementedHelperServiceServer) KillProcess(context.Context, *KillProcessRequest) (*emptypb.Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method KillProcess not implemented")
}
func (UnimplementedHelperServiceServer) MemoryOf(context.Context, *ProcessRequest) (*MemoryOfResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method MemoryOf not implemented")
}
func (UnimplementedHelperServiceServer) CopyTree(context.Context, *CopyTreeRequest) (*emptypb.Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CopyTree not implemented")
}
func (UnimplementedHelperServiceServer) MakeWritable(context.Context, *MakeWritableRequest) (*emptypb.Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method MakeWritable not implemented")
}
func (UnimplementedHelperServiceServer) GetOutput(*GetOutputRequest, grpc.ServerStreamingServer[GetOutputResponse]) error {
	return status.Errorf(codes.Unimplemented, "method GetOutput not implemented")
}
func (UnimplementedHelperServiceServer) mustEmbedUnimplementedHelperServiceServer() {}

func RegisterHelperServiceServer(s grpc.ServiceRegistrar, srv HelperServiceServer) {
	s.RegisterService(&HelperService_ServiceDesc, srv)
}

// unaryHandler adapts one typed server method to grpc.MethodHandler, running interceptors.
func unaryHandler[Req, Resp any](fullMethod string, call func(HelperServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(HelperServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(HelperServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func _HelperService_GetOutput_Handler(srv any, stream grpc.ServerStream) error {
	m := new(GetOutputRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(HelperServiceServer).GetOutput(m, &grpc.GenericServerStream[GetOutputRequest, GetOutputResponse]{ServerStream: stream})
}

// HelperService_ServiceDesc is the grpc.ServiceDesc for HelperService.
var HelperService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*HelperServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "LocateInstallation",
			Handler:    unaryHandler(HelperService_LocateInstallation_FullMethodName, HelperServiceServer.LocateInstallation),
		},
		{
			MethodName: "ListenerVIPath",
			Handler:    unaryHandler(HelperService_ListenerVIPath_FullMethodName, HelperServiceServer.ListenerVIPath),
		},
		{
			MethodName: "CreateTempINI",
			Handler:    unaryHandler(HelperService_CreateTempINI_FullMethodName, HelperServiceServer.CreateTempINI),
		},
		{
			MethodName: "StartProcess",
			Handler:    unaryHandler(HelperService_StartProcess_FullMethodName, HelperServiceServer.StartProcess),
		},
		{
			MethodName: "FindProcessByExecutable",
			Handler:    unaryHandler(HelperService_FindProcessByExecutable_FullMethodName, HelperServiceServer.FindProcessByExecutable),
		},
		{
			MethodName: "IsProcessRunning",
			Handler:    unaryHandler(HelperService_IsProcessRunning_FullMethodName, HelperServiceServer.IsProcessRunning),
		},
		{
			MethodName: "KillProcess",
			Handler:    unaryHandler(HelperService_KillProcess_FullMethodName, HelperServiceServer.KillProcess),
		},
		{
			MethodName: "MemoryOf",
			Handler:    unaryHandler(HelperService_MemoryOf_FullMethodName, HelperServiceServer.MemoryOf),
		},
		{
			MethodName: "CopyTree",
			Handler:    unaryHandler(HelperService_CopyTree_FullMethodName, HelperServiceServer.CopyTree),
		},
		{
			MethodName: "MakeWritable",
			Handler:    unaryHandler(HelperService_MakeWritable_FullMethodName, HelperServiceServer.MakeWritable),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "GetOutput",
			Handler:       _HelperService_GetOutput_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "labview/helpers/v1/helpers.go",
}
