package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "chatroom.v1.Chatroom"

func fullMethod(name string) string {
	return "/" + serviceName + "/" + name
}

// chatroomServer is the server contract for serviceDesc. Payloads are
// well-known types; the JSON-tagged structs in wire.go travel inside a
// structpb.Struct.
type chatroomServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Logout(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListMessages(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SendText(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	SendImage(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	SetConnectivity(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ListOrphanedUploads(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	WatchEvents(*emptypb.Empty, grpc.ServerStream) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*chatroomServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetStatus", newEmpty, chatroomServer.GetStatus),
		unary("Login", newStruct, chatroomServer.Login),
		unary("Register", newStruct, chatroomServer.Register),
		unary("Logout", newEmpty, chatroomServer.Logout),
		unary("ListMessages", newEmpty, chatroomServer.ListMessages),
		unary("SendText", newString, chatroomServer.SendText),
		unary("SendImage", newString, chatroomServer.SendImage),
		unary("SetConnectivity", newString, chatroomServer.SetConnectivity),
		unary("ListOrphanedUploads", newEmpty, chatroomServer.ListOrphanedUploads),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchEvents",
			Handler:       watchEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "chatroom/v1/chatroom.proto",
}

func newEmpty() *emptypb.Empty { return &emptypb.Empty{} }
func newStruct() *structpb.Struct { return &structpb.Struct{} }
func newString() *wrapperspb.StringValue { return &wrapperspb.StringValue{} }

func unary[Req proto.Message](name string, newReq func() Req, call func(chatroomServer, context.Context, Req) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(chatroomServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(chatroomServer), ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(chatroomServer).WatchEvents(in, stream)
}

// Register attaches the chatroom service to a gRPC server.
func Register(s grpc.ServiceRegistrar, svc *Service) {
	s.RegisterService(&serviceDesc, svc)
}
