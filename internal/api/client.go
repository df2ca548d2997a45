package api

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client talks to a profile daemon.
type Client struct {
	conn *grpc.ClientConn
	lang string
}

// Dial connects to the daemon's Unix domain socket. lang selects the
// language of error messages ("" for the daemon default).
func Dial(socketPath, lang string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn, lang: lang}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) outgoing(ctx context.Context) context.Context {
	if c.lang == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, langKey, c.lang)
}

func (c *Client) call(ctx context.Context, method string, in proto.Message, out any) error {
	reply := new(structpb.Struct)
	if err := c.conn.Invoke(c.outgoing(ctx), fullMethod(method), in, reply); err != nil {
		return err
	}
	return decode(reply, out)
}

func (c *Client) Status(ctx context.Context) (*StatusReply, error) {
	var out StatusReply
	if err := c.call(ctx, "GetStatus", &emptypb.Empty{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*Destination, error) {
	in, err := encode(LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	var out Destination
	if err := c.call(ctx, "Login", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Destination, error) {
	in, err := encode(req)
	if err != nil {
		return nil, err
	}
	var out Destination
	if err := c.call(ctx, "Register", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context) (*Destination, error) {
	var out Destination
	if err := c.call(ctx, "Logout", &emptypb.Empty{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Messages(ctx context.Context) (*MessagesReply, error) {
	var out MessagesReply
	if err := c.call(ctx, "ListMessages", &emptypb.Empty{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SendText(ctx context.Context, text string) (*SendReply, error) {
	var out SendReply
	if err := c.call(ctx, "SendText", wrapperspb.String(text), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendImage asks the daemon to upload the file at path, which must be
// readable by the daemon process.
func (c *Client) SendImage(ctx context.Context, path string) (*SendReply, error) {
	var out SendReply
	if err := c.call(ctx, "SendImage", wrapperspb.String(path), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetConnectivity forces the daemon online or offline, or back to probing.
func (c *Client) SetConnectivity(ctx context.Context, mode string) (*StatusReply, error) {
	var out StatusReply
	if err := c.call(ctx, "SetConnectivity", wrapperspb.String(mode), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) OrphanedUploads(ctx context.Context) (*OrphansReply, error) {
	var out OrphansReply
	if err := c.call(ctx, "ListOrphanedUploads", &emptypb.Empty{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EventStream receives WatchEvents entries.
type EventStream struct {
	stream grpc.ClientStream
}

// Recv blocks for the next event.
func (s *EventStream) Recv() (*Event, error) {
	msg := new(structpb.Struct)
	if err := s.stream.RecvMsg(msg); err != nil {
		return nil, err
	}
	var evt Event
	if err := decode(msg, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}

// Watch opens the event stream. Cancel ctx to close it.
func (c *Client) Watch(ctx context.Context) (*EventStream, error) {
	stream, err := c.conn.NewStream(c.outgoing(ctx), &serviceDesc.Streams[0], fullMethod("WatchEvents"))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &EventStream{stream: stream}, nil
}
