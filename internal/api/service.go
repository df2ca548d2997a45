// Package api exposes the daemon's session over gRPC on the profile's
// unix socket.
package api

import (
	"context"
	"slices"
	"time"

	"github.com/matheus3301/chatroom/internal/account"
	"github.com/matheus3301/chatroom/internal/bus"
	"github.com/matheus3301/chatroom/internal/chat"
	"github.com/matheus3301/chatroom/internal/connectivity"
	"github.com/matheus3301/chatroom/internal/nav"
	"github.com/matheus3301/chatroom/internal/send"
	"github.com/matheus3301/chatroom/internal/session"
	"github.com/matheus3301/chatroom/internal/status"
	"github.com/matheus3301/chatroom/internal/store"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Session is the daemon-side session the service drives.
type Session interface {
	Status() session.Status
	Login(ctx context.Context, email, password string) (nav.Destination, error)
	Register(ctx context.Context, form account.RegisterForm) (nav.Destination, error)
	Logout(ctx context.Context) (nav.Destination, error)
	Messages() []chat.Message
	SendText(ctx context.Context, text string) (*send.Result, error)
	SendImage(ctx context.Context, path string) (*send.Result, error)
}

type Connectivity interface {
	Mode() connectivity.Mode
	Override(mode connectivity.Mode)
}

type OrphanLister interface {
	OrphanedUploads(limit int) ([]store.OrphanedUpload, error)
}

// Service implements chatroomServer.
type Service struct {
	profile   string
	startedAt time.Time
	session   Session
	net       Connectivity
	orphans   OrphanLister
	bus       *bus.Bus
	logger    *zap.Logger
}

// NewService creates the service for one profile.
func NewService(profile string, sess Session, net Connectivity, orphans OrphanLister, b *bus.Bus, logger *zap.Logger) *Service {
	return &Service{
		profile:   profile,
		startedAt: time.Now(),
		session:   sess,
		net:       net,
		orphans:   orphans,
		bus:       b,
		logger:    logger,
	}
}

func (s *Service) GetStatus(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return encodeReply(s.status())
}

func (s *Service) status() StatusReply {
	st := s.session.Status()
	return StatusReply{
		Profile:      s.profile,
		State:        string(st.State),
		Online:       st.Online,
		Mode:         string(s.net.Mode()),
		Destination:  destinationFrom(st.Destination),
		Sending:      st.Sending,
		Uploading:    st.Uploading,
		MessageCount: len(s.session.Messages()),
		UptimeMs:     time.Since(s.startedAt).Milliseconds(),
	}
}

func (s *Service) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req LoginRequest
	if err := decode(in, &req); err != nil {
		return nil, grpcstatus.Error(codes.InvalidArgument, err.Error())
	}
	dest, err := s.session.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, toStatus(ctx, account.OpLogin, err)
	}
	return encodeReply(destinationFrom(dest))
}

func (s *Service) Register(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req RegisterRequest
	if err := decode(in, &req); err != nil {
		return nil, grpcstatus.Error(codes.InvalidArgument, err.Error())
	}
	dest, err := s.session.Register(ctx, account.RegisterForm{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Password:    req.Password,
		Confirm:     req.Confirm,
	})
	if err != nil {
		return nil, toStatus(ctx, account.OpRegister, err)
	}
	return encodeReply(destinationFrom(dest))
}

func (s *Service) Logout(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	dest, err := s.session.Logout(ctx)
	if err != nil {
		return nil, toStatus(ctx, account.OpLogout, err)
	}
	return encodeReply(destinationFrom(dest))
}

func (s *Service) ListMessages(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return encodeReply(MessagesReply{Messages: s.session.Messages()})
}

func (s *Service) SendText(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	res, err := s.session.SendText(ctx, in.GetValue())
	if err != nil {
		return nil, toStatus(ctx, account.OpSendText, err)
	}
	return encodeReply(SendReply{ID: res.ID})
}

// SendImage runs the upload detached from the caller: a client that goes
// away does not abort an upload already in progress.
func (s *Service) SendImage(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	if in.GetValue() == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "image path is required")
	}
	res, err := s.session.SendImage(context.WithoutCancel(ctx), in.GetValue())
	if err != nil {
		return nil, toStatus(ctx, account.OpSendImage, err)
	}
	return encodeReply(SendReply{ID: res.ID, ImageURL: res.ImageURL})
}

func (s *Service) SetConnectivity(_ context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	mode, err := connectivity.ParseMode(in.GetValue())
	if err != nil {
		return nil, grpcstatus.Error(codes.InvalidArgument, err.Error())
	}
	s.net.Override(mode)
	return encodeReply(s.status())
}

func (s *Service) ListOrphanedUploads(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	rows, err := s.orphans.OrphanedUploads(0)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list orphaned uploads: %v", err)
	}
	out := OrphansReply{Uploads: make([]Orphan, 0, len(rows))}
	for _, r := range rows {
		out.Uploads = append(out.Uploads, Orphan{
			URL:       r.URL,
			FileName:  r.FileName,
			UserEmail: r.UserEmail,
			Error:     r.ErrorMessage,
			CreatedAt: time.UnixMilli(r.CreatedAt).UTC(),
		})
	}
	return encodeReply(out)
}

// streamedKinds are the bus events forwarded to WatchEvents clients.
var streamedKinds = []string{
	bus.KindChatSnapshot,
	bus.KindChatChannelError,
	bus.KindConnectivityChanged,
	bus.KindStatusChanged,
	bus.KindDestination,
	bus.KindMessageSent,
	bus.KindMessageSendFailed,
	bus.KindMessageSendRejected,
}

// WatchEvents streams a hello event with the current state and list, then
// one event per session, chat, connectivity or send event on the bus.
func (s *Service) WatchEvents(_ *emptypb.Empty, stream grpc.ServerStream) error {
	ch, unsub := s.bus.SubscribeKinds(256, streamedKinds...)
	defer unsub()
	s.logger.Debug("event stream opened")
	defer func() {
		s.logger.Debug("event stream closed", zap.Uint64("bus_dropped", s.bus.Dropped()))
	}()

	st := s.status()
	online := st.Online
	hello := Event{
		Kind:        KindHello,
		OccurredAt:  time.Now(),
		State:       st.State,
		Online:      &online,
		Destination: &st.Destination,
		Messages:    s.session.Messages(),
	}
	if err := sendEvent(stream, hello); err != nil {
		return err
	}

	for {
		select {
		case evt := <-ch:
			out, ok := s.translate(evt)
			if !ok {
				continue
			}
			if err := sendEvent(stream, out); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

func (s *Service) translate(evt bus.Event) (Event, bool) {
	out := Event{Kind: evt.Kind, OccurredAt: evt.Timestamp}
	switch p := evt.Payload.(type) {
	case connectivity.Change:
		online := p.Online
		out.Online = &online
	case status.StatusChange:
		out.State = string(p.To)
	case nav.Destination:
		d := destinationFrom(p)
		out.Destination = &d
	case send.Failure:
		out.Error = p.Error
	case string:
		out.Error = p
	}
	if !slices.Contains(streamedKinds, evt.Kind) {
		return Event{}, false
	}
	if evt.Kind == bus.KindChatSnapshot {
		out.Messages = s.session.Messages()
	}
	return out, true
}

func sendEvent(stream grpc.ServerStream, evt Event) error {
	msg, err := encode(evt)
	if err != nil {
		return grpcstatus.Error(codes.Internal, err.Error())
	}
	return stream.SendMsg(msg)
}

func encodeReply(v any) (*structpb.Struct, error) {
	msg, err := encode(v)
	if err != nil {
		return nil, grpcstatus.Error(codes.Internal, err.Error())
	}
	return msg, nil
}
