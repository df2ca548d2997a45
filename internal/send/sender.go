// Package send appends the local user's text and image messages to the
// remote channel. It never touches the displayed list: sent messages show
// up through the channel's next snapshot.
package send

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	gosync "sync"
	"time"

	"github.com/matheus3301/chatroom/internal/bus"
	"github.com/matheus3301/chatroom/internal/chat"
	"github.com/matheus3301/chatroom/internal/documents"
	"github.com/matheus3301/chatroom/internal/upload"
	"go.uber.org/zap"
)

var (
	ErrOffline   = errors.New("cannot send while offline")
	ErrBusy      = errors.New("another send is in progress")
	ErrEmptyText = errors.New("message text is empty")
	ErrNoSession = errors.New("no active chat session")
)

// Connectivity reports whether sends are allowed.
type Connectivity interface {
	Online() bool
}

// OrphanJournal records images that were uploaded but never referenced.
type OrphanJournal interface {
	RecordOrphanedUpload(url, fileName, userEmail, errMsg string) error
}

// ImageOptions controls the pre-upload image step.
type ImageOptions struct {
	MaxWidth int
	Quality  int
}

// Result describes a successful send.
type Result struct {
	ID       string
	ImageURL string
}

// Failure is the payload for message.send_failed and message.send_rejected events.
type Failure struct {
	Kind  string // "text" or "image"
	Error string
}

// Sender appends messages on behalf of one participant.
type Sender struct {
	channel  documents.Channel
	uploader upload.Uploader
	net      Connectivity
	orphans  OrphanJournal
	image    ImageOptions
	bus      *bus.Bus
	logger   *zap.Logger
	now      func() time.Time
	readFile func(string) ([]byte, error)

	mu          gosync.Mutex
	participant *chat.Participant
	sending     bool
	uploading   bool
}

// NewSender creates a sender with no participant.
func NewSender(ch documents.Channel, up upload.Uploader, net Connectivity, orphans OrphanJournal, opts ImageOptions, b *bus.Bus, logger *zap.Logger) *Sender {
	return &Sender{
		channel:  ch,
		uploader: up,
		net:      net,
		orphans:  orphans,
		image:    opts,
		bus:      b,
		logger:   logger,
		now:      time.Now,
		readFile: os.ReadFile,
	}
}

// SetParticipant sets (or with nil clears) the identity messages are sent as.
func (s *Sender) SetParticipant(p *chat.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == nil {
		s.participant = nil
		return
	}
	cp := *p
	s.participant = &cp
}

// Busy reports whether a text send or an image upload is in flight.
func (s *Sender) Busy() (sending, uploading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending, s.uploading
}

// SendText trims text and appends it. Offline sends are rejected, not queued.
func (s *Sender) SendText(ctx context.Context, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	p, err := s.begin("text", &s.sending)
	if err != nil {
		return nil, err
	}
	defer s.end(&s.sending)

	id, err := s.channel.Append(ctx, documents.Fields{
		Text:      text,
		User:      p.Name,
		UserEmail: p.Email,
	})
	if err != nil {
		s.failed("text", err)
		return nil, fmt.Errorf("send message: %w", err)
	}
	s.logger.Info("message sent", zap.String("id", id))
	s.bus.Publish(bus.NewEvent(bus.KindMessageSent, Result{ID: id}))
	return &Result{ID: id}, nil
}

// SendImage prepares and uploads the image at path, then appends an image
// message referencing it. A failed upload appends nothing; a failed append
// after a successful upload journals the orphaned URL.
func (s *Sender) SendImage(ctx context.Context, path string) (*Result, error) {
	p, err := s.begin("image", &s.uploading)
	if err != nil {
		return nil, err
	}
	defer s.end(&s.uploading)

	raw, err := s.readFile(path)
	if err != nil {
		s.failed("image", err)
		return nil, fmt.Errorf("read image: %w", err)
	}
	data, err := upload.Prepare(raw, s.image.MaxWidth, s.image.Quality)
	if err != nil {
		s.failed("image", err)
		return nil, err
	}

	fileName := upload.FileName(s.now(), p.Name)
	url, err := s.uploader.Upload(ctx, fileName, data)
	if err != nil {
		s.failed("image", err)
		return nil, fmt.Errorf("upload image: %w", err)
	}
	s.logger.Info("image uploaded", zap.String("file", fileName), zap.String("url", url))

	id, err := s.channel.Append(ctx, documents.Fields{
		Text:      "",
		User:      p.Name,
		UserEmail: p.Email,
		ImageURL:  url,
		IsImage:   true,
	})
	if err != nil {
		if jerr := s.orphans.RecordOrphanedUpload(url, fileName, p.Email, err.Error()); jerr != nil {
			s.logger.Error("failed to journal orphaned upload", zap.String("url", url), zap.Error(jerr))
		}
		s.failed("image", err)
		return nil, fmt.Errorf("send image message: %w", err)
	}
	s.logger.Info("image message sent", zap.String("id", id))
	s.bus.Publish(bus.NewEvent(bus.KindMessageSent, Result{ID: id, ImageURL: url}))
	return &Result{ID: id, ImageURL: url}, nil
}

// begin checks the preconditions and claims the in-flight flag.
func (s *Sender) begin(kind string, flag *bool) (chat.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.participant == nil {
		return chat.Participant{}, ErrNoSession
	}
	if !s.net.Online() {
		s.bus.Publish(bus.NewEvent(bus.KindMessageSendRejected, Failure{Kind: kind, Error: ErrOffline.Error()}))
		return chat.Participant{}, ErrOffline
	}
	if *flag {
		return chat.Participant{}, ErrBusy
	}
	*flag = true
	return *s.participant, nil
}

func (s *Sender) end(flag *bool) {
	s.mu.Lock()
	*flag = false
	s.mu.Unlock()
}

func (s *Sender) failed(kind string, err error) {
	s.logger.Error("send failed", zap.String("kind", kind), zap.Error(err))
	s.bus.Publish(bus.NewEvent(bus.KindMessageSendFailed, Failure{Kind: kind, Error: err.Error()}))
}
