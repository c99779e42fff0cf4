package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats.go"

	"github.com/voicereader/voicereader/internal/reader"
)

// Reader is what the service drives. *reader.Reader satisfies it.
type Reader interface {
	Initiate(ctx context.Context, text string) (*reader.Session, error)
	Press(ctx context.Context) error
	Select(index int) bool
	Stop()
	Status() reader.Status
	ChunkText(index int) (string, bool)
}

// Service answers bridge requests for one reader.
type Service struct {
	client   *Client
	reader   Reader
	subjects Subjects
	timeout  time.Duration
	logger   *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	subs   []*nats.Subscription
}

// NewService creates a service. Call Start to subscribe.
func NewService(parent context.Context, cfg Config, client *Client, r Reader, logger *log.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().RequestTimeout
	}
	return &Service{
		client:   client,
		reader:   r,
		subjects: NewSubjects(cfg.SubjectPrefix),
		timeout:  timeout,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Subjects returns the subjects the service listens on.
func (s *Service) Subjects() Subjects {
	return s.subjects
}

// Start subscribes to every request subject.
func (s *Service) Start() error {
	handlers := map[string]nats.MsgHandler{
		s.subjects.Initiate: s.handleInitiate,
		s.subjects.Ping:     s.handlePing,
		s.subjects.Control:  s.handleControl,
		s.subjects.Status:   s.handleStatus,
		s.subjects.Chunk:    s.handleChunk,
	}
	for subject, handler := range handlers {
		sub, err := s.client.Conn().Subscribe(subject, handler)
		if err != nil {
			s.Close()
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		s.subs = append(s.subs, sub)
	}
	if err := s.client.Conn().Flush(); err != nil {
		s.Close()
		return err
	}
	s.logger.Info("Bridge: listening", "prefix", s.subjects.Prefix)
	return nil
}

// Close unsubscribes and waits for in-flight requests.
func (s *Service) Close() {
	s.cancel()
	for _, sub := range s.subs {
		_ = sub.Drain()
	}
	s.subs = nil
	s.wg.Wait()
}

// Publish sends a progress event. It is meant to be the reader's observer.
func (s *Service) Publish(e reader.Event) {
	data, err := json.Marshal(progressEvent(e))
	if err != nil {
		s.logger.Warn("Bridge: marshal progress", "error", err)
		return
	}
	if err := s.client.Conn().Publish(s.subjects.Progress, data); err != nil {
		s.logger.Warn("Bridge: publish progress", "error", err)
	}
}

func (s *Service) handlePing(msg *nats.Msg) {
	_ = msg.Respond([]byte("pong"))
}

func (s *Service) handleInitiate(msg *nats.Msg) {
	var req InitiateRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("Bridge: bad initiate request", "error", err)
		s.respond(msg, InitiateReply{Error: "invalid request"})
		return
	}

	// Initiate blocks until the first chunk is playing.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()

		sess, err := s.reader.Initiate(ctx, req.Text)
		var reply InitiateReply
		if sess != nil {
			reply.SessionID = sess.ID.String()
			reply.Chunks = len(sess.Chunks)
		}
		if err != nil {
			s.logger.Warn("Bridge: initiate failed", "error", err)
			reply.Error = err.Error()
		}
		s.respond(msg, reply)
	}()
}

func (s *Service) handleControl(msg *nats.Msg) {
	var req ControlRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.respond(msg, ControlReply{Error: "invalid request"})
		return
	}

	var reply ControlReply
	switch req.Action {
	case ActionPress:
		if err := s.reader.Press(s.ctx); err != nil {
			reply.Error = err.Error()
		} else {
			reply.OK = true
		}
	case ActionStop:
		s.reader.Stop()
		reply.OK = true
	case ActionJump:
		reply.OK = s.reader.Select(req.Index)
		if !reply.OK {
			reply.Error = fmt.Sprintf("chunk %d is not ready", req.Index)
		}
	default:
		reply.Error = fmt.Sprintf("unknown action %q", req.Action)
	}
	s.logger.Debug("Bridge: control", "action", req.Action, "index", req.Index, "ok", reply.OK)
	s.respond(msg, reply)
}

func (s *Service) handleStatus(msg *nats.Msg) {
	s.respond(msg, statusReply(s.reader.Status()))
}

func (s *Service) handleChunk(msg *nats.Msg) {
	var req ChunkRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.respond(msg, ChunkReply{})
		return
	}
	text, ok := s.reader.ChunkText(req.Index)
	s.respond(msg, ChunkReply{Text: text, Found: ok})
}

func (s *Service) respond(msg *nats.Msg, v any) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("Bridge: marshal reply", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Warn("Bridge: respond", "subject", msg.Subject, "error", err)
	}
}
