package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// ErrNoReader is returned when no serving reader answers.
var ErrNoReader = errors.New("no reader is listening")

// Remote drives a serving reader from another process.
type Remote struct {
	client   *Client
	subjects Subjects
	timeout  time.Duration
}

// NewRemote creates a Remote using cfg's prefix and request timeout.
func NewRemote(cfg Config, client *Client) *Remote {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().RequestTimeout
	}
	return &Remote{client: client, subjects: NewSubjects(cfg.SubjectPrefix), timeout: timeout}
}

// Ping reports whether a reader is listening.
func (r *Remote) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := r.client.Conn().RequestWithContext(ctx, r.subjects.Ping, nil)
	if err != nil {
		return r.requestErr(err)
	}
	if string(msg.Data) != "pong" {
		return fmt.Errorf("unexpected ping reply %q", msg.Data)
	}
	return nil
}

// Initiate asks the reader to read text.
func (r *Remote) Initiate(ctx context.Context, text string) (InitiateReply, error) {
	var reply InitiateReply
	err := r.request(ctx, r.subjects.Initiate, InitiateRequest{Text: text}, &reply)
	return reply, err
}

// Control sends a transport intent.
func (r *Remote) Control(ctx context.Context, action string, index int) (ControlReply, error) {
	var reply ControlReply
	err := r.request(ctx, r.subjects.Control, ControlRequest{Action: action, Index: index}, &reply)
	return reply, err
}

// Status queries the reader's state.
func (r *Remote) Status(ctx context.Context) (StatusReply, error) {
	var reply StatusReply
	err := r.request(ctx, r.subjects.Status, struct{}{}, &reply)
	return reply, err
}

// ChunkText fetches the text of chunk index.
func (r *Remote) ChunkText(ctx context.Context, index int) (ChunkReply, error) {
	var reply ChunkReply
	err := r.request(ctx, r.subjects.Chunk, ChunkRequest{Index: index}, &reply)
	return reply, err
}

// Subscribe delivers progress events to fn until the subscription is
// drained.
func (r *Remote) Subscribe(fn func(ProgressEvent)) (*nats.Subscription, error) {
	return r.client.Conn().Subscribe(r.subjects.Progress, func(msg *nats.Msg) {
		var ev ProgressEvent
		if err := json.Unmarshal(msg.Data, &ev); err == nil {
			fn(ev)
		}
	})
}

func (r *Remote) request(ctx context.Context, subject string, req, reply any) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	msg, err := r.client.Conn().RequestWithContext(ctx, subject, data)
	if err != nil {
		return r.requestErr(err)
	}
	if err := json.Unmarshal(msg.Data, reply); err != nil {
		return fmt.Errorf("decode %s reply: %w", subject, err)
	}
	return nil
}

func (r *Remote) requestErr(err error) error {
	if errors.Is(err, nats.ErrNoResponders) {
		return ErrNoReader
	}
	return err
}
