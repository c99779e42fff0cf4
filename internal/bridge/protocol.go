package bridge

import (
	"github.com/voicereader/voicereader/internal/reader"
)

// DefaultSubjectPrefix is the subject namespace used when none is set.
const DefaultSubjectPrefix = "voicereader"

// Control actions.
const (
	ActionPress = "press"
	ActionStop  = "stop"
	ActionJump  = "jump"
)

// Subjects names every subject under one prefix.
type Subjects struct {
	Prefix   string
	Initiate string
	Ping     string
	Control  string
	Status   string
	Chunk    string
	Progress string
}

// NewSubjects derives the subject names from prefix.
func NewSubjects(prefix string) Subjects {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return Subjects{
		Prefix:   prefix,
		Initiate: prefix + ".initiate",
		Ping:     prefix + ".ping",
		Control:  prefix + ".control",
		Status:   prefix + ".status",
		Chunk:    prefix + ".chunk",
		Progress: prefix + ".progress",
	}
}

// InitiateRequest asks the reader to read text.
type InitiateRequest struct {
	Text string `json:"text"`
}

// InitiateReply describes the session that was started. A reply with no
// session id and no error means there was nothing to read.
type InitiateReply struct {
	SessionID string `json:"sessionId,omitempty"`
	Chunks    int    `json:"chunks"`
	Error     string `json:"error,omitempty"`
}

// ControlRequest is a transport intent.
type ControlRequest struct {
	Action string `json:"action"`
	Index  int    `json:"index,omitempty"`
}

// ControlReply reports whether the intent was applied.
type ControlReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// StatusReply is the coarse reader state.
type StatusReply struct {
	Status    string `json:"status"`
	SessionID string `json:"sessionId,omitempty"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Current   int    `json:"current"`
	Queue     string `json:"queue"`
}

// ChunkRequest asks for the text of one chunk.
type ChunkRequest struct {
	Index int `json:"index"`
}

// ChunkReply carries chunk text.
type ChunkReply struct {
	Text  string `json:"text"`
	Found bool   `json:"found"`
}

// ProgressEvent is published after every session change.
type ProgressEvent struct {
	SessionID string `json:"sessionId"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Current   int    `json:"current"`
	Status    string `json:"status"`
	Button    string `json:"button"`
	Selected  int    `json:"selected"`
	Error     string `json:"error,omitempty"`
}

func statusReply(s reader.Status) StatusReply {
	reply := StatusReply{
		Status:    s.Label(),
		Processed: s.Progress.Processed,
		Total:     s.Progress.Total,
		Current:   s.Progress.Current,
		Queue:     s.Progress.Status.String(),
	}
	if s.Progress.Total > 0 {
		reply.SessionID = s.SessionID.String()
	}
	return reply
}

func progressEvent(e reader.Event) ProgressEvent {
	p := e.View.Progress
	ev := ProgressEvent{
		SessionID: e.SessionID.String(),
		Processed: p.Processed,
		Total:     p.Total,
		Current:   p.Current,
		Status:    p.Status.String(),
		Button:    e.View.Button.String(),
		Selected:  e.View.Selected,
	}
	if p.Err != nil {
		ev.Error = p.Err.Error()
	}
	return ev
}
