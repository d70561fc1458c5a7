package amino

import "strings"

// Frame types on the event stream. Only chat message notifications are
// handled; everything else is ignored.
const FrameChatMessage = 1000

// Chat message types delivered by the stream.
const (
	MessageTypeCommon = 0
	MessageTypeEnter  = 101
	MessageTypeExit   = 102
)

// sentinelNull fills fields the backend omits on some frames.
const sentinelNull = "Null"

// Frame is one unit of the event-stream protocol.
type Frame struct {
	Type    int           `json:"t"`
	Payload *FramePayload `json:"o,omitempty"`
}

// FramePayload is the body of a frame.
type FramePayload struct {
	NDCID       int64        `json:"ndcId"`
	ChatMessage *ChatMessage `json:"chatMessage,omitempty"`
}

// IsChatMessage reports whether the frame carries a chat message
// notification.
func (f *Frame) IsChatMessage() bool {
	return f.Type == FrameChatMessage && f.Payload != nil && f.Payload.ChatMessage != nil
}

// Author identifies the sender of a chat message.
type Author struct {
	UID      string `json:"uid"`
	Nickname string `json:"nickname"`
	Icon     string `json:"icon,omitempty"`
}

// ChatMessage is a message received on the event stream or returned by the
// REST API. NDCID is denormalized from the enclosing frame so a message is
// self-contained: a reply can be scoped from the message alone.
type ChatMessage struct {
	NDCID       int64   `json:"ndcId"`
	ThreadID    string  `json:"threadId"`
	MessageID   string  `json:"messageId"`
	UID         string  `json:"uid"`
	Type        int     `json:"type"`
	Content     string  `json:"content,omitempty"`
	Author      *Author `json:"author,omitempty"`
	CreatedTime string  `json:"createdTime,omitempty"`
}

// Command returns the leading space-delimited token of the message content,
// the key used for command dispatch.
func (m *ChatMessage) Command() string {
	if i := strings.IndexByte(m.Content, ' '); i >= 0 {
		return m.Content[:i]
	}
	return m.Content
}

// handledMessageType reports whether a chat message type is dispatched.
func handledMessageType(t int) bool {
	switch t {
	case MessageTypeCommon, MessageTypeEnter, MessageTypeExit:
		return true
	}
	return false
}

// normalize fills the fields the backend omits on some frames and copies the
// community id down from the frame payload.
func (m *ChatMessage) normalize(ndcID int64) {
	m.NDCID = ndcID
	if m.Content == "" {
		m.Content = sentinelNull
	}
	if m.Author == nil {
		m.Author = &Author{UID: m.UID, Nickname: sentinelNull}
	}
}
