package messenger

import (
	"context"
	"log/slog"
	"sort"

	"github.com/zhubert/parley/internal/backend"
	pErrors "github.com/zhubert/parley/internal/errors"
	"github.com/zhubert/parley/internal/logger"
)

// Stream holds the message sequence of the active chat.
type Stream struct {
	docs     backend.DocumentStore
	chatID   string
	sub      backend.Subscription
	messages []backend.Message
	err      error
	log      *slog.Logger
}

func NewStream(docs backend.DocumentStore) *Stream {
	return &Stream{docs: docs, log: logger.ComponentLogger("Stream")}
}

// MessagesQuery selects a chat's messages, oldest first.
func MessagesQuery(chatID string) backend.Query {
	return backend.Query{Collection: backend.MessagesOf(chatID), OrderBy: "sentAt"}
}

// Activate makes chatID the active chat. The previous subscription is
// cancelled and its messages discarded before the new one is set up.
func (s *Stream) Activate(ctx context.Context, chatID string) (backend.Subscription, error) {
	s.Deactivate()
	s.chatID = chatID

	sub, err := s.docs.Subscribe(ctx, MessagesQuery(chatID))
	if err != nil {
		s.err = pErrors.SubscriptionFailed(backend.MessagesOf(chatID), err)
		s.log.Error("message subscription rejected", "chatID", chatID, "error", err)
		return nil, s.err
	}
	s.sub = sub
	logger.WithChat(chatID).Debug("activated")
	return sub, nil
}

// Deactivate cancels the subscription and clears the sequence.
func (s *Stream) Deactivate() {
	if s.sub != nil {
		s.sub.Cancel()
		s.sub = nil
	}
	s.chatID = ""
	s.messages = nil
	s.err = nil
}

// Apply replaces the sequence with snap if snap belongs to the current
// subscription. Late emissions from a cancelled subscription are dropped.
func (s *Stream) Apply(snap backend.Snapshot) bool {
	if s.sub == nil || snap.Token != s.sub.Token() {
		return false
	}
	if snap.Err != nil {
		s.messages = nil
		s.err = pErrors.SubscriptionFailed(backend.MessagesOf(s.chatID), snap.Err)
		return true
	}

	msgs := make([]backend.Message, 0, len(snap.Docs))
	for _, d := range snap.Docs {
		msgs = append(msgs, backend.MessageFromDoc(d))
	}
	SortMessages(msgs)
	s.messages = msgs
	s.err = nil
	return true
}

// SortMessages orders by SentAt ascending, keeping arrival order on ties.
// Messages the server has not stamped yet go last.
func SortMessages(msgs []backend.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		ti, tj := msgs[i].SentAt, msgs[j].SentAt
		switch {
		case ti.IsZero() != tj.IsZero():
			return tj.IsZero()
		case !ti.Equal(tj):
			return ti.Before(tj)
		}
		return msgs[i].Seq < msgs[j].Seq
	})
}

func (s *Stream) ChatID() string { return s.chatID }

func (s *Stream) Active() bool { return s.sub != nil }

func (s *Stream) Token() backend.Token {
	if s.sub == nil {
		return 0
	}
	return s.sub.Token()
}

func (s *Stream) Subscription() backend.Subscription { return s.sub }

func (s *Stream) Messages() []backend.Message { return s.messages }

func (s *Stream) Err() error { return s.err }

// Last returns the newest message.
func (s *Stream) Last() (backend.Message, bool) {
	if len(s.messages) == 0 {
		return backend.Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// Row is one rendered message.
type Row struct {
	backend.Message
	Own bool
	// ShowAvatar is set on the first message of a same-sender run.
	ShowAvatar bool
}

// Rows returns the sequence prepared for display to selfID.
func (s *Stream) Rows(selfID string) []Row {
	return BuildRows(s.messages, selfID)
}

// BuildRows groups consecutive messages from one sender.
func BuildRows(msgs []backend.Message, selfID string) []Row {
	rows := make([]Row, len(msgs))
	for i, m := range msgs {
		rows[i] = Row{
			Message:    m,
			Own:        m.SenderID == selfID,
			ShowAvatar: i == 0 || msgs[i-1].SenderID != m.SenderID,
		}
	}
	return rows
}
