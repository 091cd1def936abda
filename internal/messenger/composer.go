package messenger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zhubert/parley/internal/backend"
	pErrors "github.com/zhubert/parley/internal/errors"
	"github.com/zhubert/parley/internal/logger"
)

var (
	// ErrEmptyMessage is returned for a draft that is blank after trimming.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrAttachmentUnsupported is returned when an image is staged for a
	// message. Messages carry text only.
	ErrAttachmentUnsupported = errors.New("image messages are not supported")
	// ErrSummaryNotUpdated means the message was written but the chat's
	// lastMessage was not. The draft should not be restored.
	ErrSummaryNotUpdated = errors.New("message sent, chat summary not updated")
)

// Composer stages the outgoing message of the active chat.
type Composer struct {
	docs  backend.DocumentStore
	draft string
	image []byte
}

func NewComposer(docs backend.DocumentStore) *Composer {
	return &Composer{docs: docs}
}

func (c *Composer) SetDraft(text string) { c.draft = text }

func (c *Composer) Draft() string { return c.draft }

// Attach stages an image for the next message.
func (c *Composer) Attach(data []byte) { c.image = data }

func (c *Composer) Attached() bool { return len(c.image) > 0 }

// Clear drops the draft and any staged image.
func (c *Composer) Clear() {
	c.draft = ""
	c.image = nil
}

// Take validates and removes the draft, returning the trimmed text to send.
// On error the draft is left as it was.
func (c *Composer) Take() (string, error) {
	if c.Attached() {
		return "", pErrors.E(pErrors.Op("messenger.Take"), pErrors.KindInvalid, ErrAttachmentUnsupported)
	}
	text := strings.TrimSpace(c.draft)
	if text == "" {
		return "", pErrors.E(pErrors.Op("messenger.Take"), pErrors.KindInvalid, ErrEmptyMessage)
	}
	c.draft = ""
	return text, nil
}

// Restore puts the text of a failed send back in the draft, ahead of anything
// typed since.
func (c *Composer) Restore(text string) {
	if strings.TrimSpace(c.draft) == "" {
		c.draft = text
		return
	}
	c.draft = text + "\n" + c.draft
}

// Send writes a message to chatID as sender and then updates the chat's
// lastMessage summary. The two writes are independent: if the second fails
// the message exists but the chat list summary is stale.
func (c *Composer) Send(ctx context.Context, chatID, text string, sender backend.Identity) error {
	const op = pErrors.Op("messenger.Send")
	text = strings.TrimSpace(text)
	if text == "" {
		return pErrors.E(op, pErrors.KindInvalid, ErrEmptyMessage)
	}
	log := logger.WithChat(chatID)

	msg := backend.Message{
		Text:        text,
		SenderID:    sender.ID,
		SenderName:  sender.Name(),
		SenderPhoto: sender.PhotoURL,
	}
	id, err := c.docs.Create(ctx, backend.MessagesOf(chatID), msg.Fields())
	if err != nil {
		log.Error("send failed", "error", err)
		return pErrors.WriteFailed(op, backend.MessagesOf(chatID), err)
	}

	summary := backend.Fields{
		"lastMessage": map[string]any{
			"text":     text,
			"senderId": sender.ID,
			"sentAt":   backend.ServerTimestamp,
		},
	}
	if err := c.docs.Update(ctx, backend.ChatPath(chatID), summary); err != nil {
		log.Error("lastMessage update failed", "messageID", id, "error", err)
		return pErrors.E(op, pErrors.KindWrite, fmt.Errorf("%w: %w", ErrSummaryNotUpdated, err))
	}
	log.Debug("sent", "messageID", id)
	return nil
}
