// Package notification provides cross-platform desktop notifications.
// It uses the beeep library to send notifications on macOS, Linux, and Windows.
package notification

import (
	"strings"
	"unicode/utf8"

	"github.com/gen2brain/beeep"

	"github.com/zhubert/parley/internal/logger"
)

// AppName is the title of every notification.
const AppName = "parley"

// previewLen caps the message preview shown in a notification.
const previewLen = 80

type notifier func(title, message string, icon any) error

var notify notifier = beeep.Notify

// SetNotifier replaces the delivery function, for tests.
func SetNotifier(fn func(title, message string, icon any) error) {
	notify = fn
}

// ResetNotifier restores beeep delivery.
func ResetNotifier() {
	notify = beeep.Notify
}

// Send sends a desktop notification with the given title and message.
func Send(title, message string) error {
	logger.Debug("Notification: title=%q, message=%q", title, message)
	err := notify(title, message, "")
	if err != nil {
		logger.Warn("Notification: failed to send: %v", err)
	}
	return err
}

// NewMessage announces a message that arrived in a chat the user is not
// looking at.
func NewMessage(chatName, text string) error {
	return Send(AppName, chatName+": "+Preview(text))
}

// Preview collapses whitespace and shortens text for a notification body.
func Preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= previewLen {
		return text
	}
	r := []rune(text)
	return string(r[:previewLen-3]) + "..."
}
