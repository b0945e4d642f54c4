// Package delivery defines the interface to the messaging transport and the
// texts and keyboards the bot sends through it. The transport itself
// (connection handling, rendering) lives outside this repository.
package delivery

import (
	"context"

	"github.com/vidgrab/vidgrab/pkg/models"
)

// MessageRef identifies a previously sent prompt so it can be edited or
// deleted.
type MessageRef string

// InteractionRef identifies a single button press to acknowledge.
type InteractionRef string

// Button is one inline keyboard button. Data carries an opaque token parsed
// by ParseAction.
type Button struct {
	Text string
	Data string
}

// Channel is the transport the bot talks through.
type Channel interface {
	SendPrompt(ctx context.Context, userID, text string, buttons [][]Button) (MessageRef, error)
	EditPrompt(ctx context.Context, ref MessageRef, text string, buttons [][]Button) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
	SendFile(ctx context.Context, userID string, track models.TrackType, fileRef, caption string) error
	Acknowledge(ctx context.Context, interaction InteractionRef, text string) error
}
