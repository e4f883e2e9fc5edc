// Package domain defines the webhook event journal: an append-only record of
// every delivery and what reconciliation did with it.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Entry is one journaled webhook delivery.
type Entry struct {
	ID              snowflake.ID   `gorm:"primaryKey;column:id" json:"id"`
	Provider        string         `gorm:"column:provider;index" json:"provider"`
	ProviderEventID string         `gorm:"column:provider_event_id;index" json:"provider_event_id"`
	EventType       string         `gorm:"column:event_type;index" json:"event_type"`
	IdentityKey     string         `gorm:"column:identity_key;index" json:"email,omitempty"`
	Outcome         string         `gorm:"column:outcome" json:"outcome"`
	Reason          string         `gorm:"column:reason" json:"reason,omitempty"`
	Payload         datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
	ReceivedAt      time.Time      `gorm:"column:received_at;not null;index" json:"received_at"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "webhook_events" }

// Journal is the append-only event log. Append failures never block webhook
// acknowledgement; callers log and continue.
type Journal interface {
	Append(ctx context.Context, entry Entry) error
	// List returns the most recent entries, newest first.
	List(ctx context.Context, limit int) ([]Entry, error)
}
