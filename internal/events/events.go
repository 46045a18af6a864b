// Package events publishes document change notifications.
package events

import "context"

// Event topic constants
const (
	TopicDocumentUpdated = "coreenginedb.document.updated"
	TopicJournalAppended = "coreenginedb.journal.appended"
	TopicWalletCredited  = "coreenginedb.wallet.credited"
)

// Publisher sends an event to a topic. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

type DocumentUpdated struct {
	Document string `json:"document"`
	ETag     string `json:"etag"`
	Actor    string `json:"actor,omitempty"`
	Cause    string `json:"cause,omitempty"`
}

type JournalAppended struct {
	Day string `json:"day"`
	Key string `json:"key"`
}

type WalletCredited struct {
	Username string  `json:"username"`
	RelID    int64   `json:"relid"`
	Amount   float64 `json:"amount"`
	Balance  float64 `json:"balance"`
}
