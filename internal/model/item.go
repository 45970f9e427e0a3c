package model

import (
	"context"
	"time"
)

// Source names used for cursors, run summaries, and logging.
const (
	SourceMailbox = "mailbox"
	SourceFeeds   = "feeds"
)

// SourceItem is one mailbox message or feed entry, as produced by an adapter.
type SourceItem struct {
	ID       string // message id, or link-derived id for feed entries
	ThreadID string // mailbox only
	OrderKey int64  // mailbox internal date in ms; zero for feeds
	Subject  string
	From     string // sender, or source host for feed entries
	Text     string // combined plain text
	HTML     string // mailbox only
	URLs     []string
}

// Mailbox lists and fetches messages from a single configured mailbox.
type Mailbox interface {
	ListMessageIDs(ctx context.Context, query string, max int) ([]string, error)
	FetchMessage(ctx context.Context, id string) (*SourceItem, error)
}

// MailboxDialer opens a Mailbox authorized with the given access token.
type MailboxDialer interface {
	Dial(ctx context.Context, accessToken string) (Mailbox, error)
}

// TokenProvider hands out a valid mailbox access token.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// FeedFetcher retrieves the raw bytes of one feed URL.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// IdempotencyRecord is written once per processed mailbox message.
type IdempotencyRecord struct {
	ItemID      string
	ThreadID    string
	OrderKey    int64
	Subject     string
	From        string
	URLs        []string
	JobKeys     []string
	ProcessedAt time.Time
}

// IdempotencyLog records which source items were already processed.
type IdempotencyLog interface {
	HasRecord(ctx context.Context, itemID string) (bool, error)
	InsertRecord(ctx context.Context, rec IdempotencyRecord) error
}

// CursorStore holds the per-source high-watermark.
type CursorStore interface {
	// GetCursor returns the stored watermark and whether one exists.
	GetCursor(ctx context.Context, source string) (int64, bool, error)
	PutCursor(ctx context.Context, source string, value int64) error
}

// VaultEntry is the singleton token vault row.
type VaultEntry struct {
	RefreshCiphertext string
	AccessToken       string
	ExpiresAt         time.Time
	UpdatedAt         time.Time
}

// VaultStore persists the token vault singleton. GetVault returns nil, nil
// when no row exists yet.
type VaultStore interface {
	GetVault(ctx context.Context) (*VaultEntry, error)
	PutVault(ctx context.Context, entry VaultEntry) error
}
