package store

import (
	"context"

	"github.com/amishk599/jobintake/internal/model"
)

// NopStore is a no-op idempotency log and cursor store used in dry-run mode.
// It never records anything, so every item appears new on each poll.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) HasRecord(context.Context, string) (bool, error)                { return false, nil }
func (s *NopStore) InsertRecord(context.Context, model.IdempotencyRecord) error     { return nil }
func (s *NopStore) GetCursor(context.Context, string) (int64, bool, error)         { return 0, false, nil }
func (s *NopStore) PutCursor(context.Context, string, int64) error                 { return nil }
