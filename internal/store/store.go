// Package store persists video records and their append-only progress logs.
package store

import (
	"context"
	"errors"

	"github.com/reelcraft/api/internal/model"
)

// ErrNotFound is returned when no record exists for the requested id.
var ErrNotFound = errors.New("video not found")

// VideoStore is the durable record of job metadata and progress. The
// authoritative in-flight state lives with the worker; the store only sees
// snapshots of it.
type VideoStore interface {
	// Create persists a new record. The ID must already be assigned.
	Create(ctx context.Context, video *model.Video) error

	// Get returns the record or ErrNotFound.
	Get(ctx context.Context, id string) (*model.Video, error)

	// List returns all records, newest first.
	List(ctx context.Context) ([]*model.Video, error)

	// Update overwrites the record snapshot. Returns ErrNotFound if the
	// record was deleted underneath the worker.
	Update(ctx context.Context, video *model.Video) error

	// AppendProgress appends one entry to the video's progress log.
	AppendProgress(ctx context.Context, id string, entry *model.ProgressEntry) error

	// ListProgress returns the progress log in append order.
	ListProgress(ctx context.Context, id string) ([]*model.ProgressEntry, error)

	// Delete removes the record and its progress log. Returns ErrNotFound
	// when the id is absent, so a repeated delete never succeeds twice.
	Delete(ctx context.Context, id string) error
}
