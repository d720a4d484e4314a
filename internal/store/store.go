// Package store owns the authoritative finding collection: upsert keyed by
// finding_uid, recency-ordered listing and live severity-bucket counts.
package store

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/jim-wyatt/saas-tesa/internal/model"
)

var ErrNotInitialized = errors.New("store: Init has not been called")

// Store is the persistence contract the ingest pipeline and API rely on.
//
// Upsert applies a whole batch or nothing. A finding whose finding_uid is
// already stored replaces the stored record entirely. List returns at most
// limit findings, newest time first, ties newest insertion first. Summary
// reflects every stored finding.
type Store interface {
	Init(ctx context.Context) error
	Upsert(ctx context.Context, findings []model.SecurityFinding) error
	List(ctx context.Context, limit int) ([]model.SecurityFinding, error)
	Summary(ctx context.Context) (model.Summary, error)
	Kind() string
	Close() error
}
