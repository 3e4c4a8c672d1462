package carts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

// Repository stores cart snapshots in Postgres.
//
//	CREATE TABLE cart_snapshots (
//	  user_id    text PRIMARY KEY,
//	  items      jsonb NOT NULL DEFAULT '[]',
//	  version    bigint NOT NULL,
//	  expires_at timestamptz,
//	  updated_at timestamptz NOT NULL DEFAULT now()
//	);
type Repository struct {
	db  dbx.Querier
	ttl time.Duration
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{db: q, ttl: 7 * 24 * time.Hour}
}

func NewRepositoryWithTTL(q dbx.Querier, ttl time.Duration) *Repository {
	return &Repository{db: q, ttl: ttl}
}

func (r *Repository) Load(ctx context.Context, userID string) (*Snapshot, error) {
	var (
		raw     []byte
		version int64
		s       = Snapshot{UserID: userID}
	)

	err := r.db.QueryRow(ctx, `
SELECT items, version, updated_at
FROM cart_snapshots
WHERE user_id = $1
  AND (expires_at IS NULL OR expires_at > now())
`, userID).Scan(&raw, &version, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("select cart snapshot: %w", err)
	}
	s.Version = uint64(version)

	if err := json.Unmarshal(raw, &s.Items); err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}
	return &s, nil
}

// Save upserts the snapshot unless the stored row is still live and already
// has the same or a newer version. An expired row is replaced whatever its
// version, since Load no longer returns it. Every save refreshes the expiry.
func (r *Repository) Save(ctx context.Context, s Snapshot) error {
	items := s.Items
	if items == nil {
		items = []LineItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart items: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
INSERT INTO cart_snapshots (user_id, items, version, expires_at, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (user_id)
DO UPDATE SET
  items      = EXCLUDED.items,
  version    = EXCLUDED.version,
  expires_at = EXCLUDED.expires_at,
  updated_at = now()
WHERE cart_snapshots.version < EXCLUDED.version
   OR cart_snapshots.expires_at <= now()
`, s.UserID, raw, int64(s.Version), time.Now().Add(r.ttl))
	if err != nil {
		return fmt.Errorf("save cart snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save cart snapshot v%d: %w", s.Version, ErrStaleSnapshot)
	}
	return nil
}

// DeleteExpired is the housekeeping counterpart of the TTL.
func (r *Repository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `
DELETE FROM cart_snapshots
WHERE expires_at IS NOT NULL
  AND expires_at <= now()
`)
	if err != nil {
		return 0, fmt.Errorf("delete expired carts: %w", err)
	}
	return tag.RowsAffected(), nil
}
