package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driven"
)

// itemStore implements driven.ItemStore.
type itemStore struct {
	pool *pgxpool.Pool
}

var _ driven.ItemStore = (*itemStore)(nil)

const itemColumns = `track_id, country, name, version, icon_url, seller_name, genre,
	release_notes, last_release_date, first_release_date, date_added, status,
	last_checked_at, ban_date, ownership`

// Get retrieves an item by key.
func (s *itemStore) Get(ctx context.Context, key domain.ItemKey) (*domain.TrackedItem, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+itemColumns+" FROM items WHERE track_id = $1 AND country = $2",
		key.TrackID, key.Country)
	return scanItem(row)
}

// List returns items matching the filter, ordered by key.
func (s *itemStore) List(ctx context.Context, filter domain.ItemFilter) ([]domain.TrackedItem, error) {
	var (
		where []string
		args  []any
	)
	if filter.Ownership != "" {
		args = append(args, string(filter.Ownership))
		where = append(where, "ownership = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}

	query := "SELECT " + itemColumns + " FROM items"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY track_id, country"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []domain.TrackedItem //nolint:prealloc // size unknown from query
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return items, nil
}

// Save creates or replaces an item.
func (s *itemStore) Save(ctx context.Context, item domain.TrackedItem) error {
	if item.Key.IsZero() {
		return domain.ErrInvalidInput
	}
	if err := upsertItem(ctx, s.pool, &item); err != nil {
		return fmt.Errorf("saving item: %w", err)
	}
	return nil
}

// Delete removes an item and, through the foreign key, its history.
func (s *itemStore) Delete(ctx context.Context, key domain.ItemKey) error {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM items WHERE track_id = $1 AND country = $2", key.TrackID, key.Country)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Transact locks the item row, runs fn and writes the item plus appended
// records before committing.
func (s *itemStore) Transact(ctx context.Context, key domain.ItemKey, fn func(tx driven.ItemTx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx,
		"SELECT "+itemColumns+" FROM items WHERE track_id = $1 AND country = $2 FOR UPDATE",
		key.TrackID, key.Country)
	item, err := scanItem(row)
	if err != nil {
		return err
	}

	itx := &itemTx{item: *item}
	if err := fn(itx); err != nil {
		return err
	}

	itx.item.Key = key
	if err := upsertItem(ctx, tx, &itx.item); err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	for _, r := range itx.records {
		_, err := tx.Exec(ctx, `
			INSERT INTO transitions (id, track_id, country, at, kind, old_value, new_value)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, r.ID, key.TrackID, key.Country, r.At.UTC(), string(r.Kind), r.OldValue, r.NewValue)
		if err != nil {
			return fmt.Errorf("appending transition: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Transitions returns the item's records, most recent first.
func (s *itemStore) Transitions(ctx context.Context, key domain.ItemKey, limit int) ([]domain.TransitionRecord, error) {
	query := `
		SELECT id, track_id, country, at, kind, old_value, new_value
		FROM transitions
		WHERE track_id = $1 AND country = $2
		ORDER BY seq DESC`
	args := []any{key.TrackID, key.Country}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transitions: %w", err)
	}
	defer rows.Close()

	var records []domain.TransitionRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			r    domain.TransitionRecord
			kind string
		)
		if err := rows.Scan(&r.ID, &r.ItemKey.TrackID, &r.ItemKey.Country,
			&r.At, &kind, &r.OldValue, &r.NewValue); err != nil {
			return nil, fmt.Errorf("scanning transition: %w", err)
		}
		r.Kind = domain.ChangeKind(kind)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transitions: %w", err)
	}
	return records, nil
}

// itemTx implements driven.ItemTx over a locked copy of the item.
type itemTx struct {
	item    domain.TrackedItem
	records []domain.TransitionRecord
}

func (t *itemTx) Item() *domain.TrackedItem { return &t.item }

func (t *itemTx) Append(record domain.TransitionRecord) error {
	if record.ID == "" {
		return fmt.Errorf("%w: transition without id", domain.ErrInvalidInput)
	}
	t.records = append(t.records, record)
	return nil
}

// execer is satisfied by *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func upsertItem(ctx context.Context, q execer, item *domain.TrackedItem) error {
	_, err := q.Exec(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (track_id, country) DO UPDATE SET
			name = EXCLUDED.name,
			version = EXCLUDED.version,
			icon_url = EXCLUDED.icon_url,
			seller_name = EXCLUDED.seller_name,
			genre = EXCLUDED.genre,
			release_notes = EXCLUDED.release_notes,
			last_release_date = EXCLUDED.last_release_date,
			first_release_date = EXCLUDED.first_release_date,
			date_added = EXCLUDED.date_added,
			status = EXCLUDED.status,
			last_checked_at = EXCLUDED.last_checked_at,
			ban_date = EXCLUDED.ban_date,
			ownership = EXCLUDED.ownership
	`, item.Key.TrackID, item.Key.Country, item.Name, item.Version, item.IconURL,
		item.SellerName, item.Genre, item.ReleaseNotes,
		nullableTime(item.LastReleaseDate), item.FirstReleaseDate,
		item.DateAdded.UTC(), string(item.Status),
		item.LastCheckedAt, item.BanDate, string(item.Ownership))
	return err
}

func scanItem(row pgx.Row) (*domain.TrackedItem, error) {
	var (
		item              domain.TrackedItem
		status, ownership string
		lastRelease       *time.Time
	)
	err := row.Scan(&item.Key.TrackID, &item.Key.Country, &item.Name, &item.Version,
		&item.IconURL, &item.SellerName, &item.Genre, &item.ReleaseNotes,
		&lastRelease, &item.FirstReleaseDate, &item.DateAdded, &status,
		&item.LastCheckedAt, &item.BanDate, &ownership)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning item: %w", err)
	}

	item.Status = domain.Status(status)
	item.Ownership = domain.Ownership(ownership)
	if lastRelease != nil {
		item.LastReleaseDate = *lastRelease
	}
	return &item, nil
}

// nullableTime maps the zero time to NULL.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
