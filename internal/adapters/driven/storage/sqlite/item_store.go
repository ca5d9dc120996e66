package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driven"
)

// itemStore implements driven.ItemStore.
type itemStore struct {
	store *Store
}

var _ driven.ItemStore = (*itemStore)(nil)

const itemColumns = `track_id, country, name, version, icon_url, seller_name, genre,
	release_notes, last_release_date, first_release_date, date_added, status,
	last_checked_at, ban_date, ownership`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Get retrieves an item by key.
func (s *itemStore) Get(ctx context.Context, key domain.ItemKey) (*domain.TrackedItem, error) {
	return getItem(ctx, s.store.db, key)
}

// List returns items matching the filter, ordered by key.
func (s *itemStore) List(ctx context.Context, filter domain.ItemFilter) ([]domain.TrackedItem, error) {
	var (
		where []string
		args  []any
	)
	if filter.Ownership != "" {
		where = append(where, "ownership = ?")
		args = append(args, string(filter.Ownership))
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := "SELECT " + itemColumns + " FROM items"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY track_id, country"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
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
	if err := upsertItem(ctx, s.store.db, &item); err != nil {
		return fmt.Errorf("saving item: %w", err)
	}
	return nil
}

// Delete removes an item and, through the foreign key, its history.
func (s *itemStore) Delete(ctx context.Context, key domain.ItemKey) error {
	res, err := s.store.db.ExecContext(ctx,
		"DELETE FROM items WHERE track_id = ? AND country = ?", key.TrackID, key.Country)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Transact loads the item, runs fn and writes the item plus appended
// records in one transaction.
func (s *itemStore) Transact(ctx context.Context, key domain.ItemKey, fn func(tx driven.ItemTx) error) error {
	sqlTx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	item, err := getItem(ctx, sqlTx, key)
	if err != nil {
		return errors.Join(err, rollback(sqlTx))
	}

	tx := &itemTx{item: *item}
	if err := fn(tx); err != nil {
		return errors.Join(err, rollback(sqlTx))
	}

	tx.item.Key = key
	if err := upsertItem(ctx, sqlTx, &tx.item); err != nil {
		return errors.Join(fmt.Errorf("updating item: %w", err), rollback(sqlTx))
	}
	for _, record := range tx.records {
		if err := insertTransition(ctx, sqlTx, key, record); err != nil {
			return errors.Join(fmt.Errorf("appending transition: %w", err), rollback(sqlTx))
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Transitions returns the item's records, most recent first.
func (s *itemStore) Transitions(ctx context.Context, key domain.ItemKey, limit int) ([]domain.TransitionRecord, error) {
	query := `
		SELECT id, track_id, country, at, kind, old_value, new_value
		FROM transitions
		WHERE track_id = ? AND country = ?
		ORDER BY seq DESC`
	args := []any{key.TrackID, key.Country}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transitions: %w", err)
	}
	defer rows.Close()

	var records []domain.TransitionRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			r  domain.TransitionRecord
			at string
		)
		if err := rows.Scan(&r.ID, &r.ItemKey.TrackID, &r.ItemKey.Country,
			&at, &r.Kind, &r.OldValue, &r.NewValue); err != nil {
			return nil, fmt.Errorf("scanning transition: %w", err)
		}
		r.At = parseTime(at)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transitions: %w", err)
	}
	return records, nil
}

// itemTx implements driven.ItemTx over a loaded copy of the item.
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

// ==================== Helper Functions ====================

func getItem(ctx context.Context, q queryer, key domain.ItemKey) (*domain.TrackedItem, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE track_id = ? AND country = ?",
		key.TrackID, key.Country)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return item, err
}

func upsertItem(ctx context.Context, q queryer, item *domain.TrackedItem) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(track_id, country) DO UPDATE SET
			name = excluded.name,
			version = excluded.version,
			icon_url = excluded.icon_url,
			seller_name = excluded.seller_name,
			genre = excluded.genre,
			release_notes = excluded.release_notes,
			last_release_date = excluded.last_release_date,
			first_release_date = excluded.first_release_date,
			date_added = excluded.date_added,
			status = excluded.status,
			last_checked_at = excluded.last_checked_at,
			ban_date = excluded.ban_date,
			ownership = excluded.ownership
	`, item.Key.TrackID, item.Key.Country, item.Name, item.Version, item.IconURL,
		item.SellerName, item.Genre, item.ReleaseNotes,
		nullTime(item.LastReleaseDate), formatTimePtr(item.FirstReleaseDate),
		item.DateAdded.UTC().Format(timeLayout), string(item.Status),
		formatTimePtr(item.LastCheckedAt), formatTimePtr(item.BanDate), string(item.Ownership))
	return err
}

func insertTransition(ctx context.Context, q queryer, key domain.ItemKey, r domain.TransitionRecord) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO transitions (id, track_id, country, at, kind, old_value, new_value)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, key.TrackID, key.Country, r.At.UTC().Format(timeLayout),
		string(r.Kind), r.OldValue, r.NewValue)
	return err
}

// timeLayout is a fixed-width RFC 3339 layout so stored timestamps sort
// lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.TrackedItem, error) {
	var (
		item                         domain.TrackedItem
		status, ownership, dateAdded string
		lastRelease, firstRelease    sql.NullString
		lastChecked, banDate         sql.NullString
	)
	if err := row.Scan(&item.Key.TrackID, &item.Key.Country, &item.Name, &item.Version,
		&item.IconURL, &item.SellerName, &item.Genre, &item.ReleaseNotes,
		&lastRelease, &firstRelease, &dateAdded, &status,
		&lastChecked, &banDate, &ownership); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning item: %w", err)
	}

	item.Status = domain.Status(status)
	item.Ownership = domain.Ownership(ownership)
	item.DateAdded = parseTime(dateAdded)
	item.LastReleaseDate = parseNullableTime(lastRelease)
	item.FirstReleaseDate = parseTimePtr(firstRelease)
	item.LastCheckedAt = parseTimePtr(lastChecked)
	item.BanDate = parseTimePtr(banDate)
	return &item, nil
}

func rollback(tx *sql.Tx) error {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rolling back: %w", err)
	}
	return nil
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseNullableTime returns the zero time for NULL or unparsable values.
func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	return parseTime(s.String)
}

func parseTimePtr(s sql.NullString) *time.Time {
	t := parseNullableTime(s)
	if t.IsZero() {
		return nil
	}
	return &t
}
