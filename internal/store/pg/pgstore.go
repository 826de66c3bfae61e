// Package pg is the PostgreSQL persistence layer for seat accounting, queued jobs
// and the message store.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"rostergate.org/internal/content"
	"rostergate.org/internal/queue"
	"rostergate.org/internal/seat"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("pg: not found")

type Store struct {
	db *sql.DB
}

var (
	_ seat.Store          = (*Store)(nil)
	_ queue.PendingLister = (*Store)(nil)
)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// SeatConfig returns the enforcement settings for an account, or nil when the
// account has none.
func (s *Store) SeatConfig(ctx context.Context, accountID string) (*seat.Config, error) {
	var cfg seat.Config
	err := s.db.QueryRowContext(ctx,
		`select enabled, seat_limit from seat_configs where account_id=$1`, accountID,
	).Scan(&cfg.Enabled, &cfg.Limit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LatestSeatSnapshot returns the most recent count for an account, or nil.
func (s *Store) LatestSeatSnapshot(ctx context.Context, accountID string) (*seat.Snapshot, error) {
	var snap seat.Snapshot
	err := s.db.QueryRowContext(ctx, `
		select used, seat_limit, is_over_limit, checked_at
		from seat_snapshots
		where account_id=$1
		order by checked_at desc
		limit 1
	`, accountID).Scan(&snap.Used, &snap.Limit, &snap.IsOverLimit, &snap.CheckedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snap.CheckedAt = snap.CheckedAt.UTC()
	return &snap, nil
}

func (s *Store) SaveSeatSnapshot(ctx context.Context, accountID, snapshotID string, snap seat.Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		insert into seat_snapshots(id, account_id, used, seat_limit, is_over_limit, checked_at)
		values ($1,$2,$3,$4,$5,$6)
	`, snapshotID, accountID, snap.Used, snap.Limit, snap.IsOverLimit, snap.CheckedAt)
	return err
}

func (s *Store) ActiveSeats(ctx context.Context, accountID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`select count(*) from seats where account_id=$1 and active`, accountID,
	).Scan(&n)
	return n, err
}

func (s *Store) ListEnforcedAccounts(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`select account_id from seat_configs where enabled order by account_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListPending returns the scheduling timestamps of pending jobs in a category.
func (s *Store) ListPending(ctx context.Context, category string) ([]queue.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		select run_after, updated_at
		from jobs
		where category=$1 and status='pending'
	`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []queue.Record
	for rows.Next() {
		var r queue.Record
		if err := rows.Scan(&r.RunAfter, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetMessage returns a stored message, or nil when unknown or deleted.
func (s *Store) GetMessage(ctx context.Context, id string) (*content.Message, error) {
	var (
		m        content.Message
		username sql.NullString
		icon     sql.NullString
		atts     []byte
	)
	err := s.db.QueryRowContext(ctx, `
		select id, community_id, channel_id, author_id, author_username, author_icon,
		       content, attachments, updated_at
		from messages
		where id=$1 and not deleted
	`, id).Scan(&m.ID, &m.CommunityID, &m.ChannelID, &m.AuthorID, &username, &icon,
		&m.Content, &atts, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if username.Valid {
		m.AuthorUsername = &username.String
	}
	if icon.Valid {
		m.AuthorIcon = &icon.String
	}
	if len(atts) > 0 {
		if err := json.Unmarshal(atts, &m.Attachments); err != nil {
			return nil, fmt.Errorf("decode attachments: %w", err)
		}
	}
	m.UpdatedAt = m.UpdatedAt.UTC()
	return &m, nil
}

// UpsertMessage stores a message, reviving it if it was previously deleted. A row
// with a newer updated_at is left untouched.
func (s *Store) UpsertMessage(ctx context.Context, m content.Message) error {
	atts := m.Attachments
	if atts == nil {
		atts = []content.Attachment{}
	}
	raw, err := json.Marshal(atts)
	if err != nil {
		return fmt.Errorf("encode attachments: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		insert into messages(id, community_id, channel_id, author_id, author_username, author_icon,
		                     content, attachments, deleted, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,false,$9)
		on conflict (id) do update set
			community_id = excluded.community_id,
			channel_id = excluded.channel_id,
			author_id = excluded.author_id,
			author_username = excluded.author_username,
			author_icon = excluded.author_icon,
			content = excluded.content,
			attachments = excluded.attachments,
			deleted = false,
			updated_at = excluded.updated_at
		where messages.updated_at <= excluded.updated_at
	`, m.ID, m.CommunityID, m.ChannelID, m.AuthorID, nullString(m.AuthorUsername), nullString(m.AuthorIcon),
		m.Content, raw, m.UpdatedAt)
	return err
}

// DeleteMessage marks a message deleted. Unknown ids return ErrNotFound.
func (s *Store) DeleteMessage(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update messages set deleted = true, updated_at = $2 where id=$1`, id, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
