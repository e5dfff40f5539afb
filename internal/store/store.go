// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/recall/internal/deck"
	"github.com/verte-zerg/recall/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrDeckNotFound is returned when a named deck does not exist.
var ErrDeckNotFound = errors.New("store: deck not found")

// Store wraps SQLite access for decks, reviews, and session summaries.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS decks (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			imported_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS cards (
			id INTEGER PRIMARY KEY,
			deck_id INTEGER NOT NULL,
			key TEXT NOT NULL,
			meanings TEXT NOT NULL,
			position INTEGER NOT NULL,
			UNIQUE (deck_id, key)
		);`,
		`CREATE TABLE IF NOT EXISTS reviews (
			id INTEGER PRIMARY KEY,
			session_id TEXT NOT NULL,
			deck TEXT NOT NULL,
			card_key TEXT NOT NULL,
			correct INTEGER NOT NULL,
			reviewed_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			deck TEXT NOT NULL,
			correct INTEGER NOT NULL,
			incorrect INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_card_key ON reviews(deck, card_key);`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_session ON reviews(session_id);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ImportDeck creates or replaces the named deck with the given cards.
// Existing cards of the deck are removed; review history is kept.
func (s *Store) ImportDeck(ctx context.Context, name string, cards []deck.Card) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	now := time.Now().Format(time.RFC3339Nano)
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO decks (name, imported_at) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET imported_at = excluded.imported_at`,
		name, now); err != nil {
		return err
	}
	var deckID int64
	if err = tx.QueryRowContext(ctx, `SELECT id FROM decks WHERE name = ?`, name).Scan(&deckID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM cards WHERE deck_id = ?`, deckID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO cards (deck_id, key, meanings, position) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for i, card := range cards {
		if _, err = stmt.ExecContext(ctx, deckID, card.Key, joinMeanings(card.Meanings), i); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListDecks returns all decks with their card counts, ordered by name.
func (s *Store) ListDecks(ctx context.Context) ([]model.DeckInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.name, COUNT(c.id)
		 FROM decks d LEFT JOIN cards c ON c.deck_id = d.id
		 GROUP BY d.id ORDER BY d.name ASC`)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var decks []model.DeckInfo
	for rows.Next() {
		var info model.DeckInfo
		if err := rows.Scan(&info.Name, &info.Cards); err != nil {
			return nil, err
		}
		decks = append(decks, info)
	}
	return decks, rows.Err()
}

// FetchDue returns the deck's due cards as session items. Cards that were
// never reviewed come first as "new", cards whose latest review was incorrect
// follow as "relearning1", and previously correct cards close the batch as
// "learned". A limit <= 0 means no limit.
func (s *Store) FetchDue(ctx context.Context, deckName string, limit int) ([]*model.Item, error) {
	var deckID int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM decks WHERE name = ?`, deckName).Scan(&deckID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrDeckNotFound, deckName)
	}
	if err != nil {
		return nil, err
	}

	query := `SELECT c.key, c.meanings,
		(SELECT r.correct FROM reviews r
		 WHERE r.deck = ? AND r.card_key = c.key
		 ORDER BY r.reviewed_at DESC, r.id DESC LIMIT 1) AS last_correct
	FROM cards c
	WHERE c.deck_id = ?
	ORDER BY CASE WHEN last_correct IS NULL THEN 0 WHEN last_correct = 0 THEN 1 ELSE 2 END,
		c.position ASC`
	args := []any{deckName, deckID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var items []*model.Item
	for rows.Next() {
		var key, meanings string
		var lastCorrect sql.NullInt64
		if err := rows.Scan(&key, &meanings, &lastCorrect); err != nil {
			return nil, err
		}
		state := model.StateNew
		if lastCorrect.Valid {
			if lastCorrect.Int64 != 0 {
				state = model.StateLearned
			} else {
				state = model.StateRelearning1
			}
		}
		items = append(items, &model.Item{
			Key:      key,
			Meanings: splitMeanings(meanings),
			State:    state,
		})
	}
	return items, rows.Err()
}

// ReviewSession binds review recording and due fetching to one deck. It
// satisfies the queue engine's Recorder and Fetcher interfaces.
type ReviewSession struct {
	store *Store
	deck  string
	limit int
	id    string
}

// NewReviewSession creates a session-scoped recorder/fetcher for a deck.
func (s *Store) NewReviewSession(deckName string, limit int) *ReviewSession {
	return &ReviewSession{store: s, deck: deckName, limit: limit, id: uuid.NewString()}
}

// ID returns the current session identifier.
func (rs *ReviewSession) ID() string {
	return rs.id
}

// Deck returns the deck the session reviews.
func (rs *ReviewSession) Deck() string {
	return rs.deck
}

// FetchDue starts a new logical session: it rotates the session id and
// returns the deck's due batch.
func (rs *ReviewSession) FetchDue(ctx context.Context) ([]*model.Item, error) {
	rs.id = uuid.NewString()
	return rs.store.FetchDue(ctx, rs.deck, rs.limit)
}

// RecordReview persists one review outcome under the current session id.
func (rs *ReviewSession) RecordReview(ctx context.Context, key string, correct bool) error {
	_, err := rs.store.db.ExecContext(ctx,
		`INSERT INTO reviews (session_id, deck, card_key, correct, reviewed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rs.id, rs.deck, key, boolToInt(correct), time.Now().Format(time.RFC3339Nano))
	return err
}

// InsertSession stores a completed session summary.
func (s *Store) InsertSession(ctx context.Context, sum model.SessionSummary) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at, ended_at, deck, correct, incorrect, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sum.SessionID,
		sum.StartedAt.Format(time.RFC3339Nano),
		sum.EndedAt.Format(time.RFC3339Nano),
		sum.Deck,
		sum.Correct,
		sum.Incorrect,
		sum.DurationMs,
	)
	return err
}

// ListSessions returns session aggregates filtered by stats config.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Deck != "" {
		clauses = append(clauses, "deck = ?")
		args = append(args, cfg.Deck)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, ended_at, deck, correct, incorrect, duration_ms
		FROM sessions
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var sessions []model.SessionAggregate
	for rows.Next() {
		var agg model.SessionAggregate
		var endedAt string
		if err := rows.Scan(&agg.SessionID, &endedAt, &agg.Deck, &agg.Correct, &agg.Incorrect, &agg.DurationMs); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, err
		}
		agg.EndedAt = parsed
		sessions = append(sessions, agg)
	}
	return sessions, rows.Err()
}

// CardAggregatesForSessions aggregates per-card review outcomes across sessions.
func (s *Store) CardAggregatesForSessions(ctx context.Context, sessionIDs []string) ([]model.CardAggregate, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(sessionIDs))
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT card_key,
		SUM(correct) AS correct, SUM(1 - correct) AS incorrect
		FROM reviews
		WHERE session_id IN (%s)
		GROUP BY card_key`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var result []model.CardAggregate
	for rows.Next() {
		var agg model.CardAggregate
		if err := rows.Scan(&agg.Key, &agg.Correct, &agg.Incorrect); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	return result, rows.Err()
}

// CardStatsForSessions returns per-session outcomes for selected cards.
func (s *Store) CardStatsForSessions(ctx context.Context, sessionIDs, keys []string) (map[string]map[string]model.CardAggregate, error) {
	if len(sessionIDs) == 0 || len(keys) == 0 {
		return map[string]map[string]model.CardAggregate{}, nil
	}
	idPlaceholders := make([]string, len(sessionIDs))
	args := make([]any, 0, len(sessionIDs)+len(keys))
	for i, id := range sessionIDs {
		idPlaceholders[i] = "?"
		args = append(args, id)
	}
	keyPlaceholders := make([]string, len(keys))
	for i, key := range keys {
		keyPlaceholders[i] = "?"
		args = append(args, key)
	}

	query := fmt.Sprintf(`SELECT session_id, card_key,
		SUM(correct) AS correct, SUM(1 - correct) AS incorrect
		FROM reviews
		WHERE session_id IN (%s) AND card_key IN (%s)
		GROUP BY session_id, card_key`,
		strings.Join(idPlaceholders, ","), strings.Join(keyPlaceholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	result := map[string]map[string]model.CardAggregate{}
	for rows.Next() {
		var sessionID string
		var agg model.CardAggregate
		if err := rows.Scan(&sessionID, &agg.Key, &agg.Correct, &agg.Incorrect); err != nil {
			return nil, err
		}
		if _, ok := result[sessionID]; !ok {
			result[sessionID] = map[string]model.CardAggregate{}
		}
		result[sessionID][agg.Key] = agg
	}
	return result, rows.Err()
}

func closeRows(rows *sql.Rows) {
	if cerr := rows.Close(); cerr != nil {
		// Best-effort rows close.
		_ = cerr
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Meanings are stored ';'-joined; the deck parser strips ';' from individual
// meanings, so the join is unambiguous.

func joinMeanings(meanings []string) string {
	return strings.Join(meanings, ";")
}

func splitMeanings(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ";")
}
