package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var _ Store = (*SQLStore)(nil)

// SQLStore is the document-style alternative to RedisStore: every entity is
// a JSON column next to the columns it is looked up or ordered by.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore opens (or creates) the SQLite database at path and applies
// migrations.
func NewSQLStore(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// A single connection serialises writers and keeps ":memory:" databases
	// shared across calls.
	db.SetMaxOpenConns(1)

	version, err := migrateSchema(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Debug("Database migrated", "path", path, "version", version)

	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) ClearAllData(ctx context.Context) error {
	tables := []string{"editor", "reporters", "articles", "newspaper_editions", "daily_editions", "events", "ads", "users", "job_status"}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// Editor

func (s *SQLStore) GetEditor(ctx context.Context) (*Editor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM editor`)
	if err != nil {
		return nil, fmt.Errorf("failed to get editor: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan editor row: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating editor rows: %w", err)
	}

	editor := &Editor{
		Bio:                            values["bio"],
		Prompt:                         values["prompt"],
		ModelName:                      values["modelName"],
		MessageSliceCount:              atoiOrZero(values["messageSliceCount"]),
		ArticleGenerationPeriodMinutes: atoiOrZero(values[periodField(GenerationArticle)]),
		EventGenerationPeriodMinutes:   atoiOrZero(values[periodField(GenerationEvent)]),
		EditionGenerationPeriodMinutes: atoiOrZero(values[periodField(GenerationEdition)]),
		DailyGenerationPeriodMinutes:   atoiOrZero(values[periodField(GenerationDaily)]),
	}
	for _, kind := range GenerationKinds {
		if t := parseMillis(values[lastGenerationField(kind)]); t != nil {
			editor.SetLastGeneration(kind, *t)
		}
	}
	editor.ApplyDefaults()

	return editor, nil
}

func (s *SQLStore) SaveEditor(ctx context.Context, editor *Editor) error {
	fields := map[string]string{
		"bio":               editor.Bio,
		"prompt":            editor.Prompt,
		"modelName":         editor.ModelName,
		"messageSliceCount": strconv.Itoa(editor.MessageSliceCount),
	}
	for _, kind := range GenerationKinds {
		fields[periodField(kind)] = strconv.Itoa(editor.Period(kind))
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for key, value := range fields {
			if err := upsertEditorField(ctx, tx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) SetLastGeneration(ctx context.Context, kind GenerationKind, t time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return upsertEditorField(ctx, tx, lastGenerationField(kind), strconv.FormatInt(t.UnixMilli(), 10))
	})
}

func upsertEditorField(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO editor (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to save editor field %s: %w", key, err)
	}
	return nil
}

func periodField(kind GenerationKind) string {
	return strings.ToLower(string(kind)) + "GenerationPeriodMinutes"
}

func lastGenerationField(kind GenerationKind) string {
	return "last" + string(kind) + "GenerationTime"
}

// Reporters

func (s *SQLStore) ListReporters(ctx context.Context) ([]Reporter, error) {
	return queryDocuments[Reporter](ctx, s.db, `SELECT data FROM reporters ORDER BY created_at, id`)
}

func (s *SQLStore) GetReporter(ctx context.Context, id string) (*Reporter, error) {
	return getDocument[Reporter](ctx, s.db, `SELECT data FROM reporters WHERE id = ?`, id)
}

func (s *SQLStore) SaveReporter(ctx context.Context, reporter *Reporter) error {
	return s.saveDocument(ctx, `
		INSERT INTO reporters (id, created_at, data) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data
	`, reporter, reporter.ID, reporter.CreatedAt.UnixMilli())
}

func (s *SQLStore) DeleteReporter(ctx context.Context, id string) error {
	return s.deleteDocument(ctx, `DELETE FROM reporters WHERE id = ?`, id)
}

// Articles

func (s *SQLStore) SaveArticle(ctx context.Context, article *Article) error {
	return s.saveDocument(ctx, `
		INSERT INTO articles (id, reporter_id, generation_time, data) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data
	`, article, article.ID, article.ReporterID, article.GenerationTime.UnixMilli())
}

func (s *SQLStore) GetArticle(ctx context.Context, id string) (*Article, error) {
	return getDocument[Article](ctx, s.db, `SELECT data FROM articles WHERE id = ?`, id)
}

func (s *SQLStore) GetArticles(ctx context.Context, ids []string) ([]Article, error) {
	if len(ids) == 0 {
		return []Article{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	found, err := queryDocuments[Article](ctx, s.db, `SELECT data FROM articles WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Article, len(found))
	for _, article := range found {
		byID[article.ID] = article
	}

	articles := make([]Article, 0, len(found))
	for _, id := range ids {
		if article, ok := byID[id]; ok {
			articles = append(articles, article)
		}
	}
	return articles, nil
}

func (s *SQLStore) RecentArticles(ctx context.Context, reporterID string, limit int) ([]Article, error) {
	return queryDocuments[Article](ctx, s.db, `
		SELECT data FROM articles WHERE reporter_id = ?
		ORDER BY generation_time DESC, id DESC LIMIT ?
	`, reporterID, sqlLimit(limit))
}

func (s *SQLStore) ArticlesInRange(ctx context.Context, reporterID string, start, end time.Time) ([]Article, error) {
	return queryDocuments[Article](ctx, s.db, `
		SELECT data FROM articles
		WHERE reporter_id = ? AND generation_time >= ? AND generation_time <= ?
		ORDER BY generation_time, id
	`, reporterID, start.UnixMilli(), end.UnixMilli())
}

// Editions

func (s *SQLStore) SaveEdition(ctx context.Context, edition *NewspaperEdition) error {
	return s.saveDocument(ctx, `
		INSERT INTO newspaper_editions (id, generation_time, data) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data
	`, edition, edition.ID, edition.GenerationTime.UnixMilli())
}

func (s *SQLStore) GetEdition(ctx context.Context, id string) (*NewspaperEdition, error) {
	return getDocument[NewspaperEdition](ctx, s.db, `SELECT data FROM newspaper_editions WHERE id = ?`, id)
}

func (s *SQLStore) RecentEditions(ctx context.Context, limit int) ([]NewspaperEdition, error) {
	return queryDocuments[NewspaperEdition](ctx, s.db, `
		SELECT data FROM newspaper_editions ORDER BY generation_time DESC, id DESC LIMIT ?
	`, sqlLimit(limit))
}

func (s *SQLStore) EditionsInRange(ctx context.Context, start, end time.Time) ([]NewspaperEdition, error) {
	return queryDocuments[NewspaperEdition](ctx, s.db, `
		SELECT data FROM newspaper_editions
		WHERE generation_time >= ? AND generation_time <= ?
		ORDER BY generation_time, id
	`, start.UnixMilli(), end.UnixMilli())
}

func (s *SQLStore) SaveDailyEdition(ctx context.Context, edition *DailyEdition) error {
	return s.saveDocument(ctx, `
		INSERT INTO daily_editions (id, generation_time, data) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data
	`, edition, edition.ID, edition.GenerationTime.UnixMilli())
}

func (s *SQLStore) GetDailyEdition(ctx context.Context, id string) (*DailyEdition, error) {
	return getDocument[DailyEdition](ctx, s.db, `SELECT data FROM daily_editions WHERE id = ?`, id)
}

func (s *SQLStore) RecentDailyEditions(ctx context.Context, limit int) ([]DailyEdition, error) {
	return queryDocuments[DailyEdition](ctx, s.db, `
		SELECT data FROM daily_editions ORDER BY generation_time DESC, id DESC LIMIT ?
	`, sqlLimit(limit))
}

// Events

func (s *SQLStore) SaveEvent(ctx context.Context, event *Event) error {
	return s.saveDocument(ctx, `
		INSERT INTO events (id, generation_time, data) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data
	`, event, event.ID, event.GenerationTime.UnixMilli())
}

func (s *SQLStore) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	return queryDocuments[Event](ctx, s.db, `
		SELECT data FROM events ORDER BY generation_time DESC, id DESC LIMIT ?
	`, sqlLimit(limit))
}

func (s *SQLStore) EventsInRange(ctx context.Context, start, end time.Time) ([]Event, error) {
	return queryDocuments[Event](ctx, s.db, `
		SELECT data FROM events
		WHERE generation_time >= ? AND generation_time <= ?
		ORDER BY generation_time, id
	`, start.UnixMilli(), end.UnixMilli())
}

// Ads

func (s *SQLStore) ListAds(ctx context.Context) ([]AdEntry, error) {
	return queryDocuments[AdEntry](ctx, s.db, `SELECT data FROM ads ORDER BY created_at DESC, id DESC`)
}

func (s *SQLStore) GetAd(ctx context.Context, id string) (*AdEntry, error) {
	return getDocument[AdEntry](ctx, s.db, `SELECT data FROM ads WHERE id = ?`, id)
}

func (s *SQLStore) SaveAd(ctx context.Context, ad *AdEntry) error {
	return s.saveDocument(ctx, `
		INSERT INTO ads (id, created_at, data) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET created_at = excluded.created_at, data = excluded.data
	`, ad, ad.ID, ad.CreatedAt.UnixMilli())
}

func (s *SQLStore) DeleteAd(ctx context.Context, id string) error {
	return s.deleteDocument(ctx, `DELETE FROM ads WHERE id = ?`, id)
}

func (s *SQLStore) MostRecentAd(ctx context.Context) (*AdEntry, error) {
	return getDocument[AdEntry](ctx, s.db, `SELECT data FROM ads ORDER BY created_at DESC, id DESC LIMIT 1`)
}

// Users

func (s *SQLStore) ListUsers(ctx context.Context) ([]User, error) {
	records, err := queryDocuments[userRecord](ctx, s.db, `SELECT data FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(records))
	for _, record := range records {
		users = append(users, record.toUser())
	}
	return users, nil
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (*User, error) {
	record, err := getDocument[userRecord](ctx, s.db, `SELECT data FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	user := record.toUser()
	return &user, nil
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	record, err := getDocument[userRecord](ctx, s.db, `SELECT data FROM users WHERE email = ?`, strings.ToLower(email))
	if err != nil {
		return nil, err
	}
	user := record.toUser()
	return &user, nil
}

func (s *SQLStore) SaveUser(ctx context.Context, user *User) error {
	return s.saveDocument(ctx, `
		INSERT INTO users (id, email, created_at, data) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET email = excluded.email, data = excluded.data
	`, userRecord{User: *user, PasswordHash: user.PasswordHash}, user.ID, strings.ToLower(user.Email), user.CreatedAt.UnixMilli())
}

func (s *SQLStore) CreateUser(ctx context.Context, user *User, firstRole Role) error {
	email := strings.ToLower(user.Email)
	role := user.Role

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var taken int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = ?`, email).Scan(&taken); err != nil {
			return err
		}
		if taken > 0 {
			return fmt.Errorf("email %s: %w", user.Email, ErrConflict)
		}

		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
			return err
		}
		user.Role = role
		if count == 0 {
			user.Role = firstRole
		}

		data, err := json.Marshal(userRecord{User: *user, PasswordHash: user.PasswordHash})
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO users (id, email, created_at, data) VALUES (?, ?, ?, ?)
		`, user.ID, email, user.CreatedAt.UnixMilli(), string(data))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.ID, err)
	}
	return nil
}

// Jobs

func (s *SQLStore) GetJobStatus(ctx context.Context, name string) (*JobStatus, error) {
	var running bool
	var lastRun, lastSuccess sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
		SELECT running, last_run, last_success FROM job_status WHERE name = ?
	`, name).Scan(&running, &lastRun, &lastSuccess)

	status := &JobStatus{Name: name}
	if errors.Is(err, sql.ErrNoRows) {
		return status, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job status %s: %w", name, err)
	}

	status.Running = running
	status.LastRun = nullMillis(lastRun)
	status.LastSuccess = nullMillis(lastSuccess)
	return status, nil
}

func (s *SQLStore) ClaimJob(ctx context.Context, name string, now time.Time, lease time.Duration) (bool, error) {
	claimed := false

	query := `UPDATE job_status SET running = 1, last_run = ? WHERE name = ? AND running = 0`
	args := []any{now.UnixMilli(), name}
	if lease > 0 {
		query = `
			UPDATE job_status SET running = 1, last_run = ?
			WHERE name = ? AND (running = 0 OR last_run IS NULL OR last_run <= ?)
		`
		args = append(args, now.Add(-lease).UnixMilli())
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO job_status (name, running) VALUES (?, 0)`, name); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		claimed = affected == 1
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to claim job %s: %w", name, err)
	}

	return claimed, nil
}

func (s *SQLStore) FinishJob(ctx context.Context, name string, success bool, now time.Time) error {
	query := `UPDATE job_status SET running = 0 WHERE name = ?`
	args := []any{name}
	if success {
		query = `UPDATE job_status SET running = 0, last_success = ? WHERE name = ?`
		args = []any{now.UnixMilli(), name}
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to finish job %s: %w", name, err)
	}
	return nil
}

// helpers

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// saveDocument encodes value as JSON and appends it as the last query
// argument.
func (s *SQLStore) saveDocument(ctx context.Context, query string, value any, args ...any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, append(args, string(data))...); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

func (s *SQLStore) deleteDocument(ctx context.Context, query string, id string) error {
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func getDocument[T any](ctx context.Context, db *sql.DB, query string, args ...any) (*T, error) {
	var data string
	err := db.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	var item T
	if err := json.Unmarshal([]byte(data), &item); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return &item, nil
}

func queryDocuments[T any](ctx context.Context, db *sql.DB, query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		var item T
		if err := json.Unmarshal([]byte(data), &item); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}

	return items, nil
}

// sqlLimit maps "no limit" to SQLite's -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func nullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid || v.Int64 <= 0 {
		return nil
	}
	t := time.UnixMilli(v.Int64)
	return &t
}
