package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"autopost/internal/config"
)

// Store manages post table persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the post database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// InsertPost adds a new row and returns it as stored.
func (s *Store) InsertPost(ctx context.Context, post *Post) (*Post, error) {
	if post == nil {
		return nil, errors.New("post is nil")
	}
	if strings.TrimSpace(post.FolderID) == "" {
		return nil, errors.New("post folder id is required")
	}
	chunkIndex, chunkCount := post.ChunkIndex, post.ChunkCount
	if chunkIndex <= 0 {
		chunkIndex = 1
	}
	if chunkCount <= 0 {
		chunkCount = 1
	}
	timestamp := s.now().UTC().Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO posts (
            folder_id, folder_name, chunk_index, chunk_count, image_count, first_photo_date,
            work_name, scheduled_date, skip, caption, tags, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.FolderID,
		post.FolderName,
		chunkIndex,
		chunkCount,
		post.ImageCount,
		nullableTime(post.FirstPhotoDate),
		post.WorkName,
		nullableString(post.ScheduledDate),
		boolToInt(post.Skip),
		post.Caption,
		post.Tags,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.Get(ctx, id)
}

// FolderIDs returns the set of folder IDs already present in the table.
func (s *Store) FolderIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT folder_id FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("list folder ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan folder id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// Get fetches a post by identifier. A missing row returns nil, nil.
func (s *Store) Get(ctx context.Context, id int64) (*Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

// FindByFolder returns every row for a folder ordered by chunk.
func (s *Store) FindByFolder(ctx context.Context, folderID string) ([]*Post, error) {
	return s.query(ctx, `SELECT `+postColumns+` FROM posts WHERE folder_id = ? ORDER BY chunk_index`, folderID)
}

// List returns all rows ordered by identifier.
func (s *Store) List(ctx context.Context) ([]*Post, error) {
	return s.query(ctx, `SELECT `+postColumns+` FROM posts ORDER BY id`)
}

// PostsForDate returns rows scheduled on the given calendar day that are not
// skipped and still miss at least one platform.
func (s *Store) PostsForDate(ctx context.Context, date time.Time) ([]*Post, error) {
	return s.query(ctx,
		`SELECT `+postColumns+` FROM posts
         WHERE scheduled_date = ? AND skip = 0 AND NOT (instagram_posted = 1 AND x_posted = 1)
         ORDER BY id`,
		date.Format(DateLayout),
	)
}

// Published returns rows posted to at least one platform that carry a work name.
func (s *Store) Published(ctx context.Context) ([]*Post, error) {
	return s.query(ctx,
		`SELECT `+postColumns+` FROM posts
         WHERE (instagram_posted = 1 OR x_posted = 1) AND TRIM(work_name) <> ''
         ORDER BY id`,
	)
}

// MarkInstagramPosted records a successful Instagram publish.
func (s *Store) MarkInstagramPosted(ctx context.Context, id int64, postID string) error {
	return s.exec(ctx, "mark instagram posted",
		`UPDATE posts SET instagram_posted = 1, instagram_post_id = ?, updated_at = ? WHERE id = ?`,
		postID, s.timestamp(), id)
}

// MarkXPosted records a successful X publish.
func (s *Store) MarkXPosted(ctx context.Context, id int64, postID string) error {
	return s.exec(ctx, "mark x posted",
		`UPDATE posts SET x_posted = 1, x_post_id = ?, updated_at = ? WHERE id = ?`,
		postID, s.timestamp(), id)
}

// AppendError adds a timestamped entry to the row's error log.
func (s *Store) AppendError(ctx context.Context, id int64, message string) error {
	entry := FormatErrorEntry(s.now(), message)
	return s.exec(ctx, "append error",
		`UPDATE posts
         SET error_log = CASE WHEN error_log = '' THEN ? ELSE error_log || char(10) || ? END,
             updated_at = ?
         WHERE id = ?`,
		entry, entry, s.timestamp(), id)
}

// UpdateDetails applies operator edits to a row.
func (s *Store) UpdateDetails(ctx context.Context, id int64, details Details) error {
	var (
		sets []string
		args []any
	)
	if details.WorkName != nil {
		sets = append(sets, "work_name = ?")
		args = append(args, strings.TrimSpace(*details.WorkName))
	}
	if details.ScheduledDate != nil {
		value := strings.TrimSpace(*details.ScheduledDate)
		if value != "" {
			if _, err := time.Parse(DateLayout, value); err != nil {
				return fmt.Errorf("scheduled date %q: expected YYYY-MM-DD", value)
			}
		}
		sets = append(sets, "scheduled_date = ?")
		args = append(args, nullableString(value))
	}
	if details.Skip != nil {
		sets = append(sets, "skip = ?")
		args = append(args, boolToInt(*details.Skip))
	}
	if details.Caption != nil {
		sets = append(sets, "caption = ?")
		args = append(args, *details.Caption)
	}
	if details.Tags != nil {
		sets = append(sets, "tags = ?")
		args = append(args, strings.TrimSpace(*details.Tags))
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, s.timestamp(), id)
	return s.exec(ctx, "update details",
		`UPDATE posts SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
}

// Summarize aggregates row states.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	var sum Summary
	err := s.db.QueryRowContext(ctx, `SELECT
            COUNT(1),
            COALESCE(SUM(CASE WHEN scheduled_date IS NULL THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN skip = 1 THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN scheduled_date IS NOT NULL AND skip = 0
                AND NOT (instagram_posted = 1 AND x_posted = 1) THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN instagram_posted = 1 AND x_posted = 1 THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN error_log <> '' THEN 1 ELSE 0 END), 0)
        FROM posts`).Scan(&sum.Total, &sum.Unscheduled, &sum.Skipped, &sum.Pending, &sum.Posted, &sum.WithErrors)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize posts: %w", err)
	}
	return sum, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []*Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (s *Store) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrPostNotFound)
	}
	return nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// ErrPostNotFound is returned by updates targeting a missing row.
var ErrPostNotFound = errors.New("post not found")
