package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/socialclone/server/internal/domain"
)

// Repository implements domain.PostRepository using PostgreSQL.
type Repository struct {
	db *sql.DB
}

// welcomePosts seed the table on first startup so the UI has something to
// show. Init only inserts them when the table is empty.
var welcomePosts = []struct {
	content string
	author  string
}{
	{"Welcome to SocialClone!", "system"},
	{"This is a demo DevOps project with monitoring", "admin"},
	{"Slack and Jira integrations are active!", "devops"},
}

// NewRepository connects to PostgreSQL at the given URL, verifies the
// connection, and returns a new Repository. The caller should call Close
// when the repository is no longer needed.
func NewRepository(databaseURL string) (*Repository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Init provisions the posts table and seeds the welcome posts when the table
// is empty. Safe to run on every startup.
func (r *Repository) Init(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS posts (
			id SERIAL PRIMARY KEY,
			content TEXT NOT NULL,
			author VARCHAR(100) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("create posts table: %w", err)
	}

	count, err := r.CountPosts(ctx)
	if err != nil {
		return fmt.Errorf("count posts: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, p := range welcomePosts {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO posts (content, author) VALUES ($1, $2)`,
			p.content, p.author,
		); err != nil {
			return fmt.Errorf("seed welcome post: %w", err)
		}
	}
	return nil
}

// CreatePost inserts a post and returns the full record with the
// store-assigned id and timestamp.
func (r *Repository) CreatePost(ctx context.Context, content, author string) (*domain.Post, error) {
	if content == "" || author == "" {
		return nil, &domain.ValidationError{Msg: "content and author required"}
	}

	var post domain.Post
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO posts (content, author, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, content, author, created_at`,
		content, author,
	).Scan(&post.ID, &post.Content, &post.Author, &post.CreatedAt)
	if err != nil {
		return nil, &domain.StorageError{Op: "insert post", Err: err}
	}
	return &post, nil
}

// ListRecent retrieves up to limit posts ordered by created_at descending.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, content, author, created_at
		FROM posts
		ORDER BY created_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, &domain.StorageError{Op: "query posts", Err: err}
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var p domain.Post
		if err := rows.Scan(&p.ID, &p.Content, &p.Author, &p.CreatedAt); err != nil {
			return nil, &domain.StorageError{Op: "scan post", Err: err}
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "iterate posts", Err: err}
	}
	return posts, nil
}

// CountPosts returns the total number of stored posts.
func (r *Repository) CountPosts(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&count)
	if err != nil {
		return 0, &domain.StorageError{Op: "count posts", Err: err}
	}
	return count, nil
}

// Ready reports whether the database is reachable.
func (r *Repository) Ready(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return &domain.StorageError{Op: "ping", Err: err}
	}
	return nil
}
