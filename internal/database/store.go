// Package database stores user and document metadata in SQLite.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("database: not found")
	// ErrDuplicateEmail indicates a user with that email already exists.
	ErrDuplicateEmail = errors.New("database: email already exists")
)

// User is a registered document owner.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is stored document metadata plus its extracted text content.
type Document struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	OwnerID   int64     `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store wraps the metadata database.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the metadata database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("database: pragma failed: %w", err)
		}
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("database: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// CreateUser inserts a user and returns it with its assigned ID.
func (s *Store) CreateUser(ctx context.Context, name, email string) (*User, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (name, email) VALUES (?, ?)", name, email)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("database: create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("database: create user: %w", err)
	}
	return s.GetUser(ctx, id)
}

// GetUser returns the user with the given ID.
func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, created_at FROM users WHERE id = ?", id).
		Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database: get user: %w", err)
	}
	return &u, nil
}

// CreateDocument inserts a document for an existing owner.
func (s *Store) CreateDocument(ctx context.Context, title, content string, ownerID int64) (*Document, error) {
	if _, err := s.GetUser(ctx, ownerID); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO documents (title, content, owner_id) VALUES (?, ?, ?)",
		title, content, ownerID)
	if err != nil {
		return nil, fmt.Errorf("database: create document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("database: create document: %w", err)
	}
	return s.GetDocument(ctx, id)
}

// GetDocument returns the document with the given ID, content included.
func (s *Store) GetDocument(ctx context.Context, id int64) (*Document, error) {
	var d Document
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, content, owner_id, created_at FROM documents WHERE id = ?", id).
		Scan(&d.ID, &d.Title, &d.Content, &d.OwnerID, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database: get document: %w", err)
	}
	return &d, nil
}

// ListDocumentsByOwner returns the owner's documents, newest first, without
// content.
func (s *Store) ListDocumentsByOwner(ctx context.Context, ownerID int64) ([]Document, error) {
	if _, err := s.GetUser(ctx, ownerID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, owner_id, created_at FROM documents WHERE owner_id = ? ORDER BY created_at DESC, id DESC",
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("database: list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Title, &d.OwnerID, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
