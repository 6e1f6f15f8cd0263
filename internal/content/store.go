package content

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Kamar-Folarin/docsync/internal/db"
)

const searchLimit = 50

// Chunk is one piece of an ingested file
type Chunk struct {
	SourceFile string
	Index      int
	Title      string
	Body       string
}

// Document is a stored chunk
type Document struct {
	ID         int64     `json:"id"`
	SourceFile string    `json:"source_file"`
	ChunkIndex int       `json:"chunk_index"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store is the searchable content store ingested files are written to
type Store interface {
	Write(ctx context.Context, chunks []Chunk) (int, error)
	DeleteBySource(ctx context.Context, sourceFiles []string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	Search(ctx context.Context, query string) ([]Document, error)
	CountBySource(ctx context.Context, sourceFile string) (int, error)
}

// SQLiteStore keeps documents in a single SQLite table
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the content database at path and creates its schema
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	conn, err := db.OpenSQLite(path)
	if err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: conn}
	if err := s.init(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_file TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_documents_source ON documents (source_file)`)
	if err != nil {
		return fmt.Errorf("failed to create documents index: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Write stores chunks in one transaction and returns how many were written. Chunks
// already stored for the same source files are replaced.
func (s *SQLiteStore) Write(ctx context.Context, chunks []Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	replaced := make(map[string]struct{})
	for _, c := range chunks {
		if _, ok := replaced[c.SourceFile]; ok {
			continue
		}
		replaced[c.SourceFile] = struct{}{}
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE source_file = ?`, c.SourceFile); err != nil {
			return 0, fmt.Errorf("failed to replace chunks of %s: %w", c.SourceFile, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO documents (source_file, chunk_index, title, body, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.SourceFile, c.Index, c.Title, c.Body, now); err != nil {
			return 0, fmt.Errorf("failed to write chunk %d of %s: %w", c.Index, c.SourceFile, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit chunks: %w", err)
	}
	return len(chunks), nil
}

// DeleteBySource removes every chunk derived from the given files
func (s *SQLiteStore) DeleteBySource(ctx context.Context, sourceFiles []string) (int64, error) {
	if len(sourceFiles) == 0 {
		return 0, nil
	}

	args := make([]any, len(sourceFiles))
	for i, f := range sourceFiles {
		args[i] = f
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(sourceFiles)), ", ")

	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE source_file IN (`+marks+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete documents: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete documents: %w", err)
	}
	return res.RowsAffected()
}

// Search does a case-insensitive substring match over titles and bodies
func (s *SQLiteStore) Search(ctx context.Context, query string) ([]Document, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_file, chunk_index, title, body, created_at FROM documents
		WHERE LOWER(title) LIKE ? OR LOWER(body) LIKE ?
		ORDER BY created_at DESC, id DESC LIMIT ?`,
		pattern, pattern, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.SourceFile, &d.ChunkIndex, &d.Title, &d.Body, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) CountBySource(ctx context.Context, sourceFile string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE source_file = ?`, sourceFile).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}
