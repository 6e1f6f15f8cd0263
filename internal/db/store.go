package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/Kamar-Folarin/docsync/internal/models"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

// Dialect names the SQL backend behind a SQLStore
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// JobFilter narrows FindSyncJobs and DeleteSyncJobs. The zero value matches every job.
type JobFilter struct {
	FolderPath    *string
	HomeDir       *string
	TaskID        string
	Statuses      []models.JobStatus
	CreatedBefore *time.Time
}

// JobUpdate is a partial, single-statement update of one sync job.
// OnlyIf restricts the update to rows currently in one of the listed statuses.
type JobUpdate struct {
	TaskID   *string
	Status   *models.JobStatus
	Snapshot *models.Snapshot
	Error    *string
	OnlyIf   []models.JobStatus
}

// Store defines the interface for job status persistence
type Store interface {
	CreateSyncJob(ctx context.Context, job *models.SyncJob) error
	GetSyncJob(ctx context.Context, id string) (*models.SyncJob, error)
	FindSyncJobs(ctx context.Context, filter JobFilter) ([]*models.SyncJob, error)
	// UpdateSyncJob applies upd atomically and reports whether a row changed.
	UpdateSyncJob(ctx context.Context, id string, upd JobUpdate) (bool, error)
	LatestCompletedPerFolder(ctx context.Context) ([]*models.SyncJob, error)
	DeleteSyncJobs(ctx context.Context, filter JobFilter) (int64, error)
	Ping(ctx context.Context) error
}

// SQLStore implements Store on database/sql for both postgres and sqlite
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the job status database for the given driver name
func Open(driver, dsn string) (*SQLStore, error) {
	switch Dialect(driver) {
	case DialectPostgres:
		return NewPostgresStore(dsn)
	case DialectSQLite:
		return NewSQLiteStore(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func NewPostgresStore(connectionString string) (*SQLStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLStore{db: db, dialect: DialectPostgres}, nil
}

// NewSQLiteStore opens (and creates) a SQLite database file in WAL mode
func NewSQLiteStore(path string) (*SQLStore, error) {
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	return &SQLStore{db: db, dialect: DialectSQLite}, nil
}

// OpenSQLite opens a SQLite file with per-connection pragmas. The content store shares it.
func OpenSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path
	if !strings.Contains(dsn, "_pragma") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Migrate applies the embedded goose migrations for the store's dialect
func (s *SQLStore) Migrate() error {
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	gooseDialect := "postgres"
	if s.dialect == DialectSQLite {
		gooseDialect = "sqlite3"
	}
	if err := goose.SetDialect(gooseDialect); err != nil {
		return err
	}

	if err := goose.Up(s.db, "migrations/"+string(s.dialect)); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders into $n for postgres
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
