package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Kamar-Folarin/docsync/internal/errors"
	"github.com/Kamar-Folarin/docsync/internal/models"
)

const syncJobColumns = `id, folder_path, home_dir, total_files, processed_files, skipped_files,
	progress_percent, status, last_synced_at, task_id, source_files, last_error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateSyncJob inserts a new job record, assigning an id and timestamps when missing
func (s *SQLStore) CreateSyncJob(ctx context.Context, job *models.SyncJob) error {
	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	if job.SourceFiles == nil {
		job.SourceFiles = []string{}
	}

	sourceFiles, err := json.Marshal(job.SourceFiles)
	if err != nil {
		return fmt.Errorf("failed to marshal source files: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO sync_jobs (`+syncJobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		job.ID, job.FolderPath, job.HomeDir,
		job.TotalFiles, job.ProcessedFiles, job.SkippedFiles, job.ProgressPercent,
		string(job.Status), nullTime(job.LastSyncedAt), nullString(job.TaskID),
		string(sourceFiles), job.Error, job.CreatedAt.UTC(), job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sync job: %w", err)
	}

	return nil
}

// GetSyncJob retrieves a job by id
func (s *SQLStore) GetSyncJob(ctx context.Context, id string) (*models.SyncJob, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+syncJobColumns+` FROM sync_jobs WHERE id = ?`), id)

	job, err := scanSyncJob(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewResourceNotFoundError("sync job", id)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get sync job: %w", err)
	}

	return job, nil
}

// FindSyncJobs lists jobs matching filter, newest first
func (s *SQLStore) FindSyncJobs(ctx context.Context, filter JobFilter) ([]*models.SyncJob, error) {
	where, args := filter.where()
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+syncJobColumns+` FROM sync_jobs`+where+`
		ORDER BY created_at DESC, id DESC
	`), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync jobs: %w", err)
	}
	defer rows.Close()

	return scanSyncJobs(rows)
}

// UpdateSyncJob applies a partial update in one statement. It returns false when the
// job does not exist or a guard (OnlyIf, monotonic progress) rejected the write.
func (s *SQLStore) UpdateSyncJob(ctx context.Context, id string, upd JobUpdate) (bool, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	var conds []string
	var condArgs []any

	if upd.TaskID != nil {
		sets = append(sets, "task_id = ?")
		args = append(args, nullString(*upd.TaskID))
	}

	status := upd.Status
	if snap := upd.Snapshot; snap != nil {
		sourceFiles := snap.SourceFiles
		if sourceFiles == nil {
			sourceFiles = []string{}
		}
		encoded, err := json.Marshal(sourceFiles)
		if err != nil {
			return false, fmt.Errorf("failed to marshal source files: %w", err)
		}

		sets = append(sets,
			"total_files = ?", "processed_files = ?", "skipped_files = ?",
			"progress_percent = ?", "source_files = ?")
		args = append(args,
			snap.TotalFiles, snap.ProcessedFiles, snap.SkippedFiles,
			snap.ProgressPercent, string(encoded))

		if !snap.LastSyncedAt.IsZero() {
			sets = append(sets, "last_synced_at = ?")
			args = append(args, snap.LastSyncedAt.UTC())
		}
		if snap.Error != "" && upd.Error == nil {
			sets = append(sets, "last_error = ?")
			args = append(args, snap.Error)
		}
		if status == nil && snap.Status != "" {
			st := snap.Status
			status = &st
		}

		conds = append(conds, "progress_percent <= ?")
		condArgs = append(condArgs, snap.ProgressPercent)
	}

	if status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*status))
	}
	if upd.Error != nil {
		sets = append(sets, "last_error = ?")
		args = append(args, *upd.Error)
	}

	if len(upd.OnlyIf) > 0 {
		conds = append(conds, "status IN ("+placeholders(len(upd.OnlyIf))+")")
		for _, st := range upd.OnlyIf {
			condArgs = append(condArgs, string(st))
		}
	}

	query := "UPDATE sync_jobs SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, id)
	for _, c := range conds {
		query += " AND " + c
	}
	args = append(args, condArgs...)

	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return false, fmt.Errorf("failed to update sync job: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return n > 0, nil
}

// LatestCompletedPerFolder returns the most recent COMPLETE job of every folder,
// ordered by last_synced_at descending
func (s *SQLStore) LatestCompletedPerFolder(ctx context.Context) ([]*models.SyncJob, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+syncJobColumns+` FROM (
			SELECT *, ROW_NUMBER() OVER (
				PARTITION BY folder_path
				ORDER BY last_synced_at DESC, created_at DESC, id DESC
			) AS rn
			FROM sync_jobs
			WHERE status = ?
		) latest
		WHERE rn = 1
		ORDER BY last_synced_at DESC, created_at DESC
	`), string(models.JobStatusComplete))
	if err != nil {
		return nil, fmt.Errorf("failed to query synced folders: %w", err)
	}
	defer rows.Close()

	return scanSyncJobs(rows)
}

// DeleteSyncJobs removes jobs matching filter. An empty filter removes every job.
func (s *SQLStore) DeleteSyncJobs(ctx context.Context, filter JobFilter) (int64, error) {
	where, args := filter.where()
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM sync_jobs`+where), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sync jobs: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

func (f JobFilter) where() (string, []any) {
	var conds []string
	var args []any

	if f.FolderPath != nil {
		conds = append(conds, "folder_path = ?")
		args = append(args, *f.FolderPath)
	}
	if f.HomeDir != nil {
		conds = append(conds, "home_dir = ?")
		args = append(args, *f.HomeDir)
	}
	if f.TaskID != "" {
		conds = append(conds, "task_id = ?")
		args = append(args, f.TaskID)
	}
	if len(f.Statuses) > 0 {
		conds = append(conds, "status IN ("+placeholders(len(f.Statuses))+")")
		for _, st := range f.Statuses {
			args = append(args, string(st))
		}
	}
	if f.CreatedBefore != nil {
		conds = append(conds, "created_at < ?")
		args = append(args, f.CreatedBefore.UTC())
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanSyncJobs(rows *sql.Rows) ([]*models.SyncJob, error) {
	jobs := []*models.SyncJob{}
	for rows.Next() {
		job, err := scanSyncJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync jobs: %w", err)
	}

	return jobs, nil
}

func scanSyncJob(row rowScanner) (*models.SyncJob, error) {
	var (
		job          models.SyncJob
		status       string
		lastSyncedAt sql.NullTime
		taskID       sql.NullString
		sourceFiles  string
	)

	err := row.Scan(
		&job.ID, &job.FolderPath, &job.HomeDir,
		&job.TotalFiles, &job.ProcessedFiles, &job.SkippedFiles, &job.ProgressPercent,
		&status, &lastSyncedAt, &taskID, &sourceFiles, &job.Error,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Status = models.JobStatus(status)
	job.TaskID = taskID.String
	if lastSyncedAt.Valid {
		t := lastSyncedAt.Time.UTC()
		job.LastSyncedAt = &t
	}
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()

	job.SourceFiles = []string{}
	if sourceFiles != "" {
		if err := json.Unmarshal([]byte(sourceFiles), &job.SourceFiles); err != nil {
			return nil, fmt.Errorf("failed to unmarshal source files: %w", err)
		}
	}

	return &job, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
