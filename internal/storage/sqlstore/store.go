package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vishnusrinivas00/queuectl/internal/clock"
	"github.com/vishnusrinivas00/queuectl/internal/domain"
	"github.com/vishnusrinivas00/queuectl/internal/policy"
)

// maxErrorLen bounds the stored last_error text.
const maxErrorLen = 500

// Store implements the job lifecycle's persistence contract: atomic
// claim, state transitions, and the read-side queries the admin API
// needs.
type Store struct {
	db     *sql.DB
	driver string
	clock  clock.Clock
}

func newStore(db *sql.DB, driver string, c clock.Clock) *Store {
	return &Store{db: db, driver: driver, clock: c}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites a query written with "?" placeholders into the
// dialect s.driver expects. SQLite accepts "?" directly; pgx requires
// "$1", "$2", ... positional placeholders.
func (s *Store) rebind(query string) string {
	if s.driver != "pgx" {
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

func (s *Store) exec(ctx context.Context, tx *sql.Tx, query string, args ...any) (sql.Result, error) {
	q := s.rebind(query)
	if tx != nil {
		return tx.ExecContext(ctx, q, args...)
	}
	return s.db.ExecContext(ctx, q, args...)
}

func (s *Store) queryRow(ctx context.Context, tx *sql.Tx, query string, args ...any) *sql.Row {
	q := s.rebind(query)
	if tx != nil {
		return tx.QueryRowContext(ctx, q, args...)
	}
	return s.db.QueryRowContext(ctx, q, args...)
}

func (s *Store) query(ctx context.Context, tx *sql.Tx, query string, args ...any) (*sql.Rows, error) {
	q := s.rebind(query)
	if tx != nil {
		return tx.QueryContext(ctx, q, args...)
	}
	return s.db.QueryContext(ctx, q, args...)
}

// beginExclusive starts a write transaction. sql.LevelSerializable asks
// the SQLite driver to take its write lock up front (the equivalent of
// "BEGIN IMMEDIATE"), which is what makes claim_next_job's select+update
// pair atomic across concurrent workers: the loser blocks on the busy
// timeout configured in the DSN and, if it exceeds it, surfaces as
// ErrStorageUnavailable.
func (s *Store) beginExclusive(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		if isBusyOrTimeout(err) {
			return nil, domain.ErrStorageUnavailable
		}
		return nil, err
	}
	return tx, nil
}

func isBusyOrTimeout(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "busy") ||
		strings.Contains(msg, "locked") ||
		errors.Is(err, context.DeadlineExceeded)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// seedDefaults inserts backoff_base and default_max_retries only if
// absent, making Open idempotent: running it twice is equivalent to
// running it once.
func (s *Store) seedDefaults(ctx context.Context) error {
	defaults := map[string]string{
		domain.ConfigBackoffBase:       domain.DefaultBackoffBase,
		domain.ConfigDefaultMaxRetries: domain.DefaultMaxRetriesValue,
	}
	for k, v := range defaults {
		_, err := s.exec(ctx, nil,
			`INSERT INTO config_entries (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO NOTHING`, k, v)
		if err != nil {
			return fmt.Errorf("seed config %s: %w", k, err)
		}
	}
	return nil
}

// Enqueue inserts a new pending job. If spec.MaxRetries is nil, the
// default_max_retries config value is used.
func (s *Store) Enqueue(ctx context.Context, spec domain.JobSpec) (*domain.Job, error) {
	if spec.ID == "" || spec.Command == "" {
		return nil, fmt.Errorf("%w: id and command are required", domain.ErrInvalidInput)
	}

	maxRetries := spec.MaxRetries
	if maxRetries == nil {
		raw, ok, err := s.GetConfig(ctx, domain.ConfigDefaultMaxRetries)
		if err != nil {
			return nil, err
		}
		n := 3
		if ok {
			if parsed, perr := strconv.Atoi(raw); perr == nil {
				n = parsed
			}
		}
		maxRetries = &n
	}

	now := s.clock.Now()
	nowStr := domain.FormatTime(now)

	// id is unique across both jobs and dead_letter_jobs: the jobs
	// table's primary key alone would not catch a collision with a
	// retired dead-letter entry.
	var dlqExists int
	if err := s.queryRow(ctx, nil, `SELECT COUNT(1) FROM dead_letter_jobs WHERE id = ?`, spec.ID).Scan(&dlqExists); err != nil {
		return nil, fmt.Errorf("enqueue dlq check: %w", err)
	}
	if dlqExists > 0 {
		return nil, domain.ErrDuplicateID
	}

	_, err := s.exec(ctx, nil,
		`INSERT INTO jobs (id, command, state, attempts, max_retries, created_at, updated_at, next_attempt_at, last_error)
		 VALUES (?, ?, ?, 0, ?, ?, ?, NULL, NULL)`,
		spec.ID, spec.Command, string(domain.JobPending), *maxRetries, nowStr, nowStr)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateID
		}
		return nil, fmt.Errorf("enqueue: %w", err)
	}

	return &domain.Job{
		ID:         spec.ID,
		Command:    spec.Command,
		State:      domain.JobPending,
		Attempts:   0,
		MaxRetries: *maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// ClaimNextJob atomically claims the oldest eligible job: pending, or
// failed with next_attempt_at due. Returns (nil, nil) when no job is
// eligible. The select+update pair runs inside one exclusive write
// transaction so two concurrent callers can never both win the same
// row. workerID identifies the caller for the worker's own logging; the
// schema has no per-job owner column, so it is not persisted.
func (s *Store) ClaimNextJob(ctx context.Context, workerID int) (*domain.Job, error) {
	_ = workerID
	tx, err := s.beginExclusive(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := domain.FormatTime(s.clock.Now())

	row := s.queryRow(ctx, tx,
		`SELECT id, command, state, attempts, max_retries, created_at, updated_at, next_attempt_at, last_error
		 FROM jobs
		 WHERE state = ?
		    OR (state = ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?))
		 ORDER BY created_at ASC, id ASC
		 LIMIT 1`,
		string(domain.JobPending), string(domain.JobFailed), now)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		if cerr := tx.Commit(); cerr != nil {
			return nil, cerr
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim select: %w", err)
	}

	if _, err := s.exec(ctx, tx,
		`UPDATE jobs SET state = ?, updated_at = ? WHERE id = ?`,
		string(domain.JobProcessing), now, job.ID); err != nil {
		return nil, fmt.Errorf("claim update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isBusyOrTimeout(err) {
			return nil, domain.ErrStorageUnavailable
		}
		return nil, fmt.Errorf("claim commit: %w", err)
	}

	job.State = domain.JobProcessing
	return job, nil
}

func scanJob(row *sql.Row) (*domain.Job, error) {
	var (
		j             domain.Job
		state         string
		createdAt     string
		updatedAt     string
		nextAttemptAt sql.NullString
		lastError     sql.NullString
	)

	if err := row.Scan(&j.ID, &j.Command, &state, &j.Attempts, &j.MaxRetries,
		&createdAt, &updatedAt, &nextAttemptAt, &lastError); err != nil {
		return nil, err
	}

	j.State = domain.JobState(state)

	ca, err := domain.ParseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	j.CreatedAt = ca

	ua, err := domain.ParseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	j.UpdatedAt = ua

	if nextAttemptAt.Valid {
		t, err := domain.ParseTime(nextAttemptAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse next_attempt_at: %w", err)
		}
		j.NextAttemptAt = &t
	}
	if lastError.Valid {
		v := lastError.String
		j.LastError = &v
	}

	return &j, nil
}

// UpdateJobSuccess marks a processing job completed. Terminal: the job
// never transitions again.
func (s *Store) UpdateJobSuccess(ctx context.Context, id string) error {
	now := domain.FormatTime(s.clock.Now())
	res, err := s.exec(ctx, nil,
		`UPDATE jobs SET state = ?, updated_at = ? WHERE id = ? AND state = ?`,
		string(domain.JobCompleted), now, id, string(domain.JobProcessing))
	if err != nil {
		return fmt.Errorf("update job success: %w", err)
	}
	return requireRowAffected(res, id)
}

func requireRowAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: job %s", domain.ErrNotFound, id)
	}
	return nil
}

// UpdateJobFailure increments attempts by one and either reschedules
// the job with exponential backoff or, once max_retries is exceeded,
// retires it to the dead-letter table with attempts = max_retries + 1.
// Returns "failed" or "dead".
func (s *Store) UpdateJobFailure(ctx context.Context, id string, currentAttempts, maxRetries, backoffBase int, errMsg string) (string, error) {
	newAttempts := currentAttempts + 1
	truncated := truncate(errMsg, maxErrorLen)
	now := s.clock.Now()
	nowStr := domain.FormatTime(now)

	if policy.IsExhausted(newAttempts, maxRetries) {
		tx, err := s.beginExclusive(ctx)
		if err != nil {
			return "", err
		}
		defer tx.Rollback()

		row := s.queryRow(ctx, tx, `SELECT command FROM jobs WHERE id = ?`, id)
		var command string
		if err := row.Scan(&command); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", fmt.Errorf("%w: job %s", domain.ErrNotFound, id)
			}
			return "", err
		}

		if _, err := s.exec(ctx, tx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
			return "", fmt.Errorf("dead-letter delete job: %w", err)
		}

		if _, err := s.exec(ctx, tx,
			`INSERT INTO dead_letter_jobs (id, command, attempts, max_retries, failed_at, last_error)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, command, newAttempts, maxRetries, nowStr, truncated); err != nil {
			return "", fmt.Errorf("dead-letter insert: %w", err)
		}

		if err := tx.Commit(); err != nil {
			if isBusyOrTimeout(err) {
				return "", domain.ErrStorageUnavailable
			}
			return "", fmt.Errorf("dead-letter commit: %w", err)
		}
		return "dead", nil
	}

	nextAttemptAt := policy.NextAttemptAt(newAttempts, backoffBase, now)
	res, err := s.exec(ctx, nil,
		`UPDATE jobs SET state = ?, attempts = ?, next_attempt_at = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		string(domain.JobFailed), newAttempts, domain.FormatTime(nextAttemptAt), truncated, nowStr, id)
	if err != nil {
		return "", fmt.Errorf("update job failure: %w", err)
	}
	if err := requireRowAffected(res, id); err != nil {
		return "", err
	}
	return "failed", nil
}

// ListJobs returns all jobs, optionally filtered by state, ordered by
// created_at ascending.
func (s *Store) ListJobs(ctx context.Context, state *domain.JobState) ([]domain.Job, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if state != nil {
		rows, err = s.query(ctx, nil,
			`SELECT id, command, state, attempts, max_retries, created_at, updated_at, next_attempt_at, last_error
			 FROM jobs WHERE state = ? ORDER BY created_at ASC`, string(*state))
	} else {
		rows, err = s.query(ctx, nil,
			`SELECT id, command, state, attempts, max_retries, created_at, updated_at, next_attempt_at, last_error
			 FROM jobs ORDER BY created_at ASC`)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		j, err := scanJobRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func scanJobRows(rows *sql.Rows) (*domain.Job, error) {
	var (
		j             domain.Job
		state         string
		createdAt     string
		updatedAt     string
		nextAttemptAt sql.NullString
		lastError     sql.NullString
	)
	if err := rows.Scan(&j.ID, &j.Command, &state, &j.Attempts, &j.MaxRetries,
		&createdAt, &updatedAt, &nextAttemptAt, &lastError); err != nil {
		return nil, err
	}
	j.State = domain.JobState(state)
	ca, err := domain.ParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	j.CreatedAt = ca
	ua, err := domain.ParseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	j.UpdatedAt = ua
	if nextAttemptAt.Valid {
		t, err := domain.ParseTime(nextAttemptAt.String)
		if err != nil {
			return nil, err
		}
		j.NextAttemptAt = &t
	}
	if lastError.Valid {
		v := lastError.String
		j.LastError = &v
	}
	return &j, nil
}

// DLQList returns dead-letter entries ordered by failed_at descending.
func (s *Store) DLQList(ctx context.Context) ([]domain.DeadLetterEntry, error) {
	rows, err := s.query(ctx, nil,
		`SELECT id, command, attempts, max_retries, failed_at, last_error
		 FROM dead_letter_jobs ORDER BY failed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("dlq list: %w", err)
	}
	defer rows.Close()

	var out []domain.DeadLetterEntry
	for rows.Next() {
		var (
			e         domain.DeadLetterEntry
			failedAt  string
			lastError sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Command, &e.Attempts, &e.MaxRetries, &failedAt, &lastError); err != nil {
			return nil, err
		}
		fa, err := domain.ParseTime(failedAt)
		if err != nil {
			return nil, err
		}
		e.FailedAt = fa
		if lastError.Valid {
			v := lastError.String
			e.LastError = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DLQRetry removes id from the dead-letter table and re-inserts it into
// jobs as a fresh pending job: attempts reset to 0, next_attempt_at and
// last_error cleared.
func (s *Store) DLQRetry(ctx context.Context, id string) (*domain.Job, error) {
	tx, err := s.beginExclusive(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := s.queryRow(ctx, tx, `SELECT command, max_retries FROM dead_letter_jobs WHERE id = ?`, id)
	var command string
	var maxRetries int
	if err := row.Scan(&command, &maxRetries); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if _, err := s.exec(ctx, tx, `DELETE FROM dead_letter_jobs WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("dlq retry delete: %w", err)
	}

	now := s.clock.Now()
	nowStr := domain.FormatTime(now)
	if _, err := s.exec(ctx, tx,
		`INSERT INTO jobs (id, command, state, attempts, max_retries, created_at, updated_at, next_attempt_at, last_error)
		 VALUES (?, ?, ?, 0, ?, ?, ?, NULL, NULL)`,
		id, command, string(domain.JobPending), maxRetries, nowStr, nowStr); err != nil {
		return nil, fmt.Errorf("dlq retry insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isBusyOrTimeout(err) {
			return nil, domain.ErrStorageUnavailable
		}
		return nil, fmt.Errorf("dlq retry commit: %w", err)
	}

	return &domain.Job{
		ID:         id,
		Command:    command,
		State:      domain.JobPending,
		MaxRetries: maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Status returns aggregate counts across job states, dead-letter
// entries, and registered workers.
func (s *Store) Status(ctx context.Context) (domain.Status, error) {
	var st domain.Status

	rows, err := s.query(ctx, nil, `SELECT state, COUNT(1) FROM jobs GROUP BY state`)
	if err != nil {
		return st, fmt.Errorf("status jobs: %w", err)
	}
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			rows.Close()
			return st, err
		}
		switch domain.JobState(state) {
		case domain.JobPending:
			st.Pending = n
		case domain.JobProcessing:
			st.Processing = n
		case domain.JobCompleted:
			st.Completed = n
		case domain.JobFailed:
			st.Failed = n
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return st, err
	}
	rows.Close()

	if err := s.queryRow(ctx, nil, `SELECT COUNT(1) FROM dead_letter_jobs`).Scan(&st.Dead); err != nil {
		return st, fmt.Errorf("status dlq: %w", err)
	}
	if err := s.queryRow(ctx, nil, `SELECT COUNT(1) FROM workers`).Scan(&st.Workers); err != nil {
		return st, fmt.Errorf("status workers: %w", err)
	}

	return st, nil
}

// GetConfig returns the value for key and whether it was present.
func (s *Store) GetConfig(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.queryRow(ctx, nil, `SELECT value FROM config_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get config %s: %w", key, err)
	}
	return value, true, nil
}

// SetConfig upserts key/value, last-writer-wins.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.exec(ctx, nil,
		`INSERT INTO config_entries (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set config %s: %w", key, err)
	}
	return nil
}

// WorkersRegister upserts a worker row on startup.
func (s *Store) WorkersRegister(ctx context.Context, workerID int) error {
	now := domain.FormatTime(s.clock.Now())
	_, err := s.exec(ctx, nil,
		`INSERT INTO workers (worker_id, started_at, last_heartbeat) VALUES (?, ?, ?)
		 ON CONFLICT(worker_id) DO UPDATE SET started_at = excluded.started_at, last_heartbeat = excluded.last_heartbeat`,
		workerID, now, now)
	if err != nil {
		return fmt.Errorf("register worker %d: %w", workerID, err)
	}
	return nil
}

// WorkersHeartbeat updates last_heartbeat for an already-registered
// worker.
func (s *Store) WorkersHeartbeat(ctx context.Context, workerID int) error {
	now := domain.FormatTime(s.clock.Now())
	_, err := s.exec(ctx, nil,
		`UPDATE workers SET last_heartbeat = ? WHERE worker_id = ?`, now, workerID)
	if err != nil {
		return fmt.Errorf("heartbeat worker %d: %w", workerID, err)
	}
	return nil
}

// ReclaimOrphans resets processing jobs whose updated_at is older than
// threshold back to pending, so a crashed worker's claim is eventually
// reclaimed. Orphan reclamation runs as an optional background pass
// (see internal/queue.Reconciler), not left unrecoverable.
func (s *Store) ReclaimOrphans(ctx context.Context, threshold time.Duration) (int, error) {
	cutoff := domain.FormatTime(s.clock.Now().Add(-threshold))
	res, err := s.exec(ctx, nil,
		`UPDATE jobs SET state = ?, updated_at = ? WHERE state = ? AND updated_at < ?`,
		string(domain.JobPending), domain.FormatTime(s.clock.Now()), string(domain.JobProcessing), cutoff)
	if err != nil {
		return 0, fmt.Errorf("reclaim orphans: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
