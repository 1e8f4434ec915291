// Package queue provides the durable record queue backing offline capture.
//
// The queue is the sole source of truth for captured records and their sync
// status. Every mutation is a single SQLite statement, so concurrent readers
// never observe a half-written record.
package queue

import (
	"database/sql"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kimhsiao/fieldlog/internal/apperr"
	"github.com/kimhsiao/fieldlog/internal/logging"
	"github.com/kimhsiao/fieldlog/internal/models"

	"github.com/sirupsen/logrus"
)

// validate checks capture payloads before they enter the queue.
var validate = validator.New()

// Queue persists captured records and offers status-filtered retrieval.
// Statements are prepared on first use and cached for reuse.
type Queue struct {
	db *sql.DB

	stmtCache sync.Map // map[string]*sql.Stmt
}

// New creates a Queue over an open database handle.
func New(db *sql.DB) *Queue {
	return &Queue{db: db}
}

// prepareStmt gets or creates a prepared statement from cache.
func (q *Queue) prepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := q.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := q.db.Prepare(query)
	if err != nil {
		return nil, err
	}

	// Store in cache (if already stored by another goroutine, use existing)
	actual, loaded := q.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}

	return stmt, nil
}

// Close closes all cached prepared statements.
func (q *Queue) Close() error {
	var firstErr error
	q.stmtCache.Range(func(key, value interface{}) bool {
		stmt := value.(*sql.Stmt)
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

// Enqueue validates the payload and inserts a new pending record. The
// assigned id is returned; ids are monotone and never reused (AUTOINCREMENT).
func (q *Queue) Enqueue(payload models.Payload) (int64, error) {
	if err := validate.Struct(payload); err != nil {
		return 0, apperr.Wrap(apperr.ErrValidation, "invalid capture payload", err)
	}

	query := `
	INSERT INTO records (title, description, category, value, memo, created_at, sync_status)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	stmt, err := q.prepareStmt(query)
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrStorage, "failed to prepare insert", err)
	}

	result, err := stmt.Exec(
		payload.Title, nullString(payload.Description), string(payload.Category),
		nullFloat(payload.Value), nullString(payload.Memo),
		time.Now().Unix(), string(models.SyncStatusPending),
	)
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrStorage, "failed to insert record", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrStorage, "failed to read assigned id", err)
	}

	logging.Debug("record enqueued", logrus.Fields{"id": id, "category": payload.Category})

	return id, nil
}

const recordColumns = `id, title, description, category, value, memo, created_at, sync_status, server_id, last_error`

// Get retrieves a record by id.
func (q *Queue) Get(id int64) (*models.Record, error) {
	stmt, err := q.prepareStmt(`SELECT ` + recordColumns + ` FROM records WHERE id = ?`)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStorage, "failed to prepare select", err)
	}

	record, err := scanRecord(stmt.QueryRow(id))
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.ErrNotFound, "record not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStorage, "failed to read record", err)
	}
	return record, nil
}

// ListAll returns a snapshot of every stored record, newest first.
func (q *Queue) ListAll() ([]*models.Record, error) {
	return q.list(`SELECT `+recordColumns+` FROM records ORDER BY created_at DESC, id DESC`)
}

// ListByStatus returns a snapshot of records with the given sync status,
// oldest first so a sync run replays captures in submission order.
func (q *Queue) ListByStatus(status models.SyncStatus) ([]*models.Record, error) {
	return q.list(`SELECT `+recordColumns+` FROM records WHERE sync_status = ? ORDER BY id`, string(status))
}

func (q *Queue) list(query string, args ...interface{}) ([]*models.Record, error) {
	stmt, err := q.prepareStmt(query)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStorage, "failed to prepare list", err)
	}

	rows, err := stmt.Query(args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStorage, "failed to list records", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrStorage, "failed to scan record", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.ErrStorage, "failed to iterate records", err)
	}
	return records, nil
}

// Patch describes a partial update of a record's sync bookkeeping. Nil fields
// are left untouched; an empty LastError clears the stored failure reason.
// Payload fields and created_at are immutable and cannot be patched.
type Patch struct {
	SyncStatus *models.SyncStatus
	ServerID   *int64
	LastError  *string
}

// Patch merges the given fields into the record identified by id as a single
// atomic UPDATE. Returns NOT_FOUND when no record has that id.
func (q *Queue) Patch(id int64, patch Patch) error {
	var (
		set  []byte
		args []interface{}
	)

	appendSet := func(clause string, arg interface{}) {
		if len(set) > 0 {
			set = append(set, ", "...)
		}
		set = append(set, clause...)
		if arg != nil {
			args = append(args, arg)
		}
	}

	if patch.SyncStatus != nil {
		appendSet("sync_status = ?", string(*patch.SyncStatus))
	}
	if patch.ServerID != nil {
		appendSet("server_id = ?", *patch.ServerID)
	}
	if patch.LastError != nil {
		if *patch.LastError == "" {
			appendSet("last_error = NULL", nil)
		} else {
			appendSet("last_error = ?", *patch.LastError)
		}
	}

	if len(set) == 0 {
		return apperr.New(apperr.ErrValidation, "empty patch")
	}

	args = append(args, id)
	result, err := q.db.Exec(`UPDATE records SET `+string(set)+` WHERE id = ?`, args...)
	if err != nil {
		return apperr.Wrap(apperr.ErrStorage, "failed to patch record", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.ErrStorage, "failed to read patch result", err)
	}
	if rows == 0 {
		return apperr.New(apperr.ErrNotFound, "record not found")
	}
	return nil
}

// Clear removes all records. Maintenance use only; it is not reachable from
// the sync path.
func (q *Queue) Clear() error {
	if _, err := q.db.Exec(`DELETE FROM records`); err != nil {
		return apperr.Wrap(apperr.ErrStorage, "failed to clear records", err)
	}
	logging.Warn("record queue cleared")
	return nil
}

// CountByStatus returns record counts keyed by sync status, plus a total.
func (q *Queue) CountByStatus() (map[string]int, error) {
	stats := map[string]int{
		"total":   0,
		"pending": 0,
		"synced":  0,
		"error":   0,
	}

	rows, err := q.db.Query(`SELECT sync_status, COUNT(*) FROM records GROUP BY sync_status`)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStorage, "failed to count records", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, apperr.Wrap(apperr.ErrStorage, "failed to scan counts", err)
		}
		stats[status] = count
		stats["total"] += count
	}
	return stats, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows for scanRecord.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*models.Record, error) {
	var record models.Record
	var description, memo, lastError sql.NullString
	var value sql.NullFloat64
	var serverID sql.NullInt64

	err := s.Scan(
		&record.ID, &record.Title, &description, &record.Category, &value,
		&memo, &record.CreatedAt, &record.SyncStatus, &serverID, &lastError,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		record.Description = description.String
	}
	if memo.Valid {
		record.Memo = memo.String
	}
	if value.Valid {
		v := value.Float64
		record.Value = &v
	}
	if serverID.Valid {
		id := serverID.Int64
		record.ServerID = &id
	}
	if lastError.Valid {
		record.LastError = lastError.String
	}
	return &record, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
