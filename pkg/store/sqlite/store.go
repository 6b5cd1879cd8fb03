// Package sqlite is a single-file [store.Store] on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/matzehuels/fractal/pkg/store"
	"github.com/matzehuels/fractal/pkg/store/sqlite/migrations"
	"github.com/matzehuels/fractal/pkg/task"
)

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
}

// Store persists tasks and the outbox in one SQLite file.
type Store struct {
	db    *sql.DB
	clock store.Clock
}

// Open opens (creating if needed) the database at path and applies
// migrations. A nil clock uses the wall clock.
func Open(ctx context.Context, path string, clock store.Clock) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	db, err := sql.Open("sqlite", filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection serializes writers; SQLite allows only one anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", strings.ToLower(p), err)
		}
	}
	if err := applyMigrations(ctx, db, migrations.FS, "."); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, clock: clock}, nil
}

// Close releases the connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const taskColumns = `id, title, description, start_at, end_at, cycle, level, sector_index,
	status, priority, tags, important, archived, created_at, updated_at,
	calendar_event_id, last_synced_at`

const taskOrder = `ORDER BY start_at,
	CASE priority WHEN 'high' THEN 2 WHEN 'medium' THEN 1 ELSE 0 END DESC,
	id`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (task.Task, error) {
	var (
		t                                     task.Task
		start, end, created, updated, synced int64
		tags                                  string
		important, archived                   bool
	)
	if err := row.Scan(
		&t.ID, &t.Title, &t.Description, &start, &end, &t.Cycle, &t.Level, &t.SectorIndex,
		&t.Status, &t.Priority, &tags, &important, &archived, &created, &updated,
		&t.CalendarEventID, &synced,
	); err != nil {
		return task.Task{}, err
	}
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return task.Task{}, fmt.Errorf("decode tags of %s: %w", t.ID, err)
	}
	t.Important, t.Archived = important, archived
	t.Start, t.End = fromMillis(start), fromMillis(end)
	t.CreatedAt, t.UpdatedAt = fromMillis(created), fromMillis(updated)
	t.LastSyncedAt = fromMillis(synced)
	return t, nil
}

func taskArgs(t task.Task) ([]any, error) {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	return []any{
		t.ID, t.Title, t.Description, toMillis(t.Start), toMillis(t.End), string(t.Cycle), t.Level, t.SectorIndex,
		string(t.Status), string(t.Priority), string(encoded), t.Important, t.Archived,
		toMillis(t.CreatedAt), toMillis(t.UpdatedAt), t.CalendarEventID, toMillis(t.LastSyncedAt),
	}, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func getTask(ctx context.Context, tx *sql.Tx, id string) (task.Task, error) {
	t, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return task.Task{}, store.ErrNotFound
	}
	return t, err
}

func upsertTask(ctx context.Context, tx *sql.Tx, t task.Task) error {
	args, err := taskArgs(t)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO tasks (`+taskColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	return err
}

func enqueue(ctx context.Context, tx *sql.Tx, kind store.OpKind, t task.Task, now time.Time) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode outbox payload: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox (kind, task_id, payload, created_at) VALUES (?, ?, ?, ?)`,
		string(kind), t.ID, string(payload), toMillis(now))
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", kind, err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, t task.Task) (task.Task, error) {
	if err := ctx.Err(); err != nil {
		return task.Task{}, err
	}
	if err := t.Validate(); err != nil {
		return task.Task{}, err
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getTask(ctx, tx, t.ID); err == nil {
			return store.ErrConflict
		} else if !stderrors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := upsertTask(ctx, tx, t); err != nil {
			return err
		}
		return enqueue(ctx, tx, store.OpCreate, t, s.clock.Now())
	})
	if err != nil {
		return task.Task{}, fmt.Errorf("create %s: %w", t.ID, err)
	}
	return t, nil
}

func (s *Store) Get(ctx context.Context, id string) (task.Task, error) {
	if err := ctx.Err(); err != nil {
		return task.Task{}, err
	}
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return task.Task{}, fmt.Errorf("get %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return task.Task{}, fmt.Errorf("get %s: %w", id, err)
	}
	return t, nil
}

func (s *Store) Update(ctx context.Context, id string, p task.Patch) (task.Task, error) {
	if err := ctx.Err(); err != nil {
		return task.Task{}, err
	}
	var updated task.Task
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		t, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if t.Archived {
			return store.ErrNotFound
		}
		now := s.clock.Now()
		if updated, err = t.Apply(p, now); err != nil {
			return err
		}
		if err := upsertTask(ctx, tx, updated); err != nil {
			return err
		}
		return enqueue(ctx, tx, store.OpUpdate, updated, now)
	})
	if err != nil {
		return task.Task{}, fmt.Errorf("update %s: %w", id, err)
	}
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		t, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if t.Archived {
			return store.ErrNotFound
		}
		now := s.clock.Now()
		t = store.Archive(t, now)
		if err := upsertTask(ctx, tx, t); err != nil {
			return err
		}
		return enqueue(ctx, tx, store.OpDelete, t, now)
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

func (s *Store) List(ctx context.Context, f store.Filter) ([]task.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		where []string
		args  []any
	)
	if !f.IncludeArchived {
		where = append(where, "archived = 0")
	}
	if f.Cycle != "" {
		where = append(where, "cycle = ?")
		args = append(args, string(f.Cycle))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	tasks, err := s.queryTasks(ctx, query+" "+taskOrder, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *Store) ListBySector(ctx context.Context, k task.SectorKey) ([]task.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tasks, err := s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks
WHERE cycle = ? AND level = ? AND sector_index = ? AND archived = 0 `+taskOrder,
		string(k.Cycle), k.Level, k.SectorIndex)
	if err != nil {
		return nil, fmt.Errorf("list sector %s: %w", k, err)
	}
	return tasks, nil
}

func (s *Store) DeleteBySector(ctx context.Context, k task.SectorKey) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks
WHERE cycle = ? AND level = ? AND sector_index = ? AND archived = 0 `+taskOrder,
			string(k.Cycle), k.Level, k.SectorIndex)
		if err != nil {
			return err
		}
		var victims []task.Task
		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				rows.Close()
				return err
			}
			victims = append(victims, t)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		now := s.clock.Now()
		for _, t := range victims {
			t = store.Archive(t, now)
			if err := upsertTask(ctx, tx, t); err != nil {
				return err
			}
			if err := enqueue(ctx, tx, store.OpDelete, t, now); err != nil {
				return err
			}
		}
		n = len(victims)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("clear sector %s: %w", k, err)
	}
	return n, nil
}

func (s *Store) Put(ctx context.Context, t task.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return upsertTask(ctx, tx, t)
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", t.ID, err)
	}
	return nil
}

func (s *Store) PendingOps(ctx context.Context, limit int) ([]store.Op, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := store.CheckLimit(limit); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, kind, task_id, payload, tries, last_error, created_at
FROM outbox
ORDER BY id
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list outbox: %w", err)
	}
	defer rows.Close()

	ops := make([]store.Op, 0, limit)
	for rows.Next() {
		var (
			op      store.Op
			payload string
			created int64
		)
		if err := rows.Scan(&op.ID, &op.Kind, &op.TaskID, &payload, &op.Tries, &op.LastError, &created); err != nil {
			return nil, fmt.Errorf("scan outbox: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &op.Task); err != nil {
			return nil, fmt.Errorf("decode outbox payload %d: %w", op.ID, err)
		}
		op.CreatedAt = fromMillis(created)
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return ops, nil
}

func (s *Store) AckOp(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, id); err != nil {
		return fmt.Errorf("ack op %d: %w", id, err)
	}
	return nil
}

func (s *Store) FailOp(ctx context.Context, id int64, cause error) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	var dropped bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var tries int
		err := tx.QueryRowContext(ctx, `SELECT tries FROM outbox WHERE id = ?`, id).Scan(&tries)
		if stderrors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		tries++
		if tries >= store.MaxTries {
			dropped = true
			_, err = tx.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, id)
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE outbox SET tries = ?, last_error = ? WHERE id = ?`, tries, msg, id)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("fail op %d: %w", id, err)
	}
	return dropped, nil
}

func (s *Store) MarkSynced(ctx context.Context, taskID, eventID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET calendar_event_id = ?, last_synced_at = ? WHERE id = ?`,
		eventID, toMillis(at), taskID)
	if err != nil {
		return fmt.Errorf("mark synced %s: %w", taskID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("mark synced %s: %w", taskID, store.ErrNotFound)
	}
	return nil
}

var _ store.Store = (*Store)(nil)
