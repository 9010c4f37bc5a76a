package scene

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS scenes (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT    NOT NULL,
	room         INTEGER NOT NULL DEFAULT 0,
	device_id    INTEGER NOT NULL,
	scene_number INTEGER NOT NULL,
	trigger_type INTEGER NOT NULL,
	trigger_name TEXT    NOT NULL DEFAULT '',
	created_at   TEXT    NOT NULL,
	UNIQUE (device_id, scene_number, trigger_type)
);
CREATE INDEX IF NOT EXISTS idx_scenes_device ON scenes (device_id);
`

const sceneColumns = `id, name, room, device_id, scene_number, trigger_type, trigger_name, created_at`

// OpenSQLite opens (creating if needed) the scene database at path with WAL
// journaling and applies the schema.
func OpenSQLite(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create scene db directory: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open scene db: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping scene db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply scene schema: %w", err)
	}
	return db, nil
}

// SQLiteRegistry implements Registry on a SQLite database.
type SQLiteRegistry struct {
	db *sql.DB
}

// NewSQLiteRegistry wraps an open database prepared by OpenSQLite.
func NewSQLiteRegistry(db *sql.DB) *SQLiteRegistry {
	return &SQLiteRegistry{db: db}
}

func (r *SQLiteRegistry) Find(ctx context.Context, device, number int, trigger Trigger) (*Scene, error) {
	query := `SELECT ` + sceneColumns + ` FROM scenes WHERE device_id = ? AND scene_number = ?`
	args := []any{device, number}
	if trigger != TriggerAny {
		query += ` AND trigger_type = ?`
		args = append(args, int(trigger))
	}
	query += ` ORDER BY id LIMIT 1`

	s, err := scanScene(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSceneNotFound
		}
		return nil, fmt.Errorf("query scene: %w", err)
	}
	return s, nil
}

func (r *SQLiteRegistry) Create(ctx context.Context, s *Scene) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO scenes (name, room, device_id, scene_number, trigger_type, trigger_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (device_id, scene_number, trigger_type) DO NOTHING`,
		s.Name, s.Room, s.Device, s.Number, int(s.Trigger), s.TriggerName,
		s.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert scene: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert scene: %w", err)
	}
	if n == 0 {
		return ErrSceneExists
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("scene id: %w", err)
	}
	s.ID = id
	return nil
}

func (r *SQLiteRegistry) List(ctx context.Context) ([]Scene, error) {
	return r.query(ctx, `SELECT `+sceneColumns+` FROM scenes ORDER BY device_id, scene_number, trigger_type`)
}

func (r *SQLiteRegistry) ListByDevice(ctx context.Context, device int) ([]Scene, error) {
	return r.query(ctx, `SELECT `+sceneColumns+` FROM scenes WHERE device_id = ? ORDER BY scene_number, trigger_type`, device)
}

func (r *SQLiteRegistry) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scenes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete scene: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSceneNotFound
	}
	return nil
}

func (r *SQLiteRegistry) query(ctx context.Context, query string, args ...any) ([]Scene, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scenes: %w", err)
	}
	defer rows.Close()

	var out []Scene
	for rows.Next() {
		s, err := scanScene(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenes: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanScene(row scanner) (*Scene, error) {
	var (
		s       Scene
		trigger int
		created string
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Room, &s.Device, &s.Number, &trigger, &s.TriggerName, &created); err != nil {
		return nil, err
	}
	s.Trigger = Trigger(trigger)
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		s.CreatedAt = t
	}
	return &s, nil
}
