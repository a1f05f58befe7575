package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

// Frame is one indexed video frame.
type Frame struct {
	Dataset string
	Split   string
	ClipID  string
	Time    string
	Path    string
	Target  int
}

// Index is a sqlite table of frames keyed by (dataset, split, clip, time).
type Index struct {
	db *sql.DB
}

const framesSchema = `
CREATE TABLE IF NOT EXISTS frames (
	dataset  TEXT NOT NULL,
	split    TEXT NOT NULL,
	clip_id  TEXT NOT NULL,
	time     TEXT NOT NULL,
	time_sec REAL NOT NULL DEFAULT 0,
	path     TEXT NOT NULL,
	target   INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (dataset, split, clip_id, time)
)`

// OpenIndex opens (and if needed creates) the index database at path.
func OpenIndex(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping index: %w", err)
	}
	stmts := []string{
		framesSchema,
		"CREATE INDEX IF NOT EXISTS idx_frames_split ON frames(dataset, split)",
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize index schema: %w", err)
		}
	}
	return &Index{db: db}, nil
}

// Close closes the database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Upsert inserts frames, replacing path and target of existing rows.
func (ix *Index) Upsert(ctx context.Context, frames []Frame) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO frames (dataset, split, clip_id, time, time_sec, path, target)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dataset, split, clip_id, time) DO UPDATE SET
			time_sec = excluded.time_sec,
			path = excluded.path,
			target = excluded.target`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range frames {
		if _, err := stmt.ExecContext(ctx, f.Dataset, f.Split, f.ClipID, f.Time, timeSeconds(f.Time), f.Path, f.Target); err != nil {
			return fmt.Errorf("failed to index %s: %w", f.Path, err)
		}
	}
	return tx.Commit()
}

// Frames returns the frames of one split ordered by clip and time.
func (ix *Index) Frames(ctx context.Context, dataset, split string) ([]Frame, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT dataset, split, clip_id, time, path, target
		FROM frames
		WHERE dataset = ? AND split = ?
		ORDER BY clip_id, time_sec, time`, dataset, split)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Frame
	for rows.Next() {
		var f Frame
		if err := rows.Scan(&f.Dataset, &f.Split, &f.ClipID, &f.Time, &f.Path, &f.Target); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// HasDataset reports whether any frame was indexed under dataset.
func (ix *Index) HasDataset(ctx context.Context, dataset string) (bool, error) {
	var cnt int
	err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM frames WHERE dataset = ?`, dataset).Scan(&cnt)
	return cnt > 0, err
}

// Build scans root and upserts every frame found. It returns the number of frames.
func (ix *Index) Build(ctx context.Context, dataset, root string) (int, error) {
	frames, err := Scan(dataset, root)
	if err != nil {
		return 0, err
	}
	if err := ix.Upsert(ctx, frames); err != nil {
		return 0, err
	}
	return len(frames), nil
}

var frameExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true}

// Scan lists frames laid out as root/<split>/<clip>/<time>.<ext>. Files at any
// other depth are ignored.
func Scan(dataset, root string) ([]Frame, error) {
	root = filepath.Clean(root)
	var frames []Frame
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !frameExts[ext] {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 3 {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		frames = append(frames, Frame{
			Dataset: dataset,
			Split:   parts[0],
			ClipID:  parts[1],
			Time:    strings.TrimSuffix(parts[2], filepath.Ext(parts[2])),
			Path:    abs,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return frames, nil
}

func timeSeconds(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
