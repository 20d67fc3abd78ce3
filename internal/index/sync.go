package index

import (
	"fmt"
	"time"

	"github.com/tensorview/tensorview/internal/format"
	"github.com/tensorview/tensorview/internal/model"
)

// FileRow is one indexed checkpoint file.
type FileRow struct {
	Path        string
	Format      string
	TensorCount int
	TotalSize   int64
	Parameters  int64
	IndexedAt   time.Time
}

// TensorRow is one indexed tensor.
type TensorRow struct {
	FilePath    string
	Name        string
	DType       string
	Shape       string
	SizeBytes   int64
	NumElements int64
}

// SyncFile replaces the inventory rows for one file in a single
// transaction. Re-indexing an already-known path is an upsert.
func (db *DB) SyncFile(path string, fileFormat model.Format, tensors []model.TensorInfo) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // No-op after commit.
	}()

	var totalSize, parameters int64
	for _, t := range tensors {
		totalSize += t.SizeBytes
		parameters += t.NumElements
	}

	if _, err := tx.Exec(`
		INSERT INTO files (path, format, tensor_count, total_size, parameters, indexed_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET
			format = excluded.format,
			tensor_count = excluded.tensor_count,
			total_size = excluded.total_size,
			parameters = excluded.parameters,
			indexed_at = CURRENT_TIMESTAMP`,
		path, fileFormat.String(), len(tensors), totalSize, parameters); err != nil {
		return fmt.Errorf("index: upsert file: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM tensors WHERE file_path = ?`, path); err != nil {
		return fmt.Errorf("index: clear tensors: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO tensors (file_path, name, dtype, shape, size_bytes, num_elements)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tensors {
		if _, err := stmt.Exec(path, t.Name, t.DType, format.Shape(t.Shape), t.SizeBytes, t.NumElements); err != nil {
			return fmt.Errorf("index: insert tensor %s: %w", t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit: %w", err)
	}
	return nil
}

// Files lists every indexed file, newest first.
func (db *DB) Files() ([]FileRow, error) {
	rows, err := db.conn.Query(`
		SELECT path, format, tensor_count, total_size, parameters, indexed_at
		FROM files ORDER BY indexed_at DESC, path`)
	if err != nil {
		return nil, fmt.Errorf("index: list files: %w", err)
	}
	defer rows.Close()

	var out []FileRow
	for rows.Next() {
		var f FileRow
		if err := rows.Scan(&f.Path, &f.Format, &f.TensorCount, &f.TotalSize, &f.Parameters, &f.IndexedAt); err != nil {
			return nil, fmt.Errorf("index: scan file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// SearchTensors finds tensors whose name contains query, across every
// indexed file.
func (db *DB) SearchTensors(query string, limit int) ([]TensorRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.conn.Query(`
		SELECT file_path, name, dtype, shape, size_bytes, num_elements
		FROM tensors
		WHERE name LIKE ? ESCAPE '\'
		ORDER BY name, file_path
		LIMIT ?`, "%"+escapeLike(query)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("index: search tensors: %w", err)
	}
	defer rows.Close()

	var out []TensorRow
	for rows.Next() {
		var t TensorRow
		if err := rows.Scan(&t.FilePath, &t.Name, &t.DType, &t.Shape, &t.SizeBytes, &t.NumElements); err != nil {
			return nil, fmt.Errorf("index: scan tensor: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// escapeLike escapes the LIKE wildcards in user-supplied queries.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
