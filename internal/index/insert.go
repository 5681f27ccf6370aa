package index

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jchantrell/resgrab/internal/resource"
	"github.com/opencontainers/go-digest"
)

// Row is one indexed catalog entry
type Row struct {
	Container     string
	Position      int
	Name          string
	Kind          string
	Format        string
	Ext           string
	Width         int
	Height        int
	PixelFormat   string
	HorizontalDPI float64
	VerticalDPI   float64
	RawSize       int
	Digest        digest.Digest
	IndexedAt     time.Time
}

// Encoder produces the canonical encoding of an entry
type Encoder interface {
	Encode(entry *resource.Entry) ([]byte, string, error)
}

// BuildRows describes every entry of a catalog. The digest covers the raw
// bytes, or the canonical encoding for entries produced in memory. Entries
// whose image cannot be decoded are skipped and keep no row.
func BuildRows(container string, catalog *resource.Catalog, enc Encoder) ([]Row, error) {
	now := time.Now().UTC()
	rows := make([]Row, 0, catalog.Len())

	for i, entry := range catalog.Entries() {
		details, err := entry.Details()
		if err != nil {
			slog.Warn("Skipping entry that cannot be decoded", "entry", entry.Name(), "error", err)
			continue
		}

		encoded, ext, err := enc.Encode(entry)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", entry.Name(), err)
		}
		data := entry.RawBytes()
		if data == nil {
			data = encoded
		}

		rows = append(rows, Row{
			Container:     container,
			Position:      i,
			Name:          entry.Name(),
			Kind:          entry.Kind().String(),
			Format:        string(entry.Format()),
			Ext:           ext,
			Width:         details.Width,
			Height:        details.Height,
			PixelFormat:   details.PixelFormat,
			HorizontalDPI: details.HorizontalDPI,
			VerticalDPI:   details.VerticalDPI,
			RawSize:       details.RawSize,
			Digest:        digest.FromBytes(data),
			IndexedAt:     now,
		})
	}

	return rows, nil
}

const insertSQL = `INSERT INTO entries (
	container, position, name, kind, format, ext, width, height,
	pixel_format, horizontal_dpi, vertical_dpi, raw_size, digest, indexed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Replace swaps the indexed rows of container for rows in one transaction
func (s *Store) Replace(ctx context.Context, container string, rows []Row) error {
	if s.db == nil {
		return fmt.Errorf("database connection is closed")
	}

	// Start transaction
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	res, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE container = ?`, container)
	if err != nil {
		return fmt.Errorf("removing previous rows for %s: %w", container, err)
	}
	if removed, err := res.RowsAffected(); err == nil && removed > 0 {
		slog.Debug("Removed previous index rows", "container", container, "rows", removed)
	}

	// Prepare statement
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if row.Container != container {
			return fmt.Errorf("row %d belongs to %s, not %s", row.Position, row.Container, container)
		}
		if _, err := stmt.ExecContext(ctx,
			row.Container, row.Position, row.Name, row.Kind, row.Format, row.Ext,
			row.Width, row.Height, row.PixelFormat, row.HorizontalDPI, row.VerticalDPI,
			row.RawSize, row.Digest.String(), row.IndexedAt.Unix(),
		); err != nil {
			return fmt.Errorf("inserting row %d: %w", row.Position, err)
		}
	}

	// Commit transaction
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	slog.Debug("Indexed catalog", "container", container, "rows", len(rows))
	return nil
}

// ReplaceCatalog indexes catalog under container, replacing earlier rows
func (s *Store) ReplaceCatalog(ctx context.Context, container string, catalog *resource.Catalog, enc Encoder) (int, error) {
	rows, err := BuildRows(container, catalog, enc)
	if err != nil {
		return 0, err
	}
	if err := s.Replace(ctx, container, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Filter narrows List results. Empty fields match everything.
type Filter struct {
	Container string
	Kind      string
	Digest    string
	// NameLike matches names containing this substring
	NameLike string
	Limit    int
}

// List returns indexed rows ordered by container and position
func (s *Store) List(ctx context.Context, filter Filter) ([]Row, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is closed")
	}

	var where []string
	var args []any
	if filter.Container != "" {
		where = append(where, "container = ?")
		args = append(args, filter.Container)
	}
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.Digest != "" {
		where = append(where, "digest = ?")
		args = append(args, filter.Digest)
	}
	if filter.NameLike != "" {
		where = append(where, "instr(name, ?) > 0")
		args = append(args, filter.NameLike)
	}

	query := `SELECT container, position, name, kind, format, ext, width, height,
		pixel_format, horizontal_dpi, vertical_dpi, raw_size, digest, indexed_at
		FROM entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY container, position"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var dgst string
		var indexedAt int64
		if err := rows.Scan(&r.Container, &r.Position, &r.Name, &r.Kind, &r.Format, &r.Ext,
			&r.Width, &r.Height, &r.PixelFormat, &r.HorizontalDPI, &r.VerticalDPI,
			&r.RawSize, &dgst, &indexedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		r.Digest = digest.Digest(dgst)
		r.IndexedAt = time.Unix(indexedAt, 0).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	return out, nil
}
