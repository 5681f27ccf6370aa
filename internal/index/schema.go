package index

import (
	"context"
	"fmt"
)

// schema creates the entries table. Rows are keyed by container and their
// position in the container's catalog.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS entries (
		container      TEXT    NOT NULL,
		position       INTEGER NOT NULL,
		name           TEXT    NOT NULL,
		kind           TEXT    NOT NULL,
		format         TEXT    NOT NULL,
		ext            TEXT    NOT NULL,
		width          INTEGER NOT NULL,
		height         INTEGER NOT NULL,
		pixel_format   TEXT    NOT NULL,
		horizontal_dpi REAL    NOT NULL,
		vertical_dpi   REAL    NOT NULL,
		raw_size       INTEGER NOT NULL,
		digest         TEXT    NOT NULL,
		indexed_at     INTEGER NOT NULL,
		PRIMARY KEY (container, position)
	)`,
	`CREATE INDEX IF NOT EXISTS entries_digest ON entries (digest)`,
	`CREATE INDEX IF NOT EXISTS entries_kind ON entries (kind)`,
}

func (s *Store) ensureSchema(ctx context.Context) error {
	for _, ddl := range schema {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}
