// Package sqlite opens a SQLite database as a read-only corpus source using
// the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
)

// OpenReadOnly opens the database at path. A missing file is ErrNotFound
// rather than an empty database.
func OpenReadOnly(ctx context.Context, path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("sqlite corpus %q: %w", path, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("stat sqlite corpus %q: %w", path, err)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite corpus: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening sqlite corpus %q: %w", path, err)
	}
	return db, nil
}
