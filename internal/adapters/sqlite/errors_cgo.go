//go:build cgo

package sqlite

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"tradegate/internal/ports"
)

// mapSQLiteError translates driver constraint violations into portable errors.
func mapSQLiteError(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %v", ports.ErrDuplicateRecord, err)
	}
	return err
}
