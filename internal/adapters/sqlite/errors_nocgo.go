//go:build !cgo

package sqlite

// mapSQLiteError translates driver constraint violations into portable
// errors. Without cgo the go-sqlite3 driver is a stub that cannot open a
// database or surface sqlite3.Error values, so there is nothing to translate.
func mapSQLiteError(err error) error {
	return err
}
