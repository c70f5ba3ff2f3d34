package database

import "errors"

// Sentinel errors surfaced by table and database operations. Callers match
// with errors.Is; every returned error wraps one of these or carries the
// underlying OS error.
var (
	// ErrDuplicateKey reports an insert whose primary key is already indexed.
	ErrDuplicateKey = errors.New("duplicate primary key")

	// ErrNotFound reports a lookup for a key that is absent or whose row is
	// marked deleted.
	ErrNotFound = errors.New("row not found")

	// ErrCorruptRow reports a row whose on-disk form cannot be trusted: an
	// unknown marker byte, a column count that disagrees with the schema, or
	// an index offset pointing past end of file. Operations fail safe rather
	// than returning partial data.
	ErrCorruptRow = errors.New("corrupt row")

	// ErrTableExists reports a create for a table name already in use.
	ErrTableExists = errors.New("table already exists")

	// ErrTableNotFound reports a lookup for an unknown table name.
	ErrTableNotFound = errors.New("table not found")

	// ErrTableDisabled reports an operation against a table whose file and
	// index could not be kept consistent (failed rollback or compaction
	// reopen). The table refuses further work.
	ErrTableDisabled = errors.New("table disabled after critical failure")
)
