package database

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
)

// InsertRow appends a new row and indexes it. It fails without touching the
// file when key is already present. The returned offset is the byte position
// of the new record in the data file.
func (t *Table) InsertRow(key int, values []string) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkUsable(); err != nil {
		return -1, err
	}
	if len(values) != len(t.columns) {
		return -1, fmt.Errorf("table %q expects %d values, got %d", t.name, len(t.columns), len(values))
	}
	if _, exists := t.idx.Search(key); exists {
		return -1, fmt.Errorf("primary key %d in table %q: %w", key, t.name, ErrDuplicateKey)
	}

	offset, err := t.appendRow(values)
	if err != nil {
		return -1, err
	}

	// Index only after the write fully succeeded. A failure above leaves at
	// worst unindexed bytes at the end of the file, reclaimed by Compact.
	t.idx.Insert(key, offset)
	return offset, nil
}

// ReadRow returns the current values for key. Deleted and never-inserted
// keys both report ErrNotFound; rows that cannot be decoded report
// ErrCorruptRow instead of partial data.
func (t *Table) ReadRow(key int) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkUsable(); err != nil {
		return nil, err
	}

	if values, ok := t.cache.Get(key); ok {
		return values, nil
	}

	offset, exists := t.idx.Search(key)
	if !exists {
		return nil, fmt.Errorf("primary key %d in table %q: %w", key, t.name, ErrNotFound)
	}

	values, deleted, err := t.readRowAt(key, offset)
	if err != nil {
		return nil, err
	}
	if deleted {
		// Physically present but logically gone.
		return nil, fmt.Errorf("primary key %d in table %q: %w", key, t.name, ErrNotFound)
	}

	t.cache.Put(key, values)
	return values, nil
}

// UpdateRow replaces the values for an existing key: the old record is
// marked deleted in place, the new record appended, and the index repointed.
// The primary key itself is immutable here; changing it takes an explicit
// delete plus insert by the caller.
func (t *Table) UpdateRow(key int, newValues []string) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkUsable(); err != nil {
		return -1, err
	}
	if len(newValues) != len(t.columns) {
		return -1, fmt.Errorf("table %q expects %d values, got %d", t.name, len(t.columns), len(newValues))
	}

	oldOffset, exists := t.idx.Search(key)
	if !exists {
		return -1, fmt.Errorf("primary key %d in table %q: %w", key, t.name, ErrNotFound)
	}

	if err := t.markDeletedAt(oldOffset); err != nil {
		return -1, err
	}

	newOffset, err := t.appendRow(newValues)
	if err != nil {
		// Old record already carries the deleted marker; the index still
		// points at it, so the row reads as not-found until re-inserted.
		return -1, err
	}

	t.idx.Delete(key)
	t.idx.Insert(key, newOffset)
	t.cache.Invalidate(key)
	return newOffset, nil
}

// DeleteRow marks the record deleted in place and drops the key from the
// index. File space is reclaimed only by Compact.
func (t *Table) DeleteRow(key int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkUsable(); err != nil {
		return err
	}

	offset, exists := t.idx.Search(key)
	if !exists {
		return fmt.Errorf("primary key %d in table %q: %w", key, t.name, ErrNotFound)
	}

	if err := t.markDeletedAt(offset); err != nil {
		return err
	}

	t.idx.Delete(key)
	t.cache.Invalidate(key)
	return nil
}

// Scan visits every live row in ascending primary-key order via the index's
// leaf chain. Rows that fail to decode are logged and skipped rather than
// aborting the scan.
func (t *Table) Scan(fn func(key int, values []string) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkUsable(); err != nil {
		return err
	}

	var scanErr error
	t.idx.Scan(func(key int, offset int64) bool {
		values, deleted, err := t.readRowAt(key, offset)
		if err != nil || deleted {
			if err != nil {
				slog.Warn("skipping unreadable row during scan",
					"table", t.name, "key", key, "offset", offset, "err", err)
			}
			return true
		}
		if err := fn(key, values); err != nil {
			scanErr = err
			return false
		}
		return true
	})
	return scanErr
}

// Offset reports the data-file offset currently indexed for key.
func (t *Table) Offset(key int) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.idx.Search(key)
}

// appendRow writes one encoded record at end of file and returns its start
// offset. Caller holds the lock.
func (t *Table) appendRow(values []string) (int64, error) {
	offset, err := t.file.Seek(0, io.SeekEnd)
	if err != nil {
		return -1, fmt.Errorf("failed to seek to end of data file: %v", err)
	}
	if _, err := t.file.Write(EncodeRow(values)); err != nil {
		return -1, fmt.Errorf("failed to write row: %v", err)
	}
	return offset, nil
}

// markDeletedAt overwrites the status byte of the record at offset. This is
// safe in place because the marker occupies exactly one byte and the line
// length does not change.
func (t *Table) markDeletedAt(offset int64) error {
	if _, err := t.file.WriteAt([]byte{DeletedMarker}, offset); err != nil {
		return fmt.Errorf("failed to write delete marker at offset %d: %v", offset, err)
	}
	return nil
}

// readRowAt reads and decodes the record at offset. Caller holds the lock.
func (t *Table) readRowAt(key int, offset int64) (values []string, deleted bool, err error) {
	if _, err := t.file.Seek(offset, io.SeekStart); err != nil {
		return nil, false, fmt.Errorf("failed to seek to offset %d for key %d: %v", offset, key, err)
	}

	line, err := bufio.NewReader(t.file).ReadBytes('\n')
	if len(line) == 0 {
		if err == io.EOF {
			slog.Warn("index offset points past end of file",
				"table", t.name, "key", key, "offset", offset)
			return nil, false, fmt.Errorf("offset %d for key %d past end of file: %w", offset, key, ErrCorruptRow)
		}
		return nil, false, fmt.Errorf("failed to read row at offset %d: %v", offset, err)
	}

	values, deleted, err = DecodeRow(line, len(t.columns))
	if err != nil {
		slog.Warn("unreadable row", "table", t.name, "key", key, "offset", offset, "err", err)
		return nil, false, err
	}
	return values, deleted, nil
}
