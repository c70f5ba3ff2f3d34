package database

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"rdb/bptree"
)

// Compact rewrites the data file without deleted rows and swaps in a fresh
// index mapping each surviving key to its new offset. The table lock is held
// for the whole rewrite, so every other caller of this table blocks until it
// finishes. This is also the only operation that reconciles unindexed
// garbage left by interrupted appends.
func (t *Table) Compact() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkUsable(); err != nil {
		return err
	}

	tmpPath := t.path + ".tmp"
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file for compaction: %v", err)
	}

	abort := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if _, err := t.file.Seek(0, io.SeekStart); err != nil {
		abort()
		return fmt.Errorf("failed to rewind data file for compaction: %v", err)
	}

	newIdx := bptree.New()
	reader := bufio.NewReader(t.file)
	var writeOffset int64

	for {
		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 && line[0] == ValidMarker {
			pk, err := rowPrimaryKey(line)
			if err != nil {
				slog.Warn("dropping unparseable row during compaction",
					"table", t.name, "err", err)
			} else {
				if _, err := tmp.Write(line); err != nil {
					abort()
					return fmt.Errorf("failed to write row during compaction: %v", err)
				}
				newIdx.Insert(pk, writeOffset)
				writeOffset += int64(len(line))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			abort()
			return fmt.Errorf("failed to read data file during compaction: %v", readErr)
		}
	}

	if err := tmp.Sync(); err != nil {
		abort()
		return fmt.Errorf("failed to sync compacted file: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compacted file: %v", err)
	}

	// Swap files: close the old handle, replace on disk, reopen. A failure
	// past this point leaves the table without a usable handle, so it is
	// disabled rather than left half-swapped.
	t.file.Close()
	t.file = nil

	if err := os.Remove(t.path); err != nil {
		os.Remove(tmpPath)
		t.disabled = true
		return fmt.Errorf("failed to remove old data file: %v: %w", err, ErrTableDisabled)
	}
	if err := os.Rename(tmpPath, t.path); err != nil {
		t.disabled = true
		return fmt.Errorf("failed to rename compacted file: %v: %w", err, ErrTableDisabled)
	}

	file, err := os.OpenFile(t.path, os.O_RDWR, 0644)
	if err != nil {
		t.disabled = true
		return fmt.Errorf("failed to reopen compacted file: %v: %w", err, ErrTableDisabled)
	}

	t.file = file
	t.idx = newIdx
	t.cache.Reset()
	return nil
}

// Commit flushes the data file to stable storage. It is a plain fsync, not a
// transactional commit.
func (t *Table) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkUsable(); err != nil {
		return err
	}
	if err := t.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync data file for table %q: %v", t.name, err)
	}
	return nil
}

// Rollback wipes the table: the file is truncated to zero length and the
// index replaced with an empty one. It is a full truncate, not an undo of
// individual operations. If the truncate fails the file and index can no
// longer be reconciled and the table is disabled.
func (t *Table) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkUsable(); err != nil {
		return err
	}

	if err := t.file.Truncate(0); err != nil {
		t.disabled = true
		slog.Error("rollback truncate failed, disabling table", "table", t.name, "err", err)
		return fmt.Errorf("failed to truncate data file for table %q: %v: %w", t.name, err, ErrTableDisabled)
	}
	t.idx = bptree.New()
	t.cache.Reset()
	return nil
}
