package database

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
)

func newTestTable(t *testing.T, columns ...string) *Table {
	t.Helper()
	db, err := New("testdb", t.TempDir(), 0)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if len(columns) == 0 {
		columns = []string{"id", "title"}
	}
	table, err := db.CreateTable("book", columns)
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	return table
}

func fileSize(t *testing.T, table *Table) int64 {
	t.Helper()
	info, err := os.Stat(table.Path())
	if err != nil {
		t.Fatalf("Failed to stat data file: %v", err)
	}
	return info.Size()
}

// TestBookScenario walks the end-to-end sequence: insert two rows, delete
// one, compact, and verify offsets and file size move the way they should.
func TestBookScenario(t *testing.T) {
	table := newTestTable(t)

	off1, err := table.InsertRow(1, []string{"1", "Dune"})
	if err != nil {
		t.Fatalf("InsertRow(1) failed: %v", err)
	}
	if off1 != 0 {
		t.Errorf("First insert at offset %d, want 0", off1)
	}

	off2, err := table.InsertRow(2, []string{"2", "Foo"})
	if err != nil {
		t.Fatalf("InsertRow(2) failed: %v", err)
	}
	if off2 <= 0 {
		t.Errorf("Second insert at offset %d, want > 0", off2)
	}

	if err := table.DeleteRow(1); err != nil {
		t.Fatalf("DeleteRow(1) failed: %v", err)
	}
	if _, err := table.ReadRow(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadRow(1) after delete = %v, want ErrNotFound", err)
	}

	values, err := table.ReadRow(2)
	if err != nil {
		t.Fatalf("ReadRow(2) failed: %v", err)
	}
	if values[0] != "2" || values[1] != "Foo" {
		t.Errorf("ReadRow(2) = %v, want [2 Foo]", values)
	}

	sizeBefore := fileSize(t, table)
	if err := table.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}
	if size := fileSize(t, table); size >= sizeBefore {
		t.Errorf("File size %d after compaction, want < %d", size, sizeBefore)
	}

	// Row 2 moved to the front of the rewritten file.
	newOff2, ok := table.Offset(2)
	if !ok {
		t.Fatal("Key 2 missing from the index after compaction")
	}
	if newOff2 == off2 {
		t.Errorf("Offset of key 2 still %d after compaction, want it moved", off2)
	}
	if newOff2 != 0 {
		t.Errorf("Offset of key 2 = %d after compaction, want 0", newOff2)
	}

	values, err = table.ReadRow(2)
	if err != nil {
		t.Fatalf("ReadRow(2) after compaction failed: %v", err)
	}
	if values[0] != "2" || values[1] != "Foo" {
		t.Errorf("ReadRow(2) after compaction = %v, want [2 Foo]", values)
	}
}

func TestInsertDuplicateKeyLeavesStateUntouched(t *testing.T) {
	table := newTestTable(t)

	if _, err := table.InsertRow(1, []string{"1", "Dune"}); err != nil {
		t.Fatalf("InsertRow failed: %v", err)
	}
	sizeBefore := fileSize(t, table)

	_, err := table.InsertRow(1, []string{"1", "Other"})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("Duplicate insert = %v, want ErrDuplicateKey", err)
	}
	if size := fileSize(t, table); size != sizeBefore {
		t.Errorf("Duplicate insert grew the file from %d to %d bytes", sizeBefore, size)
	}
	if got := table.Len(); got != 1 {
		t.Errorf("Len = %d after duplicate insert, want 1", got)
	}

	values, err := table.ReadRow(1)
	if err != nil {
		t.Fatalf("ReadRow failed: %v", err)
	}
	if values[1] != "Dune" {
		t.Errorf("Row value = %q after failed duplicate insert, want Dune", values[1])
	}
}

func TestInsertRejectsWrongColumnCount(t *testing.T) {
	table := newTestTable(t)
	if _, err := table.InsertRow(1, []string{"1"}); err == nil {
		t.Fatalf("InsertRow accepted too few values")
	}
	if _, err := table.InsertRow(1, []string{"1", "Dune", "extra"}); err == nil {
		t.Fatalf("InsertRow accepted too many values")
	}
}

func TestReadMissingKey(t *testing.T) {
	table := newTestTable(t)
	if _, err := table.ReadRow(42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ReadRow on empty table = %v, want ErrNotFound", err)
	}
}

func TestUpdateRowMovesOffset(t *testing.T) {
	table := newTestTable(t)

	oldOffset, err := table.InsertRow(1, []string{"1", "Dune"})
	if err != nil {
		t.Fatalf("InsertRow failed: %v", err)
	}

	newOffset, err := table.UpdateRow(1, []string{"1", "Dune Messiah"})
	if err != nil {
		t.Fatalf("UpdateRow failed: %v", err)
	}
	if newOffset == oldOffset {
		t.Errorf("UpdateRow kept offset %d, want a new one", newOffset)
	}

	values, err := table.ReadRow(1)
	if err != nil {
		t.Fatalf("ReadRow after update failed: %v", err)
	}
	if values[1] != "Dune Messiah" {
		t.Errorf("Row value = %q after update, want Dune Messiah", values[1])
	}
}

func TestUpdateMissingKey(t *testing.T) {
	table := newTestTable(t)
	if _, err := table.UpdateRow(9, []string{"9", "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateRow on missing key = %v, want ErrNotFound", err)
	}
}

func TestDeleteMissingKey(t *testing.T) {
	table := newTestTable(t)
	if err := table.DeleteRow(9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteRow on missing key = %v, want ErrNotFound", err)
	}
}

func TestValuesAreSanitized(t *testing.T) {
	table := newTestTable(t)

	if _, err := table.InsertRow(1, []string{"1", "a|b\nc#d"}); err != nil {
		t.Fatalf("InsertRow failed: %v", err)
	}
	values, err := table.ReadRow(1)
	if err != nil {
		t.Fatalf("ReadRow failed: %v", err)
	}
	if values[1] != "a_b_c_d" {
		t.Errorf("Sanitized value = %q, want a_b_c_d", values[1])
	}
}

func TestCorruptMarkerFailsSafe(t *testing.T) {
	table := newTestTable(t)

	offset, err := table.InsertRow(1, []string{"1", "Dune"})
	if err != nil {
		t.Fatalf("InsertRow failed: %v", err)
	}

	// Stamp an invalid marker byte directly into the file.
	f, err := os.OpenFile(table.Path(), os.O_RDWR, 0644)
	if err != nil {
		t.Fatalf("Failed to open data file: %v", err)
	}
	if _, err := f.WriteAt([]byte{'X'}, offset); err != nil {
		t.Fatalf("Failed to corrupt marker: %v", err)
	}
	f.Close()

	if _, err := table.ReadRow(1); !errors.Is(err, ErrCorruptRow) {
		t.Fatalf("ReadRow on corrupt marker = %v, want ErrCorruptRow", err)
	}
}

func TestOffsetPastEOFFailsSafe(t *testing.T) {
	table := newTestTable(t)

	if _, err := table.InsertRow(1, []string{"1", "Dune"}); err != nil {
		t.Fatalf("InsertRow failed: %v", err)
	}
	// Shrink the file behind the index's back.
	if err := os.Truncate(table.Path(), 0); err != nil {
		t.Fatalf("Failed to truncate data file: %v", err)
	}

	if _, err := table.ReadRow(1); !errors.Is(err, ErrCorruptRow) {
		t.Fatalf("ReadRow past EOF = %v, want ErrCorruptRow", err)
	}
}

func TestCompactPreservesLiveRows(t *testing.T) {
	table := newTestTable(t)

	for i := 1; i <= 50; i++ {
		if _, err := table.InsertRow(i, []string{fmt.Sprint(i), fmt.Sprintf("title_%d", i)}); err != nil {
			t.Fatalf("InsertRow(%d) failed: %v", i, err)
		}
	}
	for i := 1; i <= 50; i += 2 {
		if err := table.DeleteRow(i); err != nil {
			t.Fatalf("DeleteRow(%d) failed: %v", i, err)
		}
	}
	// Updates leave dead records behind too.
	for i := 2; i <= 50; i += 10 {
		if _, err := table.UpdateRow(i, []string{fmt.Sprint(i), fmt.Sprintf("updated_%d", i)}); err != nil {
			t.Fatalf("UpdateRow(%d) failed: %v", i, err)
		}
	}

	before := make(map[int][]string)
	for i := 2; i <= 50; i += 2 {
		values, err := table.ReadRow(i)
		if err != nil {
			t.Fatalf("ReadRow(%d) before compaction failed: %v", i, err)
		}
		before[i] = values
	}

	sizeBefore := fileSize(t, table)
	if err := table.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}
	if size := fileSize(t, table); size > sizeBefore {
		t.Errorf("File grew from %d to %d bytes during compaction", sizeBefore, size)
	}

	for i, want := range before {
		values, err := table.ReadRow(i)
		if err != nil {
			t.Fatalf("ReadRow(%d) after compaction failed: %v", i, err)
		}
		for c := range want {
			if values[c] != want[c] {
				t.Errorf("Row %d column %d = %q after compaction, want %q", i, c, values[c], want[c])
			}
		}
	}
	for i := 1; i <= 50; i += 2 {
		if _, err := table.ReadRow(i); !errors.Is(err, ErrNotFound) {
			t.Errorf("Deleted row %d readable after compaction: %v", i, err)
		}
	}
}

func TestScanVisitsLiveRowsInOrder(t *testing.T) {
	table := newTestTable(t)

	for _, i := range []int{5, 1, 9, 3, 7} {
		if _, err := table.InsertRow(i, []string{fmt.Sprint(i), fmt.Sprintf("title_%d", i)}); err != nil {
			t.Fatalf("InsertRow(%d) failed: %v", i, err)
		}
	}
	if err := table.DeleteRow(3); err != nil {
		t.Fatalf("DeleteRow failed: %v", err)
	}

	var keys []int
	err := table.Scan(func(key int, values []string) error {
		if values[0] != fmt.Sprint(key) {
			t.Errorf("Scan row %d has pk column %q", key, values[0])
		}
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	want := []int{1, 5, 7, 9}
	if len(keys) != len(want) {
		t.Fatalf("Scan visited %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("Scan visited %v, want %v", keys, want)
		}
	}
}

func TestCommitAndRollback(t *testing.T) {
	table := newTestTable(t)

	if _, err := table.InsertRow(1, []string{"1", "Dune"}); err != nil {
		t.Fatalf("InsertRow failed: %v", err)
	}
	if err := table.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if err := table.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if size := fileSize(t, table); size != 0 {
		t.Errorf("File size %d after rollback, want 0", size)
	}
	if _, err := table.ReadRow(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadRow after rollback = %v, want ErrNotFound", err)
	}

	// The table stays writable after a rollback.
	if _, err := table.InsertRow(1, []string{"1", "Again"}); err != nil {
		t.Fatalf("InsertRow after rollback failed: %v", err)
	}
}

// TestRollbackDropsCachedRows warms the row cache before the rollback. No
// pre-rollback row may survive through the cache, and the old keys must be
// free for reuse.
func TestRollbackDropsCachedRows(t *testing.T) {
	table := newTestTable(t)

	if _, err := table.InsertRow(1, []string{"1", "Dune"}); err != nil {
		t.Fatalf("InsertRow failed: %v", err)
	}
	if _, err := table.ReadRow(1); err != nil {
		t.Fatalf("ReadRow failed: %v", err)
	}

	if err := table.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	if _, err := table.ReadRow(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadRow served a wiped row: %v, want ErrNotFound", err)
	}
	if _, err := table.InsertRow(1, []string{"1", "Messiah"}); err != nil {
		t.Fatalf("InsertRow of a wiped key failed: %v", err)
	}
	values, err := table.ReadRow(1)
	if err != nil {
		t.Fatalf("ReadRow after reinsert failed: %v", err)
	}
	if values[1] != "Messiah" {
		t.Errorf("ReadRow = %v, want the reinserted row", values)
	}
}

// TestDisabledTableRejectsEverything covers the shutdown state entered when
// a compaction or rollback leaves file and index irreconcilable.
func TestDisabledTableRejectsEverything(t *testing.T) {
	table := newTestTable(t)

	if _, err := table.InsertRow(1, []string{"1", "Dune"}); err != nil {
		t.Fatalf("InsertRow failed: %v", err)
	}
	table.disabled = true

	ops := map[string]func() error{
		"InsertRow": func() error { _, err := table.InsertRow(2, []string{"2", "Messiah"}); return err },
		"ReadRow":   func() error { _, err := table.ReadRow(1); return err },
		"UpdateRow": func() error { _, err := table.UpdateRow(1, []string{"1", "Messiah"}); return err },
		"DeleteRow": func() error { return table.DeleteRow(1) },
		"Scan":      func() error { return table.Scan(func(int, []string) error { return nil }) },
		"Compact":   func() error { return table.Compact() },
		"Commit":    func() error { return table.Commit() },
		"Rollback":  func() error { return table.Rollback() },
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, ErrTableDisabled) {
			t.Errorf("%s on disabled table = %v, want ErrTableDisabled", name, err)
		}
	}
}

// TestConcurrentMixedOperations hammers one table from many goroutines to
// exercise the per-table lock. Each goroutine owns a disjoint key range, so
// every operation has a deterministic outcome.
func TestConcurrentMixedOperations(t *testing.T) {
	table := newTestTable(t)

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				key := base + i
				if _, err := table.InsertRow(key, []string{fmt.Sprint(key), "v"}); err != nil {
					t.Errorf("InsertRow(%d) failed: %v", key, err)
					return
				}
				if _, err := table.UpdateRow(key, []string{fmt.Sprint(key), "v2"}); err != nil {
					t.Errorf("UpdateRow(%d) failed: %v", key, err)
					return
				}
				if i%2 == 0 {
					if err := table.DeleteRow(key); err != nil {
						t.Errorf("DeleteRow(%d) failed: %v", key, err)
						return
					}
				}
			}
		}(w * 1000)
	}
	wg.Wait()

	if got, want := table.Len(), workers*perWorker/2; got != want {
		t.Fatalf("Len = %d after concurrent churn, want %d", got, want)
	}
	for w := 0; w < workers; w++ {
		for i := 1; i < perWorker; i += 2 {
			key := w*1000 + i
			values, err := table.ReadRow(key)
			if err != nil {
				t.Fatalf("ReadRow(%d) failed: %v", key, err)
			}
			if values[1] != "v2" {
				t.Fatalf("Row %d value = %q, want v2", key, values[1])
			}
		}
	}
}
