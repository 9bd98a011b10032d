package engine

import (
	"bytes"
	"fmt"
	"testing"
)

func mustCreate(t *testing.T, blockSize int) *Table {
	t.Helper()
	dir := t.TempDir()
	tbl, err := CreateAndOpen(dir, "test", blockSize)
	if err != nil {
		t.Fatalf("CreateAndOpen: %v", err)
	}
	t.Cleanup(func() { tbl.Close() })
	return tbl
}

func TestAddGetRoundTrip(t *testing.T) {
	tbl := mustCreate(t, minBlockSize)
	if err := tbl.Add([]byte("apple"), []byte("red fruit")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	tag, found, err := tbl.GetExactEntry([]byte("apple"))
	if err != nil {
		t.Fatalf("GetExactEntry: %v", err)
	}
	if !found {
		t.Fatal("expected apple to be found")
	}
	if !bytes.Equal(tag, []byte("red fruit")) {
		t.Fatalf("got tag %q", tag)
	}
}

func TestGetMissingKey(t *testing.T) {
	tbl := mustCreate(t, minBlockSize)
	_, found, err := tbl.GetExactEntry([]byte("missing"))
	if err != nil {
		t.Fatalf("GetExactEntry: %v", err)
	}
	if found {
		t.Fatal("expected missing key to not be found")
	}
}

func TestAddManyAndIterate(t *testing.T) {
	tbl := mustCreate(t, minBlockSize)
	keys := []string{"banana", "apple", "cherry", "date", "fig", "grape", "kiwi"}
	for _, k := range keys {
		if err := tbl.Add([]byte(k), []byte("tag-"+k)); err != nil {
			t.Fatalf("Add %q: %v", k, err)
		}
	}
	for _, k := range keys {
		tag, found, err := tbl.GetExactEntry([]byte(k))
		if err != nil || !found {
			t.Fatalf("GetExactEntry(%q) found=%v err=%v", k, found, err)
		}
		if !bytes.Equal(tag, []byte("tag-"+k)) {
			t.Fatalf("key %q: got tag %q", k, tag)
		}
	}
}

func TestOverwriteReplacesTag(t *testing.T) {
	tbl := mustCreate(t, minBlockSize)
	if err := tbl.Add([]byte("k"), []byte("first")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := tbl.Add([]byte("k"), []byte("second, and longer")); err != nil {
		t.Fatalf("Add overwrite: %v", err)
	}
	tag, found, err := tbl.GetExactEntry([]byte("k"))
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if !bytes.Equal(tag, []byte("second, and longer")) {
		t.Fatalf("got %q", tag)
	}
}

func TestDelRemovesEntry(t *testing.T) {
	tbl := mustCreate(t, minBlockSize)
	if err := tbl.Add([]byte("gone"), []byte("soon")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	ok, err := tbl.Del([]byte("gone"))
	if err != nil || !ok {
		t.Fatalf("Del: ok=%v err=%v", ok, err)
	}
	_, found, err := tbl.GetExactEntry([]byte("gone"))
	if err != nil {
		t.Fatalf("GetExactEntry: %v", err)
	}
	if found {
		t.Fatal("expected entry to be gone")
	}
	ok, err = tbl.Del([]byte("gone"))
	if err != nil {
		t.Fatalf("Del again: %v", err)
	}
	if ok {
		t.Fatal("expected second Del to report not found")
	}
}

func TestLargeTagChunking(t *testing.T) {
	tbl := mustCreate(t, minBlockSize)
	big := bytes.Repeat([]byte("0123456789abcdef"), 2000) // far larger than one item can hold
	if err := tbl.Add([]byte("blob"), big); err != nil {
		t.Fatalf("Add: %v", err)
	}
	got, found, err := tbl.GetExactEntry([]byte("blob"))
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if !bytes.Equal(got, big) {
		t.Fatalf("reassembled tag mismatched: got %d bytes, want %d", len(got), len(big))
	}
}

func TestCommitPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	tbl, err := CreateAndOpen(dir, "persist", minBlockSize)
	if err != nil {
		t.Fatalf("CreateAndOpen: %v", err)
	}
	if err := tbl.Add([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := tbl.Add([]byte("b"), []byte("2")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := tbl.Commit(tbl.Revision() + 1); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := tbl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(dir, "persist")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reopened.Close()
	tag, found, err := reopened.GetExactEntry([]byte("a"))
	if err != nil || !found || !bytes.Equal(tag, []byte("1")) {
		t.Fatalf("a: tag=%q found=%v err=%v", tag, found, err)
	}
	tag, found, err = reopened.GetExactEntry([]byte("b"))
	if err != nil || !found || !bytes.Equal(tag, []byte("2")) {
		t.Fatalf("b: tag=%q found=%v err=%v", tag, found, err)
	}
}

func TestCancelDiscardsUncommittedWrites(t *testing.T) {
	dir := t.TempDir()
	tbl, err := CreateAndOpen(dir, "cancel", minBlockSize)
	if err != nil {
		t.Fatalf("CreateAndOpen: %v", err)
	}
	if err := tbl.Add([]byte("committed"), []byte("yes")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := tbl.Commit(tbl.Revision() + 1); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := tbl.Add([]byte("uncommitted"), []byte("no")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	tbl.Cancel()

	_, found, err := tbl.GetExactEntry([]byte("uncommitted"))
	if err != nil {
		t.Fatalf("GetExactEntry: %v", err)
	}
	if found {
		t.Fatal("expected cancelled add to be discarded")
	}
	_, found, err = tbl.GetExactEntry([]byte("committed"))
	if err != nil || !found {
		t.Fatalf("expected committed entry to survive cancel: found=%v err=%v", found, err)
	}
}

func TestExistsAndErase(t *testing.T) {
	dir := t.TempDir()
	if Exists(dir, "ghost") {
		t.Fatal("table should not exist yet")
	}
	tbl, err := CreateAndOpen(dir, "ghost", minBlockSize)
	if err != nil {
		t.Fatalf("CreateAndOpen: %v", err)
	}
	tbl.Close()
	if !Exists(dir, "ghost") {
		t.Fatal("table should exist after CreateAndOpen")
	}
	if err := Erase(dir, "ghost"); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if Exists(dir, "ghost") {
		t.Fatal("table should not exist after Erase")
	}
}

func TestReadCursorIteratesInKeyOrder(t *testing.T) {
	dir := t.TempDir()
	tbl, err := CreateAndOpen(dir, "iter", minBlockSize)
	if err != nil {
		t.Fatalf("CreateAndOpen: %v", err)
	}
	keys := []string{"mango", "apple", "zebra", "banana"}
	for _, k := range keys {
		if err := tbl.Add([]byte(k), []byte(k)); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if _, err := tbl.Commit(tbl.Revision() + 1); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	rc, err := tbl.NewReadCursor()
	if err != nil {
		t.Fatalf("NewReadCursor: %v", err)
	}
	ok, err := rc.Rewind()
	if err != nil || !ok {
		t.Fatalf("Rewind: ok=%v err=%v", ok, err)
	}
	var got []string
	for {
		got = append(got, string(rc.Key()))
		ok, err := rc.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
	}
	want := []string{"apple", "banana", "mango", "zebra"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestCommitRejectsNonIncreasingRevision(t *testing.T) {
	tbl := mustCreate(t, minBlockSize)
	if err := tbl.Add([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := tbl.Commit(5); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if tbl.Revision() != 5 {
		t.Fatalf("revision = %d, want 5", tbl.Revision())
	}

	if err := tbl.Add([]byte("b"), []byte("2")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := tbl.Commit(5); err == nil {
		t.Fatal("expected commit with equal revision to be rejected")
	}
	if _, err := tbl.Commit(3); err == nil {
		t.Fatal("expected commit with lower revision to be rejected")
	}
	if _, err := tbl.Commit(6); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if tbl.Revision() != 6 {
		t.Fatalf("revision = %d, want 6", tbl.Revision())
	}
}

func TestSequentialFlagSurvivesAscendingInserts(t *testing.T) {
	tbl := mustCreate(t, minBlockSize)
	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("key-%05d", i)
		if err := tbl.Add([]byte(key), []byte("v")); err != nil {
			t.Fatalf("Add %q: %v", key, err)
		}
		if i%37 == 0 {
			if _, err := tbl.Commit(tbl.Revision() + 1); err != nil {
				t.Fatalf("Commit: %v", err)
			}
		}
	}
	if _, err := tbl.Commit(tbl.Revision() + 1); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !tbl.sequential {
		t.Fatal("expected strictly ascending inserts to keep the sequential flag set")
	}
}

func TestDeleteCollapsesRootAfterEmptying(t *testing.T) {
	tbl := mustCreate(t, minBlockSize)
	keys := []string{"a", "b", "c", "d", "e"}
	for _, k := range keys {
		if err := tbl.Add([]byte(k), []byte("v-"+k)); err != nil {
			t.Fatalf("Add %q: %v", k, err)
		}
	}
	for _, k := range keys {
		ok, err := tbl.Del([]byte(k))
		if err != nil || !ok {
			t.Fatalf("Del %q: ok=%v err=%v", k, ok, err)
		}
	}
	if !tbl.haveFakeroot {
		t.Fatal("expected table to revert to the empty-table state once every entry is gone")
	}
	if tbl.itemCount != 0 {
		t.Fatalf("item count = %d, want 0", tbl.itemCount)
	}
	if _, err := tbl.Commit(tbl.Revision() + 1); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, found, err := tbl.GetExactEntry([]byte("a")); err != nil || found {
		t.Fatalf("expected a to be gone: found=%v err=%v", found, err)
	}
}
