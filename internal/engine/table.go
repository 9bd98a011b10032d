// Package engine implements a single-writer, multiple-reader,
// copy-on-write B-tree keyed tag store: the on-disk format is a chain
// of fixed-size blocks referenced by number, fronted by a pair of small
// "base" files (T.A / T.B) that each name a complete, self-consistent
// revision of the tree. A writer builds a new revision entirely out of
// blocks unused by the revision readers currently have open, then
// publishes it with a single atomic rename; readers never observe a
// half-written tree and never block behind the writer.
package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"tagtable/internal/platform/blockio"
)

// Table is a single named B-tree within a table directory. It is safe
// for exactly one writer goroutine plus any number of concurrent
// readers using separate *ReadCursor snapshots; it is not itself
// goroutine-safe for concurrent writers, matching the storage layer's
// single-writer contract.
type Table struct {
	dir  string
	name string

	file *blockio.File

	blockSize      int
	fullCompaction bool
	dangerous      bool

	baseLetter   byte // 'A' or 'B': which base file is current on disk
	revision     uint32
	rootBlock    uint32
	level        int
	itemCount    uint32
	haveFakeroot bool
	sequential   bool
	seqCount     int32

	// changedN/changedC/hasChanged track where the previous insertion
	// in the current transaction actually landed (block number and the
	// directory byte offset within it), so the next insertion can tell
	// whether its find parked the cursor on that item. Meaningless once hasChanged is
	// false; reset at both Commit and Cancel, matching the rest of a
	// transaction's scratch state.
	changedN   uint32
	changedC   int
	hasChanged bool

	// committed* mirror the fields above but only ever change inside
	// Commit (or initial Open/CreateAndOpen): a ReadCursor snapshots
	// these instead of the working fields so it never observes a
	// transaction that hasn't reached Commit yet.
	committedRevision     uint32
	committedRootBlock    uint32
	committedLevel        int
	committedHaveFakeroot bool
	committedItemCount    uint32
	committedSequential   bool
	committedSeqCount     int32

	alloc *allocator

	// changedBlocks holds every block written or cloned during the
	// in-progress transaction, keyed by block number, so cursors can
	// see writer-local state before it is flushed to disk.
	changedBlocks map[uint32]block

	cur     *cursor
	scratch block

	opened bool
	closed bool
}

type block = []byte

func (t *Table) dataPath() string { return filepath.Join(t.dir, t.name+".db") }
func (t *Table) basePath(letter byte) string {
	return filepath.Join(t.dir, fmt.Sprintf("%s.%c", t.name, letter))
}

// Exists reports whether a table named name has ever been created in
// dir, i.e. whether at least one base file is present and parses.
func Exists(dir, name string) bool {
	for _, letter := range []byte{'A', 'B'} {
		path := filepath.Join(dir, fmt.Sprintf("%s.%c", name, letter))
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if _, err := decodeBaseFile(data); err == nil {
			return true
		}
	}
	return false
}

// Erase permanently removes every file belonging to table name in dir.
func Erase(dir, name string) error {
	for _, suffix := range []string{".db", ".A", ".B"} {
		path := filepath.Join(dir, name+suffix)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return &ErrDatabase{Message: "erase " + path + ": " + err.Error()}
		}
	}
	return nil
}

// CreateAndOpen creates a brand-new, empty table named name in dir with
// the given block size (rounded to the nearest supported power of two
// if out of range) and opens it for writing.
func CreateAndOpen(dir, name string, blockSize int) (*Table, error) {
	if Exists(dir, name) {
		return nil, &ErrDatabaseOpening{Path: dir, Message: "table " + name + " already exists"}
	}
	if blockSize < minBlockSize {
		blockSize = minBlockSize
	}
	if blockSize > maxBlockSize {
		blockSize = maxBlockSize
	}
	t := &Table{dir: dir, name: name, blockSize: blockSize, alloc: newAllocator()}

	f, err := blockio.Open(t.dataPath(), blockSize)
	if err != nil {
		return nil, &ErrDatabaseOpening{Path: t.dataPath(), Message: err.Error()}
	}
	t.file = f

	t.haveFakeroot = true
	t.level = 0
	t.rootBlock = 0
	t.revision = 0
	t.baseLetter = 'B' // so the first commit writes 'A'
	t.sequential = true
	t.seqCount = seqStartPoint
	t.changedBlocks = map[uint32]block{}
	t.scratch = newBlock(blockSize)
	t.opened = true
	t.committedHaveFakeroot = true
	t.committedSequential = true
	t.committedSeqCount = seqStartPoint

	if err := t.writeBase('A', t.nextBaseFile(0)); err != nil {
		return nil, err
	}
	t.baseLetter = 'A'
	return t, nil
}

// Open opens an existing table at its latest committed revision.
func Open(dir, name string) (*Table, error) {
	return openRevision(dir, name, 0)
}

// OpenRevision opens an existing table pinned to a specific past
// revision, provided that revision's base file is still on disk (the
// older of T.A/T.B is overwritten by every other commit, so only the
// current and immediately preceding revision are ever available this
// way).
func OpenRevision(dir, name string, revision uint32) (*Table, error) {
	return openRevision(dir, name, revision)
}

func openRevision(dir, name string, wantRevision uint32) (*Table, error) {
	var best *baseFile
	var bestLetter byte
	for _, letter := range []byte{'A', 'B'} {
		path := filepath.Join(dir, fmt.Sprintf("%s.%c", name, letter))
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		b, err := decodeBaseFile(data)
		if err != nil {
			continue
		}
		if wantRevision != 0 && b.revision != wantRevision {
			continue
		}
		if best == nil || b.revision > best.revision {
			best = b
			bestLetter = letter
		}
	}
	if best == nil {
		return nil, &ErrDatabaseOpening{Path: dir, Message: "no valid base file for table " + name}
	}

	t := &Table{dir: dir, name: name, blockSize: int(best.blockSize)}
	f, err := blockio.Open(t.dataPath(), t.blockSize)
	if err != nil {
		return nil, &ErrDatabaseOpening{Path: t.dataPath(), Message: err.Error()}
	}
	t.file = f
	t.baseLetter = bestLetter
	t.revision = best.revision
	t.rootBlock = best.rootBlock
	t.level = int(best.level)
	t.itemCount = best.itemCount
	t.haveFakeroot = best.haveFakeroot
	t.sequential = best.sequential
	t.dangerous = best.dangerous
	t.seqCount = best.seqCount
	t.alloc = newAllocator()
	t.alloc.reset(bitmapFromBytes(best.bitmap))
	t.changedBlocks = map[uint32]block{}
	t.scratch = newBlock(t.blockSize)
	t.opened = true
	t.committedRevision = t.revision
	t.committedRootBlock = t.rootBlock
	t.committedLevel = t.level
	t.committedHaveFakeroot = t.haveFakeroot
	t.committedItemCount = t.itemCount
	t.committedSequential = t.sequential
	t.committedSeqCount = t.seqCount
	return t, nil
}

func bitmapFromBytes(bits []byte) *bitmap {
	return &bitmap{bits: append([]byte(nil), bits...)}
}

// SetBlockSize is only meaningful before the first commit of a
// freshly-created table; it exists so CreateAndOpen's caller can tune
// block size without a second constructor overload.
func (t *Table) SetBlockSize(n int) { t.blockSize = n }

// SetFullCompaction records the full-compaction setting on the table.
// The insertion and split paths do not read it, so it does not change
// how blocks are packed.
func (t *Table) SetFullCompaction(on bool) { t.fullCompaction = on }

// SetDangerous sets the dangerous-mode flag, which the next Commit
// writes into the base file and Open reads back. Block writes stay
// copy-on-write whatever its value: the flag does not switch on
// in-place block mutation.
func (t *Table) SetDangerous(on bool) { t.dangerous = on }

// writeRevision is the provisional revision stamped onto blocks written
// during the in-progress transaction. Commit may end up publishing a
// larger revision number than this (a caller is free to skip numbers),
// but never a smaller one, so a block's stamp is always a safe lower
// bound on the revision that will actually own it.
func (t *Table) writeRevision() uint32 { return t.revision + 1 }

// Revision returns the table's most recently committed revision.
func (t *Table) Revision() uint32 { return t.revision }

func (t *Table) readBlock(n uint32, dst block) error {
	if blk, ok := t.changedBlocks[n]; ok {
		copy(dst, blk)
		return nil
	}
	if err := t.file.ReadBlock(n, dst); err != nil {
		return &ErrDatabaseCorrupt{Message: fmt.Sprintf("read block %d: %v", n, err)}
	}
	return nil
}

// ensureCursor lazily builds the writer's main cursor, positioned at
// the current root.
func (t *Table) ensureCursor() error {
	if t.closed {
		return errClosed()
	}
	if t.cur == nil {
		t.cur = newCursor(t)
	}
	return t.cur.loadRoot()
}

// KeyExists reports whether key has an entry, without reconstructing
// its tag.
func (t *Table) KeyExists(key []byte) (bool, error) {
	if t.closed {
		return false, errClosed()
	}
	if t.haveFakeroot {
		return false, nil
	}
	if err := t.ensureCursor(); err != nil {
		return false, err
	}
	exact, err := t.cur.find(Key{Body: key, Counter: firstComponentCounter})
	return exact, err
}

// GetExactEntry looks up key and, if present, returns its fully
// reassembled (and decompressed, if applicable) tag.
func (t *Table) GetExactEntry(key []byte) (tag []byte, found bool, err error) {
	if t.closed {
		return nil, false, errClosed()
	}
	if len(key) == 0 || len(key) > maxKeyLen {
		return nil, false, nil
	}
	if t.haveFakeroot {
		return nil, false, nil
	}
	if err := t.ensureCursor(); err != nil {
		return nil, false, err
	}
	exact, err := t.cur.find(Key{Body: key, Counter: firstComponentCounter})
	if err != nil || !exact {
		return nil, false, err
	}
	return t.readTag(t.cur, key)
}

// Commit publishes the in-progress transaction as newRevision: every
// changed block is written to the data file, the file is synced, a
// fresh base file is written to the alternate letter and synced, and
// only then is that letter made current. A failure at any step leaves
// the previously-committed revision intact and fully readable. On
// success it returns the ChangeSet just published, for a caller that
// wants to forward it to the changes bus without re-deriving it.
//
// newRevision must exceed the table's current revision; a caller is
// free to skip numbers (e.g. to line commits up with an external
// transaction counter) but never to repeat or go backward.
func (t *Table) Commit(newRevision uint32) (*ChangeSet, error) {
	if t.closed {
		return nil, errClosed()
	}
	if newRevision <= t.revision {
		return nil, &ErrDatabase{Message: "commit with non-increasing revision"}
	}
	cs := &ChangeSet{
		TableName:    t.name,
		BlockSize:    uint32(t.blockSize),
		RootBlock:    t.rootBlock,
		Level:        uint8(t.level),
		ItemCount:    t.itemCount,
		HaveFakeroot: t.haveFakeroot,
		Blocks:       make(map[uint32][]byte, len(t.changedBlocks)),
	}
	for n, blk := range t.changedBlocks {
		if err := t.file.WriteBlock(n, blk); err != nil {
			return nil, &ErrDatabase{Message: "commit: " + err.Error()}
		}
		cs.Blocks[n] = append([]byte(nil), blk...)
	}
	if err := t.file.Sync(); err != nil {
		return nil, &ErrDatabase{Message: "commit: " + err.Error()}
	}

	t.alloc.commit()
	other := otherBaseLetter(t.baseLetter)
	if err := t.writeBase(other, t.nextBaseFile(newRevision)); err != nil {
		return nil, err
	}
	cs.Revision = newRevision

	t.baseLetter = other
	t.revision = newRevision
	t.changedBlocks = map[uint32]block{}
	t.cur = nil
	t.hasChanged = false

	t.committedRevision = t.revision
	t.committedRootBlock = t.rootBlock
	t.committedLevel = t.level
	t.committedHaveFakeroot = t.haveFakeroot
	t.committedItemCount = t.itemCount
	t.committedSequential = t.sequential
	t.committedSeqCount = t.seqCount
	return cs, nil
}

// Cancel discards every change made since the last Commit (or since
// Open, if none), reverting the working tree and allocator state back
// to the committed revision.
func (t *Table) Cancel() {
	t.changedBlocks = map[uint32]block{}
	t.alloc.current = t.alloc.initial.clone()
	t.cur = nil
	t.hasChanged = false
	t.rootBlock = t.committedRootBlock
	t.level = t.committedLevel
	t.haveFakeroot = t.committedHaveFakeroot
	t.itemCount = t.committedItemCount
	t.sequential = t.committedSequential
	t.seqCount = t.committedSeqCount
}

// Close releases the table's open file handle. A table with an
// uncommitted transaction is implicitly cancelled first.
func (t *Table) Close() error {
	if t.closed {
		return nil
	}
	t.Cancel()
	t.closed = true
	if t.file != nil {
		return t.file.Close()
	}
	return nil
}

func (t *Table) nextBaseFile(revision uint32) *baseFile {
	return &baseFile{
		revision:     revision,
		blockSize:    uint32(t.blockSize),
		rootBlock:    t.rootBlock,
		level:        uint8(t.level),
		haveFakeroot: t.haveFakeroot,
		sequential:   t.sequential,
		dangerous:    t.dangerous,
		itemCount:    t.itemCount,
		seqCount:     t.seqCount,
		lastBlock:    t.alloc.current.lastBlock(),
		bitmap:       t.alloc.current.bits,
	}
}

func (t *Table) writeBase(letter byte, b *baseFile) error {
	tmp := t.basePath(letter) + ".tmp"
	if err := os.WriteFile(tmp, b.encode(), 0o644); err != nil {
		return &ErrDatabase{Message: "write base: " + err.Error()}
	}
	f, err := os.OpenFile(tmp, os.O_RDWR, 0o644)
	if err == nil {
		_ = f.Sync()
		_ = f.Close()
	}
	if err := os.Rename(tmp, t.basePath(letter)); err != nil {
		// NFS clients can return a spurious error on rename when the
		// rename in fact succeeded server-side; only treat this as
		// fatal if the destination doesn't exist afterward.
		if _, statErr := os.Stat(t.basePath(letter)); statErr != nil {
			return &ErrDatabase{Message: "rename base: " + err.Error()}
		}
	}
	return nil
}
