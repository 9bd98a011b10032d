package engine

import "encoding/binary"

// cursorLevel holds one level of the path from root to leaf: the block
// buffer itself, the byte offset of the directory slot the cursor is
// currently parked on (or -1 before the first find), the block number
// that buffer was loaded from, and whether that buffer has already been
// copy-on-write cloned during the current transaction.
type cursorLevel struct {
	block   []byte
	c       int
	n       uint32
	rewrite bool
}

// cursor walks a path from the root (cursor.level == t.level) down to a
// leaf (level 0). Mutating operations keep exactly one cursor alive at a
// time on a Table; read-only iteration uses a second, independent
// cursor so it cannot be confused with the writer's.
type cursor struct {
	t     *Table
	level int
	C     [btreeCursorLevels]cursorLevel
}

func newCursor(t *Table) *cursor {
	cur := &cursor{t: t, level: t.level}
	for i := range cur.C {
		cur.C[i].c = -1
	}
	return cur
}

// blockToCursor loads block n into level, either from the in-memory
// changed-block cache (if this transaction already wrote it) or from
// the data file. A block read from disk for a level above the cursor's
// own writer is checked against the snapshot revision recorded when the
// table was opened; a newer revision on disk means another writer
// discarded the base this reader had open.
func (cur *cursor) blockToCursor(level int, n uint32) error {
	t := cur.t
	if blk, ok := t.changedBlocks[n]; ok {
		cur.C[level].block = blk
		cur.C[level].n = n
		cur.C[level].rewrite = true
		return nil
	}
	blk := make([]byte, t.blockSize)
	if err := t.readBlock(n, blk); err != nil {
		return err
	}
	if blockRevision(blk) > t.revision {
		return &ErrDatabaseModified{Message: "block revision newer than table snapshot"}
	}
	cur.C[level].block = blk
	cur.C[level].n = n
	cur.C[level].rewrite = false
	return nil
}

// alter ensures the block at level is exclusively owned by the current
// transaction (copy-on-write): if it hasn't been cloned yet this
// transaction, allocate a fresh block number, mark level rewritable,
// record the old block number as free, and splice the new child pointer
// into the parent level (recursing upward as needed, bottoming out at
// the root).
func (cur *cursor) alter(level int) error {
	t := cur.t
	lv := &cur.C[level]
	if lv.rewrite {
		return nil
	}
	oldN := lv.n
	newN := t.alloc.nextFreeBlock()
	t.alloc.freeBlock(oldN)
	setBlockRevision(lv.block, t.writeRevision())
	lv.n = newN
	lv.rewrite = true
	t.changedBlocks[newN] = lv.block
	delete(t.changedBlocks, oldN)

	if level+1 > cur.level {
		t.rootBlock = newN
		return nil
	}
	parent := level + 1
	if err := cur.alter(parent); err != nil {
		return err
	}
	setItemChildBlock(cur.C[parent].block, slotItemOffset(cur.C[parent].block, cur.C[parent].c), newN)
	return nil
}

// setItemChildBlock overwrites the 4-byte child pointer of the item at
// c in blk in place, without touching the item's length or key.
func setItemChildBlock(blk []byte, c int, n uint32) {
	off := itemTagOffset(blk, c)
	binary.LittleEndian.PutUint32(blk[off:off+childPtrSize], n)
}
