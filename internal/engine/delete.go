package engine

import "bytes"

// Del removes key's entry, including every chunk of a multi-item tag.
// It reports false, nil for a key that was never present.
func (t *Table) Del(key []byte) (bool, error) {
	if t.closed {
		return false, errClosed()
	}
	if len(key) == 0 || len(key) > maxKeyLen {
		return false, nil
	}
	if t.haveFakeroot {
		return false, nil
	}
	if err := t.ensureCursor(); err != nil {
		return false, err
	}
	exact, err := t.cur.find(Key{Body: key, Counter: firstComponentCounter})
	if err != nil {
		return false, err
	}
	if !exact {
		return false, nil
	}
	if err := t.deleteKeyChunks(key); err != nil {
		return false, err
	}
	if t.itemCount > 0 {
		t.itemCount--
	}
	return true, nil
}

// deleteKeyChunks removes every item sharing key's body, one chunk
// (counter value) at a time. It first counts the run of matching chunks
// using a throwaway copy of the cursor, then re-finds and deletes each
// counter in turn, from firstComponentCounter up - counters on
// surviving chunks never change, so a counter that hasn't been deleted
// yet is still exactly where it was.
func (t *Table) deleteKeyChunks(key []byte) error {
	if err := t.cur.loadRoot(); err != nil {
		return err
	}
	exact, err := t.cur.find(Key{Body: key, Counter: firstComponentCounter})
	if err != nil {
		return err
	}
	if !exact {
		return nil
	}

	count := 1
	walker := *t.cur
	for {
		ok, err := (&walker).next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		blk := walker.C[0].block
		off := slotItemOffset(blk, walker.C[0].c)
		if !bytes.Equal(itemKeyBody(blk, off), key) {
			break
		}
		count++
	}

	for c := 0; c < count; c++ {
		counter := firstComponentCounter + uint16(c)
		if err := t.cur.loadRoot(); err != nil {
			return err
		}
		if _, err := t.cur.find(Key{Body: key, Counter: counter}); err != nil {
			return err
		}
		if err := t.deleteAtCursor(t.cur); err != nil {
			return err
		}
	}
	return nil
}

// deleteAtCursor removes the leaf item the cursor is currently parked
// on, freeing and unlinking any block this empties all the way up to
// (and including, if warranted) the root.
func (t *Table) deleteAtCursor(cur *cursor) error {
	return t.deleteAtLevel(cur, 0)
}

// deleteAtLevel removes the item at cur.C[level].c from the
// (copy-on-write cloned) block at level. If that empties a non-root
// block, the block is freed and the separator entry that pointed to it
// is removed from the parent in turn, recursing upward; reaching the
// root always runs collapseRoot, whether or not the root emptied,
// since a root can also need to shrink by a level without ever holding
// zero items (down to exactly one child, which then becomes redundant).
func (t *Table) deleteAtLevel(cur *cursor, level int) error {
	if err := cur.alter(level); err != nil {
		return err
	}
	blk := cur.C[level].block
	idx := (cur.C[level].c - dirStart) / slotSize
	removeItemFromBlock(blk, idx)

	if level > 0 && idx == 0 && slotCount(blk) > 0 {
		if err := replaceItemAtSlot(blk, 0, t.scratch); err != nil {
			return err
		}
	}

	if level == cur.level {
		return t.collapseRoot(cur)
	}
	if slotCount(blk) > 0 {
		return nil
	}

	t.alloc.freeBlock(cur.C[level].n)
	delete(t.changedBlocks, cur.C[level].n)
	return t.deleteAtLevel(cur, level+1)
}

// collapseRoot shrinks the tree by as many levels as the just-completed
// delete now allows: an internal root left with exactly one child
// entry is redundant (everything it used to distinguish is gone), so
// that child is adopted as the new root and the old root block is
// freed; this repeats until the root holds more than one item, or is a
// leaf. A leaf root that emptied out entirely reverts the table to its
// synthesized empty-table state rather than persisting a pointless
// block.
func (t *Table) collapseRoot(cur *cursor) error {
	for {
		level := cur.level
		blk := cur.C[level].block
		n := slotCount(blk)

		if level == 0 {
			if n == 0 {
				t.alloc.freeBlock(cur.C[0].n)
				delete(t.changedBlocks, cur.C[0].n)
				t.haveFakeroot = true
			}
			return nil
		}
		if n == 0 {
			return &ErrDatabaseCorrupt{Message: "internal root block has no items"}
		}
		if n > 1 {
			return nil
		}

		childN := itemChildBlock(blk, itemOffsetAt(blk, 0))
		t.alloc.freeBlock(cur.C[level].n)
		delete(t.changedBlocks, cur.C[level].n)

		newLevel := level - 1
		if err := cur.blockToCursor(newLevel, childN); err != nil {
			return err
		}
		cur.level = newLevel
		t.rootBlock = childN
		t.level = newLevel
	}
}

// replaceItemAtSlot rewrites the item at idx with a null-keyed item
// pointing at the same child, preserving slot 0's "always carries an
// empty key" invariant after the item that previously held it has been
// removed and this one promoted up to take its place. A null-keyed item
// is never larger than the item it replaces, so this can never fail to
// fit.
func replaceItemAtSlot(blk []byte, idx int, scratch []byte) error {
	off := itemOffsetAt(blk, idx)
	childN := itemChildBlock(blk, off)
	removeItemFromBlock(blk, idx)
	if !addItemToBlock(blk, idx, nullKeyItem(childN), scratch) {
		return &ErrDatabaseCorrupt{Message: "re-sentineling internal block overflowed"}
	}
	return nil
}

// removeItemFromBlock drops the directory slot at idx and folds its
// item bytes back into total_free. max_free is left untouched, since
// the freed bytes usually aren't contiguous with the existing gap; the
// next addItemToBlock call recomputes it precisely via compact.
func removeItemFromBlock(blk []byte, idx int) {
	c := dirStart + idx*slotSize
	off := slotItemOffset(blk, c)
	l := itemSize(blk, off)
	dirEnd := blockDirEnd(blk)
	copy(blk[c:dirEnd-slotSize], blk[c+slotSize:dirEnd])
	setBlockDirEnd(blk, dirEnd-slotSize)
	setBlockTotalFree(blk, blockTotalFree(blk)+l+slotSize)
}
