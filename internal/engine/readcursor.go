package engine

import "bytes"

// ReadCursor iterates a table's committed revision in key order,
// independent of any transaction the table's writer has in progress.
// It is a point-in-time snapshot: once created it never observes a
// later Commit, matching the copy-on-write guarantee that a reader
// never sees a tree mutate underneath it.
type ReadCursor struct {
	t        *Table
	revision uint32
	level    int
	empty    bool
	C        [btreeCursorLevels]cursorLevel
}

// NewReadCursor snapshots the table's most recently committed
// revision. The cursor starts unpositioned; call Rewind, SeekLast, or
// Seek before reading Key/Tag.
func (t *Table) NewReadCursor() (*ReadCursor, error) {
	rc := &ReadCursor{t: t, revision: t.committedRevision, level: t.committedLevel, empty: t.committedHaveFakeroot}
	if rc.empty {
		return rc, nil
	}
	if err := rc.loadBlock(rc.level, t.committedRootBlock); err != nil {
		return nil, err
	}
	return rc, nil
}

func (rc *ReadCursor) loadBlock(level int, n uint32) error {
	blk := newBlock(rc.t.blockSize)
	if err := rc.t.file.ReadBlock(n, blk); err != nil {
		return &ErrDatabaseCorrupt{Message: "read cursor: " + err.Error()}
	}
	if blockRevision(blk) > rc.revision {
		return &ErrDatabaseModified{Message: "block revision newer than cursor snapshot"}
	}
	rc.C[level] = cursorLevel{block: blk, n: n}
	return nil
}

// Rewind positions the cursor on the first (lowest-key) entry.
func (rc *ReadCursor) Rewind() (bool, error) {
	if rc.empty {
		return false, nil
	}
	level := rc.level
	for {
		lv := &rc.C[level]
		if slotCount(lv.block) == 0 {
			return false, nil
		}
		lv.c = slotAt(0)
		if level == 0 {
			return true, nil
		}
		childN := itemChildBlock(lv.block, slotItemOffset(lv.block, lv.c))
		if err := rc.loadBlock(level-1, childN); err != nil {
			return false, err
		}
		level--
	}
}

// SeekLast positions the cursor on the last (highest-key) entry.
func (rc *ReadCursor) SeekLast() (bool, error) {
	if rc.empty {
		return false, nil
	}
	level := rc.level
	for {
		lv := &rc.C[level]
		n := slotCount(lv.block)
		if n == 0 {
			return false, nil
		}
		lv.c = slotAt(n - 1)
		if level == 0 {
			return true, nil
		}
		childN := itemChildBlock(lv.block, slotItemOffset(lv.block, lv.c))
		if err := rc.loadBlock(level-1, childN); err != nil {
			return false, err
		}
		level--
	}
}

// Seek positions the cursor at the entry exactly matching key, if
// present, and reports whether it found one.
func (rc *ReadCursor) Seek(key []byte) (bool, error) {
	if rc.empty {
		return false, nil
	}
	target := Key{Body: key, Counter: firstComponentCounter}
	for level := rc.level; level >= 0; level-- {
		lv := &rc.C[level]
		hint := -1
		if lv.c >= dirStart {
			hint = (lv.c - dirStart) / slotSize
		}
		idx, eq := findInBlock(lv.block, target, level == 0, hint)
		if idx < 0 {
			return false, nil
		}
		lv.c = slotAt(idx)
		if level == 0 {
			return eq, nil
		}
		childN := itemChildBlock(lv.block, slotItemOffset(lv.block, lv.c))
		if err := rc.loadBlock(level-1, childN); err != nil {
			return false, err
		}
	}
	return false, nil
}

// Next advances to the next entry (skipping past any remaining chunks
// of the current one) and reports whether one exists.
func (rc *ReadCursor) Next() (bool, error) {
	if rc.empty {
		return false, nil
	}
	key := rc.Key()
	for {
		ok, err := rc.advance(true)
		if err != nil || !ok {
			return ok, err
		}
		if !bytes.Equal(rc.Key(), key) {
			return true, nil
		}
	}
}

// Prev is the mirror image of Next.
func (rc *ReadCursor) Prev() (bool, error) {
	if rc.empty {
		return false, nil
	}
	key := rc.Key()
	for {
		ok, err := rc.advance(false)
		if err != nil || !ok {
			return ok, err
		}
		if !bytes.Equal(rc.Key(), key) {
			return true, nil
		}
	}
}

func (rc *ReadCursor) advance(forward bool) (bool, error) {
	level := 0
	for {
		lv := &rc.C[level]
		idx := (lv.c - dirStart) / slotSize
		if forward {
			if idx+1 < slotCount(lv.block) {
				lv.c = slotAt(idx + 1)
				break
			}
		} else if idx > 0 {
			lv.c = slotAt(idx - 1)
			break
		}
		if level+1 > rc.level {
			return false, nil
		}
		level++
	}
	for level > 0 {
		childN := itemChildBlock(rc.C[level].block, slotItemOffset(rc.C[level].block, rc.C[level].c))
		if err := rc.loadBlock(level-1, childN); err != nil {
			return false, err
		}
		if forward {
			rc.C[level-1].c = slotAt(0)
		} else {
			rc.C[level-1].c = slotAt(slotCount(rc.C[level-1].block) - 1)
		}
		level--
	}
	return true, nil
}

// Key returns the key body of the current entry's first chunk.
func (rc *ReadCursor) Key() []byte {
	off := slotItemOffset(rc.C[0].block, rc.C[0].c)
	return itemKeyBody(rc.C[0].block, off)
}

// Tag reassembles the full value of the current entry, decompressing
// any compressed chunks.
func (rc *ReadCursor) Tag() ([]byte, error) {
	key := rc.Key()
	var out []byte
	wantCounter := firstComponentCounter
	walker := *rc // independent copy: Tag must not move the caller's cursor
	for {
		blk := walker.C[0].block
		off := slotItemOffset(blk, walker.C[0].c)
		if !bytes.Equal(itemKeyBody(blk, off), key) {
			break
		}
		if itemCounter(blk, off) != wantCounter {
			return nil, &ErrDatabaseCorrupt{Message: "missing tag chunk"}
		}
		chunk := itemTag(blk, off)
		if itemCompressed(blk, off) {
			dec, err := decompressTag(chunk)
			if err != nil {
				return nil, err
			}
			chunk = dec
		}
		out = append(out, chunk...)
		if wantCounter == itemComponents(blk, off) {
			break
		}
		wantCounter++
		ok, err := (&walker).advance(true)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	return out, nil
}
