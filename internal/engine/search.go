package engine

// slotCount returns the number of directory entries in blk.
func slotCount(blk []byte) int {
	return (blockDirEnd(blk) - dirStart) / slotSize
}

// slotAt returns the byte offset of the i'th directory slot.
func slotAt(i int) int {
	return dirStart + i*slotSize
}

func itemOffsetAt(blk []byte, i int) int {
	return slotItemOffset(blk, slotAt(i))
}

// findInBlock returns the slot index of the rightmost item whose key is
// <= key, and whether that item's key is exactly equal. Every non-leaf
// block's slot 0 carries a null (empty) key that sorts before any real
// key, so a non-leaf search never runs off the left edge; a leaf block
// has no such sentinel, so leaf must be true there and a key less than
// every item in the block correctly reports -1 rather than a bogus
// match on slot 0.
//
// hint, if in range, names the slot a nearby previous find/insert
// landed on: most lookups are for a key adjacent to the last one, so
// probing hint (and hint+1) first usually resolves the search without
// a full binary chop.
func findInBlock(blk []byte, key Key, leaf bool, hint int) (slotIndex int, exact bool) {
	n := slotCount(blk)
	if n == 0 {
		return -1, false
	}
	best := 0
	if leaf {
		best = -1
	}
	lo, hi := 0, n-1

	if hint >= 0 && hint < n {
		off := itemOffsetAt(blk, hint)
		switch cmp := itemKey(blk, off).Compare(key); {
		case cmp == 0:
			return hint, true
		case cmp < 0:
			best, lo = hint, hint+1
			if hint+1 < n {
				off2 := itemOffsetAt(blk, hint+1)
				switch cmp2 := itemKey(blk, off2).Compare(key); {
				case cmp2 == 0:
					return hint + 1, true
				case cmp2 < 0:
					best, lo = hint+1, hint+2
				default:
					return best, false
				}
			}
		default:
			hi = hint - 1
		}
	}

	for lo <= hi {
		mid := (lo + hi) / 2
		off := itemOffsetAt(blk, mid)
		cmp := itemKey(blk, off).Compare(key)
		switch {
		case cmp == 0:
			return mid, true
		case cmp < 0:
			best = mid
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return best, false
}

// find descends the tree from the level the cursor is currently parked
// at down to the leaf, positioning every level's c on the slot whose
// key is the rightmost one <= key. It reports whether the leaf slot is
// an exact match. The slot each level's cursor was last parked on (left
// over from a previous find, next, or prev at that level) is passed to
// findInBlock as a locality hint.
func (cur *cursor) find(key Key) (exact bool, err error) {
	for level := cur.level; level >= 0; level-- {
		blk := cur.C[level].block
		hint := -1
		if cur.C[level].c >= dirStart {
			hint = (cur.C[level].c - dirStart) / slotSize
		}
		idx, eq := findInBlock(blk, key, level == 0, hint)
		if idx < 0 {
			// Only a level-0 block may legitimately be empty: the
			// leaf just created for the table's very first insert.
			// Internal blocks always carry at least a null-key item.
			if level != 0 {
				return false, &ErrDatabaseCorrupt{Message: "empty internal block directory"}
			}
			cur.C[0].c = dirStart - slotSize
			return false, nil
		}
		cur.C[level].c = slotAt(idx)
		if level == 0 {
			return eq, nil
		}
		childN := itemChildBlock(blk, slotItemOffset(blk, cur.C[level].c))
		if err := cur.blockToCursor(level-1, childN); err != nil {
			return false, err
		}
	}
	return false, &ErrDatabaseCorrupt{Message: "cursor has no levels"}
}

// loadRoot (re)loads the root block into the cursor's top level, used
// at the start of every transaction and whenever a read cursor is
// created against the table's committed revision.
func (cur *cursor) loadRoot() error {
	t := cur.t
	cur.level = t.level
	return cur.blockToCursor(t.level, t.rootBlock)
}

// next advances the cursor to the next leaf item in key order, ascending
// and redescending across block boundaries as needed. It returns false
// once the cursor runs off the right edge of the tree.
func (cur *cursor) next() (bool, error) {
	level := 0
	for {
		lv := &cur.C[level]
		idx := (lv.c - dirStart) / slotSize
		if idx+1 < slotCount(lv.block) {
			lv.c = slotAt(idx + 1)
			break
		}
		if level+1 > cur.level {
			return false, nil
		}
		level++
	}
	for level > 0 {
		childN := itemChildBlock(cur.C[level].block, slotItemOffset(cur.C[level].block, cur.C[level].c))
		if err := cur.blockToCursor(level-1, childN); err != nil {
			return false, err
		}
		cur.C[level-1].c = slotAt(0)
		level--
	}
	return true, nil
}

// prev is the mirror image of next.
func (cur *cursor) prev() (bool, error) {
	level := 0
	for {
		lv := &cur.C[level]
		idx := (lv.c - dirStart) / slotSize
		if idx > 0 {
			lv.c = slotAt(idx - 1)
			break
		}
		if level+1 > cur.level {
			return false, nil
		}
		level++
	}
	for level > 0 {
		childN := itemChildBlock(cur.C[level].block, slotItemOffset(cur.C[level].block, cur.C[level].c))
		if err := cur.blockToCursor(level-1, childN); err != nil {
			return false, err
		}
		cur.C[level-1].c = slotAt(slotCount(cur.C[level-1].block) - 1)
		level--
	}
	return true, nil
}

// nextForSequential and prevForSequential walk in the same key order as
// next/prev, but are the entry points tag reassembly uses once it knows
// it is walking the run of chunks belonging to a single entry rather
// than iterating unrelated keys - kept distinct from next/prev so that
// call site names which kind of traversal it is doing.
func (cur *cursor) nextForSequential() (bool, error) { return cur.next() }
func (cur *cursor) prevForSequential() (bool, error) { return cur.prev() }
