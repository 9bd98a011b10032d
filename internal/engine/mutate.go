package engine

// chunkTag splits a tag payload into the pieces that will each become
// one item's worth of key+counter+tag. A zero-length tag still yields
// one (empty) chunk so that "key present with an empty value" is
// distinguishable from "key absent".
func chunkTag(tag []byte, blockSize int) [][]byte {
	if len(tag) == 0 {
		return [][]byte{{}}
	}
	payloadMax := blockSize / 4
	if payloadMax < 1 {
		payloadMax = 1
	}
	chunks := make([][]byte, 0, len(tag)/payloadMax+1)
	for i := 0; i < len(tag); i += payloadMax {
		end := i + payloadMax
		if end > len(tag) {
			end = len(tag)
		}
		chunks = append(chunks, tag[i:end])
	}
	return chunks
}

// createInitialRoot replaces the synthesized, empty fake root with a
// real, empty leaf block, the first time a table that has never held
// an entry receives one.
func (t *Table) createInitialRoot() error {
	n := t.alloc.nextFreeBlock()
	blk := newBlock(t.blockSize)
	setBlockLevel(blk, 0)
	setBlockRevision(blk, t.writeRevision())
	setBlockDirEnd(blk, dirStart)
	setBlockTotalFree(blk, t.blockSize-dirStart)
	setBlockMaxFree(blk, t.blockSize-dirStart)
	t.changedBlocks[n] = blk
	t.rootBlock = n
	t.level = 0
	t.cur = nil
	return nil
}

// Add inserts or wholesale replaces the entry for key with tag,
// chunking tag across as many items as needed and compressing each
// chunk independently when doing so pays for itself.
func (t *Table) Add(key, tag []byte) error {
	if t.closed {
		return errClosed()
	}
	if len(key) == 0 || len(key) > maxKeyLen {
		return &ErrUnimplemented{Message: "key length out of range"}
	}
	chunks := chunkTag(tag, t.blockSize)
	if len(chunks) > componentLimit {
		return &ErrUnimplemented{Message: "tag too large to chunk"}
	}

	if t.haveFakeroot {
		if err := t.createInitialRoot(); err != nil {
			return err
		}
	}
	if err := t.ensureCursor(); err != nil {
		return err
	}

	isNewKey := true
	if exact, err := t.cur.find(Key{Body: key, Counter: firstComponentCounter}); err != nil {
		return err
	} else if exact {
		isNewKey = false
		if err := t.deleteKeyChunks(key); err != nil {
			return err
		}
		if t.haveFakeroot {
			if err := t.createInitialRoot(); err != nil {
				return err
			}
			if err := t.ensureCursor(); err != nil {
				return err
			}
		}
	}

	total := uint16(len(chunks))
	for i, payload := range chunks {
		item := payload
		compressed := false
		if stored, ok := compressTag(payload, 6); ok {
			item = stored
			compressed = true
		}
		counter := firstComponentCounter + uint16(i)
		built := buildItem(key, counter, total, compressed, item)

		if err := t.cur.loadRoot(); err != nil {
			return err
		}
		if _, err := t.cur.find(Key{Body: key, Counter: counter}); err != nil {
			return err
		}
		idx := (t.cur.C[0].c - dirStart) / slotSize

		landedN, landedC, err := t.insertAtLevel(t.cur, 0, idx+1, built)
		if err != nil {
			return err
		}
		t.trackSequential(landedN, landedC)
	}

	if isNewKey {
		t.itemCount++
	}
	t.haveFakeroot = false
	return nil
}

// trackSequential updates the sequential-insertion heuristic after a
// leaf item lands at (landedN, landedC). changedN/changedC/hasChanged
// record where the previous insertion in this transaction landed. If
// the find for this insertion parked the leaf cursor on exactly that
// item (the next key of an ascending run), seqCount is nudged toward
// zero; a find that parked anywhere else resets seqCount to the floor
// and clears sequential. The first insertion of a transaction has no
// previous landing to compare with and counts as adjacent. sequential
// itself is never set back to true once cleared - it is only ever true
// because CreateAndOpen started it that way - so a single non-adjacent
// insertion turns it off for good.
func (t *Table) trackSequential(landedN uint32, landedC int) {
	foundN, foundC := t.cur.C[0].n, t.cur.C[0].c
	if t.hasChanged && (foundN != t.changedN || foundC != t.changedC) {
		t.seqCount = seqStartPoint
		t.sequential = false
	} else if t.seqCount < 0 {
		t.seqCount++
	}
	t.changedN = landedN
	t.changedC = landedC
	t.hasChanged = true
}

// insertAtLevel places item at slot insertIdx of the block the cursor
// currently has loaded at level, copy-on-write cloning that block first.
// If the block has no room, it is split and the resulting separator is
// recursively inserted one level up (or a new root is grown, if level
// was the root). It reports the block number and directory byte offset
// the item actually ended up at, which may differ from (level's block,
// insertIdx) if a split relocated it.
func (t *Table) insertAtLevel(cur *cursor, level, insertIdx int, item []byte) (landedN uint32, landedC int, err error) {
	if err := cur.alter(level); err != nil {
		return 0, 0, err
	}
	blk := cur.C[level].block
	if addItemToBlock(blk, insertIdx, item, t.scratch) {
		return cur.C[level].n, slotAt(insertIdx), nil
	}
	return t.splitAndInsert(cur, level, insertIdx, item)
}

// addItemToBlock compacts blk and, if the compacted free space can hold
// item plus one directory slot, inserts it at slot insertIdx and
// reports true. It leaves blk untouched (aside from the compaction) and
// reports false when there isn't room, so the caller can split instead.
func addItemToBlock(blk []byte, insertIdx int, item []byte, scratch []byte) bool {
	need := len(item) + slotSize
	compact(blk, scratch)
	if blockTotalFree(blk) < need {
		return false
	}
	dirEnd := blockDirEnd(blk)
	itemsStart := dirEnd + blockTotalFree(blk)
	newOff := itemsStart - len(item)
	copy(blk[newOff:itemsStart], item)

	slotStart := dirStart + insertIdx*slotSize
	copy(blk[slotStart+slotSize:dirEnd+slotSize], blk[slotStart:dirEnd])
	setSlotItemOffset(blk, slotStart, newOff)
	setBlockDirEnd(blk, dirEnd+slotSize)

	remaining := blockTotalFree(blk) - need
	setBlockTotalFree(blk, remaining)
	setBlockMaxFree(blk, remaining)
	return true
}

// rebuildBlock clears blk and repacks it from scratch to hold exactly
// items, in order, with a single contiguous free gap after the
// directory. Used when a block is split, since the resulting halves
// never fit the incremental addItemToBlock path.
func rebuildBlock(blk []byte, items [][]byte, blockSize int) {
	for i := range blk {
		blk[i] = 0
	}
	e := blockSize
	dirEnd := dirStart
	for _, it := range items {
		l := len(it)
		e -= l
		copy(blk[e:e+l], it)
		setSlotItemOffset(blk, dirEnd, e)
		dirEnd += slotSize
	}
	setBlockDirEnd(blk, dirEnd)
	free := e - dirEnd
	setBlockTotalFree(blk, free)
	setBlockMaxFree(blk, free)
}

// shortestSeparator returns the shortest prefix of right that still
// compares greater than left, so a promoted separator key need not carry
// the full weight of the right block's first key body. When left and
// right are identical - the two halves of a single chunked entry split
// across the block boundary - no prefix can distinguish them and the
// full right body is returned instead.
func shortestSeparator(left, right []byte) []byte {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	i := 0
	for i < n && left[i] == right[i] {
		i++
	}
	if i == len(right) {
		return append([]byte(nil), right...)
	}
	return append([]byte(nil), right[:i+1]...)
}

// splitAndInsert divides the (already copy-on-write owned) block at
// level in two, keeping the lower half in place and writing the upper
// half to a freshly allocated block, then promotes a separator key to
// the parent level - growing a new root if level had none.
//
// When the table is in fully sequential mode (every insertion so far
// has landed adjacent to the last) and this insertion is appending past
// the last existing item, the split keeps every existing item in the
// left half and gives the new item its own right-hand block rather than
// bisecting: an ascending-only key stream never needs the left half
// rebalanced, since nothing will ever be inserted back into it above
// this point.
func (t *Table) splitAndInsert(cur *cursor, level, insertIdx int, item []byte) (landedN uint32, landedC int, err error) {
	blk := cur.C[level].block
	n := slotCount(blk)

	items := make([][]byte, 0, n+1)
	for i := 0; i < n; i++ {
		if i == insertIdx {
			items = append(items, item)
		}
		off := itemOffsetAt(blk, i)
		items = append(items, append([]byte(nil), blk[off:off+itemSize(blk, off)]...))
	}
	if insertIdx == n {
		items = append(items, item)
	}

	mid := len(items) / 2
	if level == 0 && insertIdx == n && t.sequential && t.seqCount >= 0 {
		mid = n
	}
	if level > 0 && mid == 0 {
		mid = 1
	}
	leftItems := items[:mid]
	rightItems := items[mid:]

	var sepKeyBody []byte
	if level == 0 {
		sepKeyBody = shortestSeparator(itemKeyBody(leftItems[len(leftItems)-1], 0), itemKeyBody(rightItems[0], 0))
	} else {
		sepKeyBody = append([]byte(nil), itemKeyBody(rightItems[0], 0)...)
	}
	sepCounter := itemCounter(rightItems[0], 0)

	if level > 0 {
		childN := itemChildBlock(rightItems[0], 0)
		rightItems[0] = nullKeyItem(childN)
	}

	rebuildBlock(blk, leftItems, t.blockSize)
	setBlockLevel(blk, level)
	setBlockRevision(blk, t.writeRevision())

	newN := t.alloc.nextFreeBlock()
	newBlk := newBlock(t.blockSize)
	rebuildBlock(newBlk, rightItems, t.blockSize)
	setBlockLevel(newBlk, level)
	setBlockRevision(newBlk, t.writeRevision())
	t.changedBlocks[newN] = newBlk

	sepItem := buildChildItem(sepKeyBody, sepCounter, newN)

	if insertIdx < mid {
		landedN, landedC = cur.C[level].n, slotAt(insertIdx)
	} else {
		landedN, landedC = newN, slotAt(insertIdx-mid)
	}

	if level == cur.level {
		if err := t.splitRoot(cur, level, cur.C[level].n, newN, sepItem); err != nil {
			return 0, 0, err
		}
		return landedN, landedC, nil
	}

	parentIdx := (cur.C[level+1].c - dirStart) / slotSize
	if _, _, err := t.insertAtLevel(cur, level+1, parentIdx+1, sepItem); err != nil {
		return 0, 0, err
	}
	return landedN, landedC, nil
}

// splitRoot grows the tree by one level: a fresh root block is written
// holding two entries, a null-keyed pointer at leftN (everything the
// old root used to cover) and sepItem pointing at rightN.
func (t *Table) splitRoot(cur *cursor, oldLevel int, leftN, rightN uint32, sepItem []byte) error {
	newLevel := oldLevel + 1
	if newLevel >= btreeCursorLevels {
		return &ErrDatabaseCorrupt{Message: "tree exceeded maximum depth"}
	}
	newRootN := t.alloc.nextFreeBlock()
	newRoot := newBlock(t.blockSize)
	rebuildBlock(newRoot, [][]byte{nullKeyItem(leftN), sepItem}, t.blockSize)
	setBlockLevel(newRoot, newLevel)
	setBlockRevision(newRoot, t.writeRevision())
	t.changedBlocks[newRootN] = newRoot

	t.rootBlock = newRootN
	t.level = newLevel
	cur.level = newLevel
	cur.C[newLevel] = cursorLevel{block: newRoot, n: newRootN, c: slotAt(0), rewrite: true}
	return nil
}
