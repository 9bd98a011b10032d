package engine

import "testing"

func TestCompactPacksItemsContiguously(t *testing.T) {
	blk := newBlock(minBlockSize)
	setBlockDirEnd(blk, dirStart)
	setBlockTotalFree(blk, minBlockSize-dirStart)
	setBlockMaxFree(blk, minBlockSize-dirStart)
	scratch := newBlock(minBlockSize)

	items := [][]byte{
		buildItem([]byte("a"), 0, 1, false, []byte("1")),
		buildItem([]byte("b"), 0, 1, false, []byte("2")),
		buildItem([]byte("c"), 0, 1, false, []byte("3")),
	}
	for i, it := range items {
		if !addItemToBlock(blk, i, it, scratch) {
			t.Fatalf("insert %d failed", i)
		}
	}
	if got := slotCount(blk); got != 3 {
		t.Fatalf("slot count = %d, want 3", got)
	}
	if blockMaxFree(blk) != blockTotalFree(blk) {
		t.Fatalf("max_free %d != total_free %d after compaction", blockMaxFree(blk), blockTotalFree(blk))
	}

	for i, want := range []string{"a", "b", "c"} {
		off := itemOffsetAt(blk, i)
		if string(itemKeyBody(blk, off)) != want {
			t.Fatalf("slot %d key = %q, want %q", i, itemKeyBody(blk, off), want)
		}
	}
}

func TestRemoveItemFromBlockShiftsDirectory(t *testing.T) {
	blk := newBlock(minBlockSize)
	setBlockDirEnd(blk, dirStart)
	setBlockTotalFree(blk, minBlockSize-dirStart)
	setBlockMaxFree(blk, minBlockSize-dirStart)
	scratch := newBlock(minBlockSize)

	addItemToBlock(blk, 0, buildItem([]byte("a"), 0, 1, false, nil), scratch)
	addItemToBlock(blk, 1, buildItem([]byte("b"), 0, 1, false, nil), scratch)
	addItemToBlock(blk, 2, buildItem([]byte("c"), 0, 1, false, nil), scratch)

	removeItemFromBlock(blk, 1)

	if got := slotCount(blk); got != 2 {
		t.Fatalf("slot count = %d, want 2", got)
	}
	off0 := itemOffsetAt(blk, 0)
	off1 := itemOffsetAt(blk, 1)
	if string(itemKeyBody(blk, off0)) != "a" || string(itemKeyBody(blk, off1)) != "c" {
		t.Fatalf("unexpected keys after removal: %q, %q", itemKeyBody(blk, off0), itemKeyBody(blk, off1))
	}
}
