package engine

import "testing"

func TestKeyCompareSameLengthUsesCounter(t *testing.T) {
	a := Key{Body: []byte("abc"), Counter: 1}
	b := Key{Body: []byte("abc"), Counter: 2}
	if !a.Less(b) {
		t.Fatal("expected lower counter to sort first for equal bodies")
	}
	if b.Less(a) {
		t.Fatal("expected higher counter not to sort first")
	}
}

func TestKeyCompareDifferentLengthComparesPrefix(t *testing.T) {
	short := Key{Body: []byte("ab")}
	long := Key{Body: []byte("abc")}
	if !short.Less(long) {
		t.Fatal("expected shorter body with equal prefix to sort first")
	}
}

func TestKeyCompareDivergingPrefixIgnoresLength(t *testing.T) {
	a := Key{Body: []byte("az")}
	b := Key{Body: []byte("b")}
	if !a.Less(b) {
		t.Fatal("expected 'az' to sort before 'b' despite being longer")
	}
}

func TestBuildItemRoundTrip(t *testing.T) {
	item := buildItem([]byte("hello"), 7, 1, false, []byte("world"))
	blk := make([]byte, len(item)+dirStart)
	copy(blk[dirStart:], item)
	c := dirStart

	if got := itemKeyLen(blk, c); got != 5 {
		t.Fatalf("key len = %d, want 5", got)
	}
	if string(itemKeyBody(blk, c)) != "hello" {
		t.Fatalf("key body = %q", itemKeyBody(blk, c))
	}
	if got := itemCounter(blk, c); got != 7 {
		t.Fatalf("counter = %d, want 7", got)
	}
	if itemCompressed(blk, c) {
		t.Fatal("expected uncompressed")
	}
	if string(itemTag(blk, c)) != "world" {
		t.Fatalf("tag = %q", itemTag(blk, c))
	}
}

func TestBuildItemCompressedFlagSurvivesHighCounter(t *testing.T) {
	item := buildItem(nil, counterMask, 1, true, []byte("x"))
	blk := make([]byte, len(item)+dirStart)
	copy(blk[dirStart:], item)
	c := dirStart

	if !itemCompressed(blk, c) {
		t.Fatal("expected compressed flag set")
	}
	if got := itemCounter(blk, c); got != counterMask {
		t.Fatalf("counter = %d, want %d", got, counterMask)
	}
}

func TestBuildItemStoresComponentCount(t *testing.T) {
	item := buildItem([]byte("k"), firstComponentCounter, 3, false, []byte("chunk"))
	blk := make([]byte, len(item)+dirStart)
	copy(blk[dirStart:], item)
	c := dirStart

	if got := itemComponents(blk, c); got != 3 {
		t.Fatalf("components = %d, want 3", got)
	}
}

func TestBuildChildItemStoresBlockNumber(t *testing.T) {
	item := buildChildItem([]byte("sep"), 0, 42)
	blk := make([]byte, len(item)+dirStart)
	copy(blk[dirStart:], item)
	c := dirStart

	if got := itemChildBlock(blk, c); got != 42 {
		t.Fatalf("child block = %d, want 42", got)
	}
}
