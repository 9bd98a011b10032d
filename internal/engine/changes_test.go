package engine

import (
	"bytes"
	"testing"
)

func TestChangeSetEncodeDecodeRoundTrip(t *testing.T) {
	cs := &ChangeSet{
		Revision:     3,
		TableName:    "mytable",
		BlockSize:    2048,
		RootBlock:    7,
		Level:        1,
		ItemCount:    10,
		HaveFakeroot: false,
		Blocks: map[uint32][]byte{
			0: bytes.Repeat([]byte{0xaa}, 2048),
			7: bytes.Repeat([]byte{0xbb}, 2048),
		},
	}
	data := cs.Encode()
	got, err := DecodeChangeSet(data)
	if err != nil {
		t.Fatalf("DecodeChangeSet: %v", err)
	}
	if got.Revision != cs.Revision || got.TableName != cs.TableName || got.BlockSize != cs.BlockSize ||
		got.RootBlock != cs.RootBlock || got.Level != cs.Level || got.ItemCount != cs.ItemCount {
		t.Fatalf("header mismatch: %+v vs %+v", got, cs)
	}
	if len(got.Blocks) != len(cs.Blocks) {
		t.Fatalf("block count = %d, want %d", len(got.Blocks), len(cs.Blocks))
	}
	for n, want := range cs.Blocks {
		if !bytes.Equal(got.Blocks[n], want) {
			t.Fatalf("block %d mismatch", n)
		}
	}
}

func TestDecodeChangeSetRejectsTruncation(t *testing.T) {
	cs := &ChangeSet{TableName: "t", BlockSize: 3, Blocks: map[uint32][]byte{0: {1, 2, 3}}}
	data := cs.Encode()
	if _, err := DecodeChangeSet(data[:len(data)-2]); err == nil {
		t.Fatal("expected truncated changeset to fail to decode")
	}
}

func TestCommitReturnsChangeSetMatchingWrites(t *testing.T) {
	tbl := mustCreate(t, minBlockSize)
	if err := tbl.Add([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	cs, err := tbl.Commit(tbl.Revision() + 1)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if cs.Revision != 1 {
		t.Fatalf("revision = %d, want 1", cs.Revision)
	}
	if len(cs.Blocks) == 0 {
		t.Fatal("expected at least one changed block")
	}
}
