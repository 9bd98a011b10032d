package engine

import (
	"bytes"
	"encoding/binary"
)

// Item layout within a block:
//
//	I(u16 LE total length) K(u8 key length) key_body(K bytes)
//	C(u16 BE counter, top bit = compressed flag) M(u16 BE component count)
//	tag_or_child_pointer
//
// C and M are stored big-endian (every other multi-byte field is
// little-endian); for C this means comparing the raw bytes of key_body+C
// reproduces numeric counter order, which is what the key ordering rule
// in the data model requires. The top bit of C is reserved for the
// compressed-tag flag, so component counters run 1..0x7fff rather than
// the full 16 bits; componentLimit below is named for that reason.
//
// A key whose tag was split into m chunks stores m items, with counters
// running firstComponentCounter..m and every one of those m items
// carrying the same M == m: a single-chunk entry is indistinguishable
// from a chunk boundary without it.
const (
	itemLenSize       = 2
	itemKeyLenSize    = 1
	itemCounterSize   = 2
	itemComponentSize = 2
	itemHeaderFixed   = itemLenSize + itemKeyLenSize // before key body
	childPtrSize      = 4

	compressedFlag = uint16(0x8000)
	counterMask    = uint16(0x7fff)

	// componentLimit is the largest representable component counter;
	// exceeding it raises ErrUnimplemented.
	componentLimit = int(counterMask)

	// firstComponentCounter is the counter value of the first chunk of
	// a (possibly multi-chunk) entry.
	firstComponentCounter = uint16(1)
)

// Key identifies an item's position in key order: first by its body
// (byte-lexicographic), then - only when two bodies have equal length -
// by its component counter as an unsigned integer.
type Key struct {
	Body    []byte
	Counter uint16
}

// Compare returns <0, 0, >0 as a sorts before, equals, or sorts after b.
func (a Key) Compare(b Key) int {
	if len(a.Body) == len(b.Body) {
		if c := bytes.Compare(a.Body, b.Body); c != 0 {
			return c
		}
		switch {
		case a.Counter < b.Counter:
			return -1
		case a.Counter > b.Counter:
			return 1
		default:
			return 0
		}
	}
	n := len(a.Body)
	if len(b.Body) < n {
		n = len(b.Body)
	}
	if c := bytes.Compare(a.Body[:n], b.Body[:n]); c != 0 {
		return c
	}
	if len(a.Body) < len(b.Body) {
		return -1
	}
	return 1
}

func (a Key) Less(b Key) bool   { return a.Compare(b) < 0 }
func (a Key) Equal(b Key) bool  { return a.Compare(b) == 0 }
func (a Key) LessEq(b Key) bool { return a.Compare(b) <= 0 }

// itemTotalLen reads the I field of the item starting at offset c.
func itemTotalLen(blk []byte, c int) int {
	return int(binary.LittleEndian.Uint16(blk[c : c+itemLenSize]))
}

func setItemTotalLen(item []byte, total int) {
	binary.LittleEndian.PutUint16(item[0:itemLenSize], uint16(total))
}

func itemKeyLen(blk []byte, c int) int {
	return int(blk[c+itemLenSize])
}

func itemKeyBody(blk []byte, c int) []byte {
	kl := itemKeyLen(blk, c)
	start := c + itemHeaderFixed
	return blk[start : start+kl]
}

func itemCounterOffset(c, keyLen int) int {
	return c + itemHeaderFixed + keyLen
}

func itemCounterRaw(blk []byte, c int) uint16 {
	kl := itemKeyLen(blk, c)
	off := itemCounterOffset(c, kl)
	return binary.BigEndian.Uint16(blk[off : off+itemCounterSize])
}

func itemCounter(blk []byte, c int) uint16 {
	return itemCounterRaw(blk, c) & counterMask
}

func itemCompressed(blk []byte, c int) bool {
	return itemCounterRaw(blk, c)&compressedFlag != 0
}

func itemComponentOffset(c, keyLen int) int {
	return itemCounterOffset(c, keyLen) + itemCounterSize
}

// itemComponents reads M, the total number of chunks the entry holding
// this item was split into; every chunk of the same entry carries the
// same value.
func itemComponents(blk []byte, c int) uint16 {
	kl := itemKeyLen(blk, c)
	off := itemComponentOffset(c, kl)
	return binary.BigEndian.Uint16(blk[off : off+itemComponentSize])
}

func itemTagOffset(blk []byte, c int) int {
	kl := itemKeyLen(blk, c)
	return itemComponentOffset(c, kl) + itemComponentSize
}

// itemTag returns the tag/payload bytes of the item at c: for a leaf
// item this is the (possibly compressed) chunk of value bytes; for an
// internal item this is the 4-byte child block pointer.
func itemTag(blk []byte, c int) []byte {
	off := itemTagOffset(blk, c)
	return blk[off : c+itemTotalLen(blk, c)]
}

func itemChildBlock(blk []byte, c int) uint32 {
	return binary.LittleEndian.Uint32(itemTag(blk, c))
}

func itemKey(blk []byte, c int) Key {
	return Key{Body: itemKeyBody(blk, c), Counter: itemCounter(blk, c)}
}

func itemSize(blk []byte, c int) int {
	return itemTotalLen(blk, c)
}

// buildItem allocates a standalone item buffer (not yet placed in a
// block) holding keyBody/counter/components/compressed/tag.
func buildItem(keyBody []byte, counter, components uint16, compressed bool, tag []byte) []byte {
	kl := len(keyBody)
	itemLen := itemHeaderFixed + kl + itemCounterSize + itemComponentSize + len(tag)
	buf := make([]byte, itemLen)
	setItemTotalLen(buf, itemLen)
	buf[itemLenSize] = byte(kl)
	copy(buf[itemHeaderFixed:itemHeaderFixed+kl], keyBody)
	c := counter
	if compressed {
		c |= compressedFlag
	}
	off := itemHeaderFixed + kl
	binary.BigEndian.PutUint16(buf[off:off+itemCounterSize], c)
	off += itemCounterSize
	binary.BigEndian.PutUint16(buf[off:off+itemComponentSize], components)
	off += itemComponentSize
	copy(buf[off:], tag)
	return buf
}

// buildChildItem builds an internal-block item: keyBody (possibly
// truncated/null) paired with its counter and a 4-byte child block
// pointer. The counter must be carried along with a promoted separator
// key so that ordering among chunked-tag components (which share a key
// body but differ only by counter) is preserved one level up the tree.
// An internal item never represents more than one component, so its
// component count is always 1.
func buildChildItem(keyBody []byte, counter uint16, childBlock uint32) []byte {
	tag := make([]byte, childPtrSize)
	binary.LittleEndian.PutUint32(tag, childBlock)
	return buildItem(keyBody, counter, 1, false, tag)
}

// nullKeyItem is the leftmost item of every internal block: an empty key
// body that compares less than any real key, pointing at childBlock.
func nullKeyItem(childBlock uint32) []byte {
	return buildChildItem(nil, 0, childBlock)
}

// fakeRootLeafItem occupies the single slot of a synthesized, in-memory
// empty-table root (have_fakeroot == true).
func fakeRootLeafItem() []byte {
	return buildItem(nil, firstComponentCounter, 1, false, nil)
}

// keyWithCounter copies body and stamps counter, used when forming the
// search/insert key for one component of a chunked tag.
func keyWithCounter(body []byte, counter uint16) Key {
	return Key{Body: body, Counter: counter}
}
