package engine

import "encoding/binary"

// Block header layout (11 bytes), all little-endian:
//
//	revision(u32) level(u8) max_free(u16) total_free(u16) dir_end(u16)
//
// The slot directory starts immediately after the header and holds one
// 2-byte item offset per slot, densely packed and sorted by key.
const (
	hdrRevision  = 0
	hdrLevel     = 4
	hdrMaxFree   = 5
	hdrTotalFree = 7
	hdrDirEnd    = 9

	dirStart = 11
	slotSize = 2
)

func blockRevision(b []byte) uint32    { return binary.LittleEndian.Uint32(b[hdrRevision:]) }
func setBlockRevision(b []byte, v uint32) { binary.LittleEndian.PutUint32(b[hdrRevision:], v) }

func blockLevel(b []byte) int      { return int(b[hdrLevel]) }
func setBlockLevel(b []byte, v int) { b[hdrLevel] = byte(v) }

func blockMaxFree(b []byte) int       { return int(binary.LittleEndian.Uint16(b[hdrMaxFree:])) }
func setBlockMaxFree(b []byte, v int) { binary.LittleEndian.PutUint16(b[hdrMaxFree:], uint16(v)) }

func blockTotalFree(b []byte) int       { return int(binary.LittleEndian.Uint16(b[hdrTotalFree:])) }
func setBlockTotalFree(b []byte, v int) { binary.LittleEndian.PutUint16(b[hdrTotalFree:], uint16(v)) }

func blockDirEnd(b []byte) int       { return int(binary.LittleEndian.Uint16(b[hdrDirEnd:])) }
func setBlockDirEnd(b []byte, v int) { binary.LittleEndian.PutUint16(b[hdrDirEnd:], uint16(v)) }

// slotItemOffset/setSlotItemOffset read and write the 2-byte directory
// entry at byte offset c (c is itself a byte offset into the block, in
// the range [dirStart, dirEnd)).
func slotItemOffset(b []byte, c int) int {
	return int(binary.LittleEndian.Uint16(b[c : c+slotSize]))
}

func setSlotItemOffset(b []byte, c, itemOffset int) {
	binary.LittleEndian.PutUint16(b[c:c+slotSize], uint16(itemOffset))
}

// newBlock allocates a zeroed block of the table's configured size.
func newBlock(size int) []byte {
	return make([]byte, size)
}

// compact rewrites every item in the block contiguously from the tail
// end toward the end of the directory, leaving a single contiguous free
// gap between dir_end and the first item. After compact, max_free ==
// total_free.
func compact(b []byte, scratch []byte) {
	blockSize := len(b)
	e := blockSize
	dirEnd := blockDirEnd(b)
	for c := dirStart; c < dirEnd; c += slotSize {
		off := slotItemOffset(b, c)
		l := itemSize(b, off)
		e -= l
		copy(scratch[e:e+l], b[off:off+l])
		setSlotItemOffset(b, c, e)
	}
	copy(b[e:], scratch[e:])
	free := e - dirEnd
	setBlockTotalFree(b, free)
	setBlockMaxFree(b, free)
}

// itemOffsetAtSlot returns the item offset stored in the directory slot
// at slotByteOffset; the argument is already a byte offset into the
// block (as kept in a cursor level's c), not a 0-based slot index.
func itemOffsetAtSlot(b []byte, slotByteOffset int) int {
	return slotItemOffset(b, slotByteOffset)
}
