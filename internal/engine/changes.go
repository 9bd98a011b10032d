package engine

import (
	"encoding/binary"
	"fmt"
)

// ChangeSet is everything a replica needs to apply one committed
// transaction without re-deriving it from the data file: the new
// revision's header fields plus every block that changed, keyed by
// block number. The changesbus publisher frames one of these per
// commit, and the changesbus subscriber decodes them with
// DecodeChangeSet.
type ChangeSet struct {
	Revision     uint32
	TableName    string
	BlockSize    uint32
	RootBlock    uint32
	Level        uint8
	ItemCount    uint32
	HaveFakeroot bool
	Blocks       map[uint32][]byte
}

// changesMagic is the leading pack_uint the wire format always opens
// with, mirroring write_changed_blocks's own leading "2" (its block
// format revision number) ahead of the table name and block size.
const changesMagic = 2

// Encode serializes a ChangeSet to the changesbus wire format: a small
// additive header of table/revision bookkeeping, followed by the
// changed-blocks stream proper, which is varint-framed
// (encoding/binary's Uvarint, matching the wire format's pack_uint):
// pack_uint(2), pack_uint(len(name)), name, pack_uint(block_size), then
// for each changed block pack_uint(block_number+1) followed by the raw
// block bytes, terminated by a single pack_uint(0). The n+1 bias is
// what lets a decoder tell "one more block follows" apart from "the
// stream ends here" using only the single reserved value zero.
func (cs *ChangeSet) Encode() []byte {
	nameBytes := []byte(cs.TableName)

	out := binary.AppendUvarint(nil, uint64(cs.Revision))
	out = binary.AppendUvarint(out, uint64(cs.RootBlock))
	out = append(out, cs.Level)
	out = binary.AppendUvarint(out, uint64(cs.ItemCount))
	out = append(out, boolByte(cs.HaveFakeroot))

	out = binary.AppendUvarint(out, changesMagic)
	out = binary.AppendUvarint(out, uint64(len(nameBytes)))
	out = append(out, nameBytes...)
	out = binary.AppendUvarint(out, uint64(cs.BlockSize))

	for n, blk := range cs.Blocks {
		out = binary.AppendUvarint(out, uint64(n)+1)
		out = append(out, blk...)
	}
	out = binary.AppendUvarint(out, 0)
	return out
}

// DecodeChangeSet parses the framing Encode produces. Since each block
// entry carries no explicit length, the block size named in the header
// (read before any block entry) is what tells the decoder how many
// trailing bytes belong to each one.
func DecodeChangeSet(data []byte) (*ChangeSet, error) {
	cs := &ChangeSet{Blocks: map[uint32][]byte{}}
	r := data

	readUvarint := func(what string) (uint64, error) {
		v, n := binary.Uvarint(r)
		if n <= 0 {
			return 0, fmt.Errorf("changeset: truncated %s", what)
		}
		r = r[n:]
		return v, nil
	}
	readByte := func(what string) (byte, error) {
		if len(r) < 1 {
			return 0, fmt.Errorf("changeset: truncated %s", what)
		}
		b := r[0]
		r = r[1:]
		return b, nil
	}

	revision, err := readUvarint("revision")
	if err != nil {
		return nil, err
	}
	cs.Revision = uint32(revision)

	rootBlock, err := readUvarint("root block")
	if err != nil {
		return nil, err
	}
	cs.RootBlock = uint32(rootBlock)

	level, err := readByte("level")
	if err != nil {
		return nil, err
	}
	cs.Level = level

	itemCount, err := readUvarint("item count")
	if err != nil {
		return nil, err
	}
	cs.ItemCount = uint32(itemCount)

	fakeroot, err := readByte("fakeroot flag")
	if err != nil {
		return nil, err
	}
	cs.HaveFakeroot = fakeroot != 0

	magic, err := readUvarint("magic")
	if err != nil {
		return nil, err
	}
	if magic != changesMagic {
		return nil, fmt.Errorf("changeset: unsupported block format %d", magic)
	}

	nameLen, err := readUvarint("table name length")
	if err != nil {
		return nil, err
	}
	if uint64(len(r)) < nameLen {
		return nil, fmt.Errorf("changeset: truncated table name")
	}
	cs.TableName = string(r[:nameLen])
	r = r[nameLen:]

	blockSize, err := readUvarint("block size")
	if err != nil {
		return nil, err
	}
	cs.BlockSize = uint32(blockSize)
	if cs.BlockSize == 0 {
		return nil, fmt.Errorf("changeset: zero block size")
	}

	for {
		tag, err := readUvarint("block tag")
		if err != nil {
			return nil, err
		}
		if tag == 0 {
			break
		}
		n := uint32(tag - 1)
		if uint64(len(r)) < blockSize {
			return nil, fmt.Errorf("changeset: truncated block %d body", n)
		}
		cs.Blocks[n] = append([]byte(nil), r[:blockSize]...)
		r = r[blockSize:]
	}
	return cs, nil
}
