package engine

import "bytes"

// readTag reassembles the full tag for the entry the cursor is
// currently parked on (which must be an exact match for key, counter
// firstComponentCounter), walking forward across as many chunk items - and, if the chunk
// run spans a block boundary, as many leaf blocks - as the tag needed
// at write time.
func (t *Table) readTag(cur *cursor, key []byte) ([]byte, bool, error) {
	var out []byte
	wantCounter := firstComponentCounter
	for {
		blk := cur.C[0].block
		off := slotItemOffset(blk, cur.C[0].c)
		if !bytes.Equal(itemKeyBody(blk, off), key) {
			break
		}
		if itemCounter(blk, off) != wantCounter {
			return nil, false, &ErrDatabaseCorrupt{Message: "missing tag chunk"}
		}
		chunk := itemTag(blk, off)
		if itemCompressed(blk, off) {
			dec, err := decompressTag(chunk)
			if err != nil {
				return nil, false, err
			}
			chunk = dec
		}
		out = append(out, chunk...)
		if wantCounter == itemComponents(blk, off) {
			break
		}
		wantCounter++

		ok, err := cur.nextForSequential()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			break
		}
	}
	return out, true, nil
}
