package engine

import "fmt"

// CheckOptions selects what Check does beyond its structural walk:
// FullTree also decompresses every compressed tag chunk, and ShowBitmap
// copies the committed allocation bitmap into the report. ShowStats is
// accepted but Check does not read it.
type CheckOptions struct {
	FullTree   bool
	ShowBitmap bool
	ShowStats  bool
}

// Violation is one concrete defect Check found, named by the block it
// was found in (0 for table-wide defects such as a bitmap mismatch).
type Violation struct {
	Block   uint32
	Message string
}

// CheckReport is Check's full result: any violations found, the block,
// item and level counts (always filled), and the bitmap copy that
// ShowBitmap asked for.
type CheckReport struct {
	Violations []Violation
	BlocksUsed uint32
	ItemCount  uint32
	Levels     int
	Bitmap     []byte
}

// Check walks the table's committed revision from the root down,
// verifying the invariants the format depends on: every block's
// directory is key-sorted, every separator key correctly bounds its
// subtree, every block's recorded revision is no newer than the
// table's own, and (with FullTree) every tag decompresses cleanly.
func (t *Table) Check(opts CheckOptions) (*CheckReport, error) {
	report := &CheckReport{ItemCount: t.committedItemCount, Levels: t.committedLevel + 1}
	if opts.ShowBitmap {
		report.Bitmap = append([]byte(nil), t.alloc.initial.bits...)
	}

	if t.committedHaveFakeroot {
		return report, nil
	}

	visited := newBitmap()
	var walk func(level int, n uint32, lowerBound, upperBound *Key) error
	walk = func(level int, n uint32, lowerBound, upperBound *Key) error {
		visited.set(n)
		report.BlocksUsed++
		blk := newBlock(t.blockSize)
		if err := t.file.ReadBlock(n, blk); err != nil {
			report.Violations = append(report.Violations, Violation{Block: n, Message: "unreadable: " + err.Error()})
			return nil
		}
		if blockRevision(blk) > t.committedRevision {
			report.Violations = append(report.Violations, Violation{Block: n, Message: "revision newer than table"})
		}
		if blockLevel(blk) != level {
			report.Violations = append(report.Violations, Violation{Block: n, Message: fmt.Sprintf("level %d, expected %d", blockLevel(blk), level)})
		}
		n2 := slotCount(blk)
		var prev *Key
		for i := 0; i < n2; i++ {
			off := itemOffsetAt(blk, i)
			k := itemKey(blk, off)
			if prev != nil && k.Less(*prev) {
				report.Violations = append(report.Violations, Violation{Block: n, Message: "directory not key-sorted"})
			}
			if lowerBound != nil && i > 0 && k.Less(*lowerBound) {
				report.Violations = append(report.Violations, Violation{Block: n, Message: "key precedes parent's lower bound"})
			}
			if upperBound != nil && upperBound.Less(k) {
				report.Violations = append(report.Violations, Violation{Block: n, Message: "key exceeds parent's upper bound"})
			}
			prev = &k
			if level > 0 {
				childN := itemChildBlock(blk, off)
				var childLower, childUpper *Key
				if i > 0 {
					childLower = &k
				}
				if i+1 < n2 {
					nextOff := itemOffsetAt(blk, i+1)
					nk := itemKey(blk, nextOff)
					childUpper = &nk
				}
				if err := walk(level-1, childN, childLower, childUpper); err != nil {
					return err
				}
			} else if opts.FullTree && itemCompressed(blk, off) {
				if _, err := decompressTag(itemTag(blk, off)); err != nil {
					report.Violations = append(report.Violations, Violation{Block: n, Message: "tag decompression failed: " + err.Error()})
				}
			}
		}
		return nil
	}
	if err := walk(t.committedLevel, t.committedRootBlock, nil, nil); err != nil {
		return nil, err
	}

	for n := uint32(0); n <= t.alloc.initial.lastBlock(); n++ {
		used := t.alloc.initial.get(n)
		reached := visited.get(n)
		if used && !reached {
			report.Violations = append(report.Violations, Violation{Block: n, Message: "marked used in bitmap but not reachable from root"})
		}
		if reached && !used {
			report.Violations = append(report.Violations, Violation{Block: n, Message: "reachable from root but not marked used in bitmap"})
		}
	}
	return report, nil
}
