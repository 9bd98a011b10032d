package engine

// Named tunables called out as empirical constants in the design notes
// rather than buried as magic numbers at their call sites.
const (
	// minBlockSize and maxBlockSize bound the power-of-two block size a
	// table may be created with.
	minBlockSize = 2048
	maxBlockSize = 65536

	defaultBlockSize = 8192

	// maxKeyLen is the largest key body accepted by Add; del and
	// GetExactEntry silently reject anything longer instead of erroring.
	maxKeyLen = 252

	// compressMin is the largest tag length for which compression is
	// not attempted; only tags longer than this are deflated, since the
	// framing overhead would never pay for itself on shorter ones.
	compressMin = 4

	// seqStartPoint is the negative floor seqCount resets to whenever an
	// insertion breaks the run of adjacent slots. Once seqCount reaches
	// zero the table is considered to be in sequential-insertion mode.
	seqStartPoint = -10

	// fullCompactionKeyMargin is the extra slack (beyond key length) for
	// the full_compaction first-chunk residue test. No code in this
	// package reads it; chunkTag always uses equal-sized chunks.
	fullCompactionKeyMargin = 34

	// btreeCursorLevels bounds tree depth; a tree that grows past this
	// is reported as corrupt rather than silently mishandled.
	btreeCursorLevels = 10

	// byteRange is the smallest value not representable in two bytes;
	// it bounds both block size and component counters.
	byteRange = 1 << 16
)
