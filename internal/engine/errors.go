package engine

import "fmt"

// ErrDatabaseOpening reports that the data file or a base file could not
// be opened or created, or that no valid base exists.
type ErrDatabaseOpening struct {
	Path    string
	Message string
}

func (e *ErrDatabaseOpening) Error() string {
	return fmt.Sprintf("tagtable: opening %q: %s", e.Path, e.Message)
}

// ErrDatabaseCorrupt reports a violated on-disk invariant: a bad level, a
// missing continuation chunk, a decompression size mismatch, a block
// overwritten while the writer is active, or a tree grown past the
// maximum level.
type ErrDatabaseCorrupt struct {
	Message string
}

func (e *ErrDatabaseCorrupt) Error() string {
	return fmt.Sprintf("tagtable: corrupt: %s", e.Message)
}

// ErrDatabaseModified reports that a reader observed a block whose
// revision exceeds its snapshot revision: another writer discarded the
// revision the reader was holding open.
type ErrDatabaseModified struct {
	Message string
}

func (e *ErrDatabaseModified) Error() string {
	return fmt.Sprintf("tagtable: modified: %s", e.Message)
}

// ErrDatabase is a general storage fault: I/O error, fsync failure,
// rename failure with the temp file still present, or a commit with a
// non-increasing revision.
type ErrDatabase struct {
	Message string
}

func (e *ErrDatabase) Error() string {
	return fmt.Sprintf("tagtable: %s", e.Message)
}

// ErrUnimplemented reports a payload exceeding a codable limit: too many
// tag chunks, or a key longer than maxKeyLen passed to Add.
type ErrUnimplemented struct {
	Message string
}

func (e *ErrUnimplemented) Error() string {
	return fmt.Sprintf("tagtable: unimplemented: %s", e.Message)
}

// errClosed is the dedicated message for operations against a
// permanently closed table.
func errClosed() error {
	return &ErrDatabase{Message: "closed"}
}
