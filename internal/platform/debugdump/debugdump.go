// Package debugdump formats arbitrary Go values for troubleshooting
// output, using the same go-spew formatter the teacher project carries
// as a dependency for its own diagnostic dumps.
package debugdump

import "github.com/davecgh/go-spew/spew"

// Sdump renders v as a deeply-expanded, human-readable string: every
// struct field, slice element, and pointed-to value, with no length or
// depth limit. Meant for -debug output, not for anything logged on a
// hot path.
func Sdump(v any) string {
	return spew.Sdump(v)
}
