package engine

import (
	"bytes"
	"compress/flate"
	"io"
)

// compressTag deflates src at the given level using raw (headerless)
// DEFLATE framing, matching the wire format's lack of a zlib wrapper.
// It reports ok == false when deflating didn't actually save anything
// (or src is no longer than compressMin), in which case the caller stores
// src uncompressed rather than pay the framing overhead for nothing.
func compressTag(src []byte, level int) (out []byte, ok bool) {
	if len(src) <= compressMin {
		return nil, false
	}
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, false
	}
	if _, err := w.Write(src); err != nil {
		return nil, false
	}
	if err := w.Close(); err != nil {
		return nil, false
	}
	if buf.Len() >= len(src) {
		return nil, false
	}
	return buf.Bytes(), true
}

// decompressTag inflates a raw-DEFLATE chunk produced by compressTag. It
// returns ErrDatabaseCorrupt for a stream that the flate reader itself
// rejects; a successfully-decoded stream whose length doesn't match the
// caller's expectation is left for the caller to detect, matching the
// original's distinction between a hard decode failure and a length
// mismatch it tolerates via Z_BUF_ERROR/Adler handling.
func decompressTag(src []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(src))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, &ErrDatabaseCorrupt{Message: "corrupt compressed tag: " + err.Error()}
	}
	return out, nil
}
