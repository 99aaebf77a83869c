package zipcore

import (
	"context"
	"io"
)

// ReaderAt is like io.ReaderAt, but also takes a context, carried from the
// teacher's io.go (originally built for its multi-part HTTP archive,
// repurposed here as the Reader's input abstraction — see DESIGN.md and
// SPEC_FULL.md §4.6). Using io.ReaderAt-shaped access rather than a
// stateful io.ReadSeeker lets Entry.Extract run concurrently for multiple
// entries of the same Archive without fighting over a shared seek
// position, matching stdlib archive/zip.Reader's own access pattern.
type ReaderAt interface {
	// ReadAtContext has the same semantics as io.ReaderAt.ReadAt, but
	// takes a context so a caller using a context-aware backing store
	// (e.g. a remote object fetched over the network) can cancel it.
	ReadAtContext(ctx context.Context, p []byte, off int64) (n int, err error)
}

// ignoreContext adapts a plain io.ReaderAt to the context-aware ReaderAt
// interface by dropping the context, for callers that hand this package
// an ordinary *os.File or *bytes.Reader.
type ignoreContext struct {
	r io.ReaderAt
}

func (a ignoreContext) ReadAtContext(_ context.Context, p []byte, off int64) (n int, err error) {
	return a.r.ReadAt(p, off)
}

func asReaderAt(r io.ReaderAt) ReaderAt {
	if v, ok := r.(ReaderAt); ok {
		return v
	}
	return ignoreContext{r: r}
}

// withContext adapts a context-aware ReaderAt back to plain io.ReaderAt by
// binding a fixed context, for use with APIs (like io.SectionReader) that
// only know about io.ReaderAt. parseCDR stores one in every Entry, bound to
// the context passed to OpenReaderContext, so later Extract and LocalExtras
// calls read with that same context.
type withContext struct {
	ctx context.Context
	r   ReaderAt
}

func (w withContext) ReadAt(p []byte, off int64) (n int, err error) {
	return w.r.ReadAtContext(w.ctx, p, off)
}
