package zipcore

import (
	"context"
	"io"
)

// Write opens a streaming write session over w, passes it to fn, and
// guarantees Close runs on every exit path — fn returning an error, fn
// panicking, or fn returning normally (spec.md §5 resource-release
// requirement). The bytes-written total from Close is discarded on the
// panic path since there is no result to return it to.
func Write(w io.Writer, opts WriterOptions, fn func(*Writer) error) (uint64, error) {
	wr, err := OpenWriter(w, opts)
	if err != nil {
		return 0, err
	}
	defer wr.Close()

	if err := fn(wr); err != nil {
		wr.Close()
		return wr.BytesWritten(), err
	}
	return wr.Close()
}

// Read opens a read session over ra and passes the resulting Archive to
// fn. Unlike Write, a Reader session holds no handle of its own to
// release — the caller owns ra's lifetime — so Read exists only for
// symmetry and to thread a context through OpenReaderContext uniformly.
func Read(ctx context.Context, ra ReaderAt, size int64, fn func(*Archive) error) error {
	ar, err := OpenReaderContext(ctx, ra, size)
	if err != nil {
		return err
	}
	return fn(ar)
}
