package zipcore

import (
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
)

// compressResult is what the streaming compression pipeline reports back
// to the writer state machine once a member's body has been fully
// consumed, per spec.md §4.3.
type compressResult struct {
	CRC32            uint32
	UncompressedSize uint64
	CompressedSize   uint64
}

// compressStream streams src through the method's compressor into dst,
// tracking the running CRC-32 and both byte counts in compressionBufferSize
// chunks. STORE is a straight copy; DEFLATE delegates to
// github.com/klauspost/compress/flate, the external DEFLATE collaborator
// module this codec is built against (grounded on its pervasive use across
// the retrieved corpus, see DESIGN.md).
func compressStream(dst io.Writer, src io.Reader, method uint16) (compressResult, error) {
	switch method {
	case Store:
		return compressStore(dst, src)
	case Deflate:
		return compressDeflate(dst, src)
	default:
		return compressResult{}, newErr(UnsupportedMethod, "unsupported compression method")
	}
}

func compressStore(dst io.Writer, src io.Reader) (compressResult, error) {
	buf := make([]byte, compressionBufferSize)
	var res compressResult
	runningCRC := uint32(0)
	first := true
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			chunkCRC := crc32.ChecksumIEEE(chunk)
			if first {
				runningCRC = chunkCRC
				first = false
			} else {
				runningCRC = crc32Combine(runningCRC, chunkCRC, int64(n))
			}
			if _, werr := dst.Write(chunk); werr != nil {
				return res, wrapErr(IoError, "writing stored member body", werr)
			}
			res.UncompressedSize += uint64(n)
			res.CompressedSize += uint64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return res, wrapErr(IoError, "reading member body", rerr)
		}
	}
	res.CRC32 = runningCRC
	return res, nil
}

func compressDeflate(dst io.Writer, src io.Reader) (compressResult, error) {
	cw := &countWriter{w: dst}
	fw, err := flate.NewWriter(cw, flate.DefaultCompression)
	if err != nil {
		return compressResult{}, wrapErr(DecodeError, "codec init failed", err)
	}

	buf := make([]byte, compressionBufferSize)
	var res compressResult
	runningCRC := uint32(0)
	first := true
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			chunkCRC := crc32.ChecksumIEEE(chunk)
			if first {
				runningCRC = chunkCRC
				first = false
			} else {
				runningCRC = crc32Combine(runningCRC, chunkCRC, int64(n))
			}
			if _, werr := fw.Write(chunk); werr != nil {
				return res, wrapErr(DecodeError, "decode error", werr)
			}
			res.UncompressedSize += uint64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return res, wrapErr(IoError, "reading member body", rerr)
		}
	}
	if err := fw.Close(); err != nil {
		return res, wrapErr(DecodeError, "decode error", err)
	}
	res.CRC32 = runningCRC
	res.CompressedSize = uint64(cw.count)
	return res, nil
}

// decompressStream streams exactly compressedSize bytes of src through the
// method's decompressor into dst, asserting that the output length matches
// (uncompressedSize for Deflate; for Store the copied length is checked
// against compressedSize only) and that the CRC-32 of a non-empty output
// equals wantCRC. Returns the number of uncompressed bytes written.
func decompressStream(dst io.Writer, src io.Reader, method uint16, compressedSize, uncompressedSize uint64, wantCRC uint32) (uint64, error) {
	switch method {
	case Store:
		return decompressStore(dst, src, compressedSize, wantCRC)
	case Deflate:
		return decompressDeflate(dst, src, compressedSize, uncompressedSize, wantCRC)
	default:
		return 0, newErr(UnsupportedMethod, "unsupported compression method")
	}
}

func decompressStore(dst io.Writer, src io.Reader, size uint64, wantCRC uint32) (uint64, error) {
	lr := io.LimitReader(src, int64(size))
	buf := make([]byte, compressionBufferSize)
	var written uint64
	runningCRC := uint32(0)
	first := true
	for {
		n, rerr := lr.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			chunkCRC := crc32.ChecksumIEEE(chunk)
			if first {
				runningCRC = chunkCRC
				first = false
			} else {
				runningCRC = crc32Combine(runningCRC, chunkCRC, int64(n))
			}
			if _, werr := dst.Write(chunk); werr != nil {
				return written, wrapErr(IoError, "writing extracted body", werr)
			}
			written += uint64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return written, wrapErr(IoError, "reading compressed body", rerr)
		}
	}
	if written != size {
		return written, newErr(TruncatedInput, "truncated stored member body")
	}
	if written > 0 && runningCRC != wantCRC {
		return written, newErr(DecodeError, "crc mismatch")
	}
	return written, nil
}

// countingReader tracks how many bytes have been read through it, so
// decompressDeflate can assert the inflater consumed exactly
// compressedSize bytes of input.
type countingReader struct {
	r     io.Reader
	count int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.count += int64(n)
	return n, err
}

func decompressDeflate(dst io.Writer, src io.Reader, compressedSize, uncompressedSize uint64, wantCRC uint32) (uint64, error) {
	lr := io.LimitReader(src, int64(compressedSize))
	cr := &countingReader{r: lr}
	fr := flate.NewReader(cr)
	defer fr.Close()

	buf := make([]byte, compressionBufferSize)
	var written uint64
	runningCRC := uint32(0)
	first := true
	for {
		n, rerr := fr.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			chunkCRC := crc32.ChecksumIEEE(chunk)
			if first {
				runningCRC = chunkCRC
				first = false
			} else {
				runningCRC = crc32Combine(runningCRC, chunkCRC, int64(n))
			}
			if _, werr := dst.Write(chunk); werr != nil {
				return written, wrapErr(IoError, "writing extracted body", werr)
			}
			written += uint64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return written, wrapErr(DecodeError, "decode error", rerr)
		}
	}
	if uint64(cr.count) != compressedSize {
		return written, newErr(TruncatedInput, "truncated compressed member body")
	}
	if written != uncompressedSize {
		return written, newErr(TruncatedInput, "length mismatch after inflate")
	}
	if written > 0 && runningCRC != wantCRC {
		return written, newErr(DecodeError, "crc mismatch")
	}
	return written, nil
}
