// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipcore

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the errors returned by this package, so callers can
// discriminate on failure class without parsing message text.
type ErrorKind int

const (
	// InvalidInput covers bad member paths, caller misuse of a closed
	// Writer, and similar caller errors.
	InvalidInput ErrorKind = iota
	// UnsupportedMethod covers compression methods other than Store/Deflate
	// and multi-disk archives.
	UnsupportedMethod
	// TruncatedInput covers short reads on any structural record or body.
	TruncatedInput
	// BadMagic covers a missing or wrong magic number at a known offset.
	BadMagic
	// FormatViolation covers central-directory overrun, bad offsets, and
	// malformed extra records.
	FormatViolation
	// DecodeError covers failures propagated from the DEFLATE codec,
	// including CRC mismatches detected after decompression.
	DecodeError
	// IoError covers failures propagated from the backing stream.
	IoError
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidInput:
		return "invalid input"
	case UnsupportedMethod:
		return "unsupported method"
	case TruncatedInput:
		return "truncated input"
	case BadMagic:
		return "bad magic"
	case FormatViolation:
		return "format violation"
	case DecodeError:
		return "decode error"
	case IoError:
		return "io error"
	default:
		return "unknown"
	}
}

// Error is the error type returned by every operation in this package.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("zip: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("zip: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(k ErrorKind, msg string) error {
	return &Error{Kind: k, Msg: msg}
}

func wrapErr(k ErrorKind, msg string, err error) error {
	if err == nil {
		return newErr(k, msg)
	}
	return &Error{Kind: k, Msg: msg, Err: err}
}

// IsKind reports whether err is, or wraps, a *Error of the given ErrorKind.
func IsKind(err error, k ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}
