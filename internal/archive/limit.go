package archive

import (
	"errors"
	"io"
)

var errArchiveTooLarge = errors.New("archive exceeds max_archive_bytes")

// limitedCountingReader aborts with errArchiveTooLarge as soon as more than
// remaining bytes have been read, so the cumulative-byte cap (§4.B) is
// enforced before the full member is written rather than after.
type limitedCountingReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedCountingReader) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		var probe [1]byte
		n, err := l.r.Read(probe[:])
		if n > 0 {
			return 0, errArchiveTooLarge
		}
		return 0, err
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}
