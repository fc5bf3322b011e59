package playlist

import "errors"

var (
	ErrBadMagic           = errors.New("playlist: bad magic")
	ErrUnsupportedVersion = errors.New("playlist: unsupported version")
	ErrInvalidMediaKind   = errors.New("playlist: invalid media kind")
	ErrTruncated          = errors.New("playlist: truncated input")
	ErrInvalidUTF8        = errors.New("playlist: invalid utf-8")
)
