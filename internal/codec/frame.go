package codec

import (
	"bytes"
	"io"
	"main/internal/errors"
	"main/pkg/exception"
	"unicode/utf8"

	"github.com/klauspost/compress/zlib"
)

// Decode inflates one compressed feed frame into its UTF-8 text payload.
// Frames are self-contained; no decoder state survives across calls.
func Decode(frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, errors.Wrap(exception.ErrDecode, "empty frame")
	}

	r, err := zlib.NewReader(bytes.NewReader(frame))
	if err != nil {
		return nil, errors.Wrapf(exception.ErrDecode, "open inflate reader: %v", err)
	}
	defer r.Close()

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(exception.ErrDecode, "inflate frame: %v", err)
	}

	if !utf8.Valid(payload) {
		return nil, errors.Wrap(exception.ErrDecode, "payload is not valid utf-8")
	}

	return payload, nil
}
