package exception

import "github.com/yanun0323/errors"

var (
	ErrDecode            = errors.New("frame: decode failed")
	ErrUnsupportedSchema = errors.New("message: unsupported schema")
	ErrParse             = errors.New("message: parse failed")
	ErrTimestamp         = errors.New("message: malformed timestamp")
	ErrPersistence       = errors.New("store: write failed")
)
