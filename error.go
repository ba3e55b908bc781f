package match

import "errors"

var (
	ErrInvalidParam = errors.New("the param is invalid")
	ErrShutdown     = errors.New("replayer is shutting down")
	ErrSequenceGap  = errors.New("sequence gap detected")
)
