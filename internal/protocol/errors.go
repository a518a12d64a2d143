package protocol

import "errors"

var (
	ErrNotControl = errors.New("protocol: not a control message")
	ErrBadMessage = errors.New("protocol: malformed control message")
)
