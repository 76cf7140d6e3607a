package service

import "errors"

// Business-rule rejections surfaced to the command layer. Storage faults are
// never mapped onto these; they propagate as storage.ErrUnavailable.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidOption     = errors.New("invalid option")
	ErrInvalidStake      = errors.New("invalid stake")
	ErrQuestionClosed    = errors.New("question closed")
	ErrQuestionStillOpen = errors.New("question still open")
	ErrAlreadySettled    = errors.New("already settled")
)
