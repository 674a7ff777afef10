package frame

import (
	"errors"
	"fmt"
)

// Internal errors - re-exported by the framepipe package as its stable contract.
var (
	ErrOpen          = errors.New("framepipe: media source cannot be opened")
	ErrRead          = errors.New("framepipe: media read failed")
	ErrChannelClosed = errors.New("framepipe: channel is closed")
	ErrUserStop      = errors.New("framepipe: stop requested by user")
)

// OpenError reports a media source that could not be opened.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("framepipe: open %q: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrOpen) hold for every OpenError.
func (e *OpenError) Is(target error) bool { return target == ErrOpen }

// ReadError reports a failure while pulling the next frame.
// Seq is the sequence number the failed frame would have carried.
type ReadError struct {
	Seq uint64
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("framepipe: read frame %d: %v", e.Seq, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrRead) hold for every ReadError.
func (e *ReadError) Is(target error) bool { return target == ErrRead }
