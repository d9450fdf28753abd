package session

import "errors"

var (
	ErrJoinFailed     = errors.New("could not join meeting")
	ErrMediaConfig    = errors.New("media configuration failed")
	ErrCaptureFailed  = errors.New("audio capture failed")
	ErrPipelineFailed = errors.New("post-call pipeline failed")
	ErrStopTimeout    = errors.New("capture did not stop in time")
)
