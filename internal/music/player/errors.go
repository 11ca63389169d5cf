package player

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected          = errors.New("not connected to a voice channel")
	ErrTrackResolutionFailed = errors.New("could not resolve track")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrVoiceTransport        = errors.New("voice transport failure")
	ErrNothingPlaying        = errors.New("nothing is playing")

	// ErrSessionClosed is returned by a player that was stopped and
	// dropped from its registry while a caller still held it.
	ErrSessionClosed = fmt.Errorf("%w: session closed", ErrNotConnected)
)
