package voice

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrVoiceConnClosed = errors.New("voice connection send timeout")

// DefaultSendTimeout is how long a single frame may wait for the voice
// connection to accept it.
const DefaultSendTimeout = time.Minute

// FrameSource yields Opus frames until io.EOF. *dca.Decoder is one.
type FrameSource interface {
	ReadFrame() ([]byte, error)
}

// StreamFrames reads Opus frames from source and sends them on send,
// usually a VoiceConnection's OpusSend channel. It blocks until all frames
// are sent or an error occurs, and returns the number of frames sent.
// Returns a nil error on clean EOF.
func StreamFrames(ctx context.Context, source FrameSource, send chan<- []byte, timeout time.Duration) (int, error) {
	sent := 0
	for {
		frame, err := source.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return sent, nil
			}
			return sent, err
		}

		timer := time.NewTimer(timeout)
		select {
		case send <- frame:
			timer.Stop()
			sent++
		case <-timer.C:
			return sent, ErrVoiceConnClosed
		case <-ctx.Done():
			timer.Stop()
			return sent, ctx.Err()
		}
	}
}
