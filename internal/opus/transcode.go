package opus

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// TranscodeOptions are the FFmpeg settings for one conversion.
type TranscodeOptions struct {
	// Start seeks the input before decoding. Zero starts at the beginning.
	Start time.Duration
	// Duration limits the output length. Zero means the whole input.
	Duration time.Duration

	SampleRate int
	Channels   int
	Bitrate    int
}

// DefaultTranscodeOptions are 48 kHz stereo at 64 kbps.
func DefaultTranscodeOptions() TranscodeOptions {
	return TranscodeOptions{
		SampleRate: 48000,
		Channels:   2,
		Bitrate:    64000,
	}
}

// Args returns the FFmpeg arguments that transcode input to Opus in Ogg on stdout.
func (o TranscodeOptions) Args(input string) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if o.Start > 0 {
		args = append(args, "-ss", formatSeconds(o.Start))
	}
	args = append(args, "-i", input)
	if o.Duration > 0 {
		args = append(args, "-t", formatSeconds(o.Duration))
	}
	return append(args,
		"-vn",
		"-map", "0:a",
		"-ac", strconv.Itoa(o.Channels),
		"-ar", strconv.Itoa(o.SampleRate),
		"-b:a", strconv.Itoa(o.Bitrate),
		"-acodec", "libopus",
		"-vbr", "on",
		"-application", "voip",
		"-frame_duration", "20",
		"-f", "ogg",
		"pipe:1",
	)
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// FFmpeg transcodes with an ffmpeg binary.
type FFmpeg struct {
	// Path to the binary. Empty means "ffmpeg" from PATH.
	Path string
}

// Transcode starts FFmpeg on input, a file path or URL, and returns its
// stdout: an Opus-in-Ogg stream produced while it is read.
// The returned io.ReadCloser must be closed to clean up the FFmpeg process;
// Close reports a failed FFmpeg run along with the tail of its stderr.
func (f FFmpeg) Transcode(ctx context.Context, input string, opts TranscodeOptions) (io.ReadCloser, error) {
	return f.start(ctx, opts.Args(input), nil)
}

// TranscodeReader is Transcode for input piped through stdin.
func (f FFmpeg) TranscodeReader(ctx context.Context, r io.Reader, opts TranscodeOptions) (io.ReadCloser, error) {
	return f.start(ctx, opts.Args("pipe:0"), r)
}

func (f FFmpeg) start(ctx context.Context, args []string, stdin io.Reader) (io.ReadCloser, error) {
	path := f.Path
	if path == "" {
		path = "ffmpeg"
	}

	ffmpeg := exec.CommandContext(ctx, path, args...)
	ffmpeg.Stdin = stdin
	ffmpeg.WaitDelay = 5 * time.Second

	stderr := &tailBuffer{max: 4096}
	ffmpeg.Stderr = stderr

	stdout, err := ffmpeg.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("unable to pipe output of ffmpeg: %w", err)
	}

	if err := ffmpeg.Start(); err != nil {
		return nil, fmt.Errorf("unable to start ffmpeg process: %w", err)
	}

	return &transcodeCloser{r: stdout, cmd: ffmpeg, stderr: stderr}, nil
}

// transcodeCloser wraps FFmpeg's stdout and ensures the process is cleaned up.
type transcodeCloser struct {
	r      io.ReadCloser
	cmd    *exec.Cmd
	stderr *tailBuffer
	eof    bool
}

func (t *transcodeCloser) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if errors.Is(err, io.EOF) {
		t.eof = true
	}
	return n, err
}

func (t *transcodeCloser) Close() error {
	if !t.eof {
		// Stopped early: FFmpeg may be blocked writing to a pipe nobody reads.
		if t.cmd.Process != nil {
			_ = t.cmd.Process.Kill()
		}
		_ = t.cmd.Wait()
		return nil
	}

	if err := t.cmd.Wait(); err != nil {
		if msg := strings.TrimSpace(t.stderr.String()); msg != "" {
			return fmt.Errorf("ffmpeg failed: %w: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	return nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	buf bytes.Buffer
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf.Write(p)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return t.buf.String()
}
