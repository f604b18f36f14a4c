package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"time"

	"github.com/echohive42/video-scene-splitter/pkg/util"
)

// Frame is one decoded video frame in packed RGB24 order, tagged with its
// absolute index in the source.
type Frame struct {
	Index  int
	Width  int
	Height int
	Pix    []byte
}

// Timestamp returns the frame's presentation time at the given frame rate.
func (f *Frame) Timestamp(fps float64) time.Duration {
	return util.FrameTimestamp(f.Index, fps)
}

// Image copies the frame into an image.RGBA suitable for encoding.
func (f *Frame) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, j := 0, 0; i+2 < len(f.Pix); i, j = i+3, j+4 {
		img.Pix[j] = f.Pix[i]
		img.Pix[j+1] = f.Pix[i+1]
		img.Pix[j+2] = f.Pix[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

// FrameStream decodes a video into a forward-only sequence of frames through
// a single long-running ffmpeg process writing raw RGB24 to a pipe. It never
// rewinds; end of stream is reported as io.EOF.
type FrameStream struct {
	cmd       *exec.Cmd
	stdout    io.ReadCloser
	reader    *bufio.Reader
	width     int
	height    int
	frameSize int
	next      int
	closed    bool
}

// OpenFrameStream starts decoding the input sequentially from frame zero.
// The caller must Close the stream to release the decoder process.
func (e *Executor) OpenFrameStream(ctx context.Context, input string, info *VideoInfo) (*FrameStream, error) {
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d", info.Width, info.Height)
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", input,
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	}

	e.logger.Debug().
		Str("input", input).
		Strs("args", args).
		Msg("starting frame decoder")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start frame decoder: %w", err)
	}

	return &FrameStream{
		cmd:       cmd,
		stdout:    stdout,
		reader:    bufio.NewReaderSize(stdout, 1<<20),
		width:     info.Width,
		height:    info.Height,
		frameSize: info.Width * info.Height * 3,
	}, nil
}

// Next returns the next decoded frame, or io.EOF when the source is
// exhausted. A short read at the tail of the stream is treated as
// end-of-stream rather than an error.
func (s *FrameStream) Next() (*Frame, error) {
	if s.closed {
		return nil, io.EOF
	}

	pix := make([]byte, s.frameSize)
	if _, err := io.ReadFull(s.reader, pix); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("frame decode failed at index %d: %w", s.next, err)
	}

	frame := &Frame{
		Index:  s.next,
		Width:  s.width,
		Height: s.height,
		Pix:    pix,
	}
	s.next++
	return frame, nil
}

// Close terminates the decoder process. Safe to call more than once.
func (s *FrameStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	_ = s.stdout.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	return nil
}
