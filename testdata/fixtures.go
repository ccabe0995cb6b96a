// Package testdata builds synthetic frame sources for tests.
package testdata

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// Frame size used by the fixtures.
const (
	Width  = 64
	Height = 48
)

// ErrNoCodec is returned when OpenCV cannot write the fixture video.
var ErrNoCodec = errors.New("video codec unavailable")

// Frames returns n solid-colour frames, each a shade lighter than the last.
// Callers close them with CloseFrames.
func Frames(n int) []*gocv.Mat {
	frames := make([]*gocv.Mat, 0, n)
	for i := 0; i < n; i++ {
		shade := float64((i * 255) / max(n, 1))
		mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(shade, shade, shade, 0), Height, Width, gocv.MatTypeCV8UC3)
		frames = append(frames, &mat)
	}
	return frames
}

// CloseFrames releases frames returned by Frames.
func CloseFrames(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}

// WriteVideo writes frames to an MJPEG AVI at path.
func WriteVideo(path string, frames []*gocv.Mat, fps float64) error {
	w, err := gocv.VideoWriterFile(path, "MJPG", fps, Width, Height, true)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoCodec, err)
	}
	defer w.Close()

	if !w.IsOpened() {
		return ErrNoCodec
	}
	for i, f := range frames {
		if err := w.Write(*f); err != nil {
			return fmt.Errorf("write frame %d: %w", i, err)
		}
	}
	return nil
}
