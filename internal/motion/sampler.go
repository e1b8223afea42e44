package motion

import (
	"errors"
	"fmt"
	"image"
	"io"
)

// FrameSample is one kept frame with its position in the source video
type FrameSample struct {
	Index     int
	Timestamp float64
	Luma      *image.Gray
}

// Sampler yields every stride-th frame of a Decoder in increasing index
// order. It is lazy and cannot be restarted. The Sampler does not own the
// Decoder; whoever opened it closes it.
type Sampler struct {
	dec    Decoder
	stride int
	meta   VideoMeta
	next   int
	done   bool
}

// NewSampler validates the decoder metadata and stride
func NewSampler(dec Decoder, stride int) (*Sampler, error) {
	if stride < 1 {
		return nil, fmt.Errorf("sample stride must be >= 1, got %d", stride)
	}
	meta := VideoMeta{FPS: dec.FrameRate(), FrameCount: dec.FrameCount()}
	if !meta.Valid() {
		return nil, fmt.Errorf("%w: frame rate %.3f, frame count %d", ErrUnopenable, meta.FPS, meta.FrameCount)
	}
	return &Sampler{dec: dec, stride: stride, meta: meta}, nil
}

// Meta returns the decoder metadata captured at construction
func (s *Sampler) Meta() VideoMeta {
	return s.meta
}

// Next returns the next sampled frame or io.EOF
func (s *Sampler) Next() (FrameSample, error) {
	for {
		if s.done {
			return FrameSample{}, io.EOF
		}

		img, err := s.dec.ReadFrame()
		if err != nil {
			s.done = true
			if errors.Is(err, io.EOF) {
				return FrameSample{}, io.EOF
			}
			return FrameSample{}, fmt.Errorf("read frame %d: %w", s.next, err)
		}

		idx := s.next
		s.next++
		if idx%s.stride != 0 {
			continue
		}

		return FrameSample{
			Index:     idx,
			Timestamp: float64(idx) / s.meta.FPS,
			Luma:      img,
		}, nil
	}
}
