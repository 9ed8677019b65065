package frame

import "fmt"

// SampleType identifies the per-pixel sample width of a frame.
type SampleType int

const (
	SampleUnknown SampleType = iota
	Uint8
	Uint16
)

func (s SampleType) String() string {
	switch s {
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	default:
		return "unknown"
	}
}

// Bits returns the sample width in bits, or 0 for an unknown sample type.
func (s SampleType) Bits() int {
	switch s {
	case Uint8:
		return 8
	case Uint16:
		return 16
	default:
		return 0
	}
}

// Signature is the (width, height, sample type) tuple that frames in one
// stack must share.
type Signature struct {
	Width  int
	Height int
	Sample SampleType
}

// Pixels returns the number of samples in one frame.
func (s Signature) Pixels() int {
	return s.Width * s.Height
}

// Valid reports whether the signature describes a non-empty frame.
func (s Signature) Valid() bool {
	return s.Width > 0 && s.Height > 0 && (s.Sample == Uint8 || s.Sample == Uint16)
}

func (s Signature) String() string {
	return fmt.Sprintf("%dx%d %s", s.Width, s.Height, s.Sample)
}

// Frame is one decoded exposure. Exactly one of Pix8 or Pix16 is set,
// according to Signature.Sample, and holds Width*Height samples in row-major
// order.
type Frame struct {
	Signature Signature
	Pix8      []uint8
	Pix16     []uint16
}

// Validate checks that the frame buffer matches its signature.
func (f Frame) Validate() error {
	if !f.Signature.Valid() {
		return fmt.Errorf("invalid frame signature %s", f.Signature)
	}
	want := f.Signature.Pixels()
	switch f.Signature.Sample {
	case Uint8:
		if len(f.Pix8) != want || f.Pix16 != nil {
			return fmt.Errorf("8-bit frame holds %d samples, want %d", len(f.Pix8), want)
		}
	case Uint16:
		if len(f.Pix16) != want || f.Pix8 != nil {
			return fmt.Errorf("16-bit frame holds %d samples, want %d", len(f.Pix16), want)
		}
	}
	return nil
}

// FlipVertical returns a copy of f with its row order reversed.
func FlipVertical(f Frame) Frame {
	w, h := f.Signature.Width, f.Signature.Height
	out := Frame{Signature: f.Signature}
	switch f.Signature.Sample {
	case Uint8:
		out.Pix8 = make([]uint8, len(f.Pix8))
		for y := 0; y < h; y++ {
			copy(out.Pix8[y*w:(y+1)*w], f.Pix8[(h-1-y)*w:(h-y)*w])
		}
	case Uint16:
		out.Pix16 = make([]uint16, len(f.Pix16))
		for y := 0; y < h; y++ {
			copy(out.Pix16[y*w:(y+1)*w], f.Pix16[(h-1-y)*w:(h-y)*w])
		}
	}
	return out
}
