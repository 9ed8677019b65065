package frame

import (
	"fmt"
	"slices"

	"nascam/internal/failure"
)

// Stack is an ordered sequence of frames sharing one Signature, stored in a
// single contiguous buffer that the stack owns. The zero value is an empty
// stack with no signature; the first appended frame establishes it.
type Stack struct {
	sig   Signature
	n     int
	slots int
	pix8  []uint8
	pix16 []uint16
}

// NewStack returns an empty stack for sig with room for capacity frames.
func NewStack(sig Signature, capacity int) *Stack {
	s := &Stack{sig: sig}
	s.allocate(max(capacity, 1))
	return s
}

// Len returns the number of frames in the stack.
func (s *Stack) Len() int {
	if s == nil {
		return 0
	}
	return s.n
}

// Cap returns the number of frames the stack can hold without growing.
func (s *Stack) Cap() int {
	if s == nil {
		return 0
	}
	return s.slots
}

// Signature returns the shared frame signature. It is the zero Signature for
// an empty stack that never had a frame.
func (s *Stack) Signature() Signature {
	if s == nil {
		return Signature{}
	}
	return s.sig
}

// Append adds f to the end of the stack, doubling capacity when full.
func (s *Stack) Append(f Frame) error {
	if err := f.Validate(); err != nil {
		return failure.Wrap(failure.ErrDecode, "", "append frame", "", err)
	}
	if err := s.adopt(f.Signature); err != nil {
		return err
	}
	s.reserve(s.n + 1)
	size := s.sig.Pixels()
	switch s.sig.Sample {
	case Uint8:
		copy(s.pix8[s.n*size:(s.n+1)*size], f.Pix8)
	case Uint16:
		copy(s.pix16[s.n*size:(s.n+1)*size], f.Pix16)
	}
	s.n++
	return nil
}

// AppendStack copies every frame of other onto the end of s. On a signature
// mismatch s is left untouched.
func (s *Stack) AppendStack(other *Stack) error {
	if other.Len() == 0 {
		return nil
	}
	if err := s.adopt(other.sig); err != nil {
		return err
	}
	s.reserve(s.n + other.n)
	size := s.sig.Pixels()
	switch s.sig.Sample {
	case Uint8:
		copy(s.pix8[s.n*size:], other.pix8[:other.n*size])
	case Uint16:
		copy(s.pix16[s.n*size:], other.pix16[:other.n*size])
	}
	s.n += other.n
	return nil
}

// Trim reallocates the buffer to hold exactly Len frames.
func (s *Stack) Trim() {
	if s == nil || s.slots == s.n {
		return
	}
	size := s.sig.Pixels()
	switch s.sig.Sample {
	case Uint8:
		s.pix8 = slices.Clone(s.pix8[:s.n*size])
	case Uint16:
		s.pix16 = slices.Clone(s.pix16[:s.n*size])
	}
	s.slots = s.n
}

// Frame returns frame i. The returned buffers alias the stack.
func (s *Stack) Frame(i int) Frame {
	return Frame{Signature: s.sig, Pix8: s.Pix8(i), Pix16: s.Pix16(i)}
}

// Pix8 returns the samples of frame i for an 8-bit stack, or nil.
func (s *Stack) Pix8(i int) []uint8 {
	if s.sig.Sample != Uint8 {
		return nil
	}
	s.check(i)
	size := s.sig.Pixels()
	return s.pix8[i*size : (i+1)*size : (i+1)*size]
}

// Pix16 returns the samples of frame i for a 16-bit stack, or nil.
func (s *Stack) Pix16(i int) []uint16 {
	if s.sig.Sample != Uint16 {
		return nil
	}
	s.check(i)
	size := s.sig.Pixels()
	return s.pix16[i*size : (i+1)*size : (i+1)*size]
}

// Equal reports whether both stacks hold identical frames.
func (s *Stack) Equal(other *Stack) bool {
	if s.Len() != other.Len() {
		return false
	}
	if s.Len() == 0 {
		return true
	}
	if s.sig != other.sig {
		return false
	}
	size := s.sig.Pixels() * s.n
	switch s.sig.Sample {
	case Uint8:
		return slices.Equal(s.pix8[:size], other.pix8[:size])
	default:
		return slices.Equal(s.pix16[:size], other.pix16[:size])
	}
}

func (s *Stack) adopt(sig Signature) error {
	if !s.sig.Valid() {
		s.sig = sig
		s.allocate(max(s.slots, 1))
		return nil
	}
	if s.sig != sig {
		return failure.Wrap(failure.ErrDimensionMismatch, "", "append frame",
			fmt.Sprintf("stack is %s, frame is %s", s.sig, sig), nil)
	}
	return nil
}

// reserve grows capacity geometrically until n frames fit, copying the
// existing frames forward.
func (s *Stack) reserve(n int) {
	if n <= s.slots {
		return
	}
	capacity := max(s.slots, 1)
	for capacity < n {
		capacity *= 2
	}
	s.allocate(capacity)
}

func (s *Stack) allocate(capacity int) {
	size := s.sig.Pixels()
	switch s.sig.Sample {
	case Uint8:
		buf := make([]uint8, capacity*size)
		copy(buf, s.pix8[:s.n*size])
		s.pix8 = buf
	case Uint16:
		buf := make([]uint16, capacity*size)
		copy(buf, s.pix16[:s.n*size])
		s.pix16 = buf
	}
	s.slots = capacity
}

func (s *Stack) check(i int) {
	if i < 0 || i >= s.n {
		panic(fmt.Sprintf("frame: index %d out of range [0,%d)", i, s.n))
	}
}
