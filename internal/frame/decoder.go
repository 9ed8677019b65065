package frame

import (
	"os"

	"nascam/internal/failure"
)

// Decoder reads frame files through a Codec and normalizes orientation.
type Decoder struct {
	codec Codec
}

// NewDecoder wraps codec. A nil codec selects PNGCodec.
func NewDecoder(codec Codec) *Decoder {
	if codec == nil {
		codec = PNGCodec{}
	}
	return &Decoder{codec: codec}
}

// DecodeFile reads path whole, decodes it and returns the flipped frame along
// with the number of bytes read from disk.
func (d *Decoder) DecodeFile(path string) (Frame, int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Frame{}, 0, failure.Wrap(failure.ErrDecode, path, "read frame", "", err)
	}
	f, err := d.decode(path, data)
	if err != nil {
		return Frame{}, 0, err
	}
	return f, int64(len(data)), nil
}

// Decode decodes an in-memory frame. name is only used in error messages.
func (d *Decoder) Decode(name string, data []byte) (Frame, error) {
	return d.decode(name, data)
}

func (d *Decoder) decode(name string, data []byte) (Frame, error) {
	raster, err := d.codec.Decode(data)
	if err != nil {
		return Frame{}, failure.Wrap(failure.ErrDecode, name, "decode frame", "", err)
	}
	if err := raster.Validate(); err != nil {
		return Frame{}, failure.Wrap(failure.ErrDecode, name, "decode frame", "codec returned inconsistent raster", err)
	}
	return FlipVertical(raster), nil
}
