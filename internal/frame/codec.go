package frame

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// Codec decodes raw frame bytes into a raster stored top-to-bottom. Codecs
// must fail on corrupt input rather than return a truncated raster.
type Codec interface {
	Decode(data []byte) (Frame, error)
}

// PNGCodec decodes 8-bit and 16-bit grayscale PNG frames.
type PNGCodec struct{}

// Decode implements Codec.
func (PNGCodec) Decode(data []byte) (Frame, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return Frame{}, err
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch src := img.(type) {
	case *image.Gray:
		out := Frame{Signature: Signature{Width: w, Height: h, Sample: Uint8}, Pix8: make([]uint8, w*h)}
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+w]
			copy(out.Pix8[y*w:(y+1)*w], row)
		}
		return out, nil
	case *image.Gray16:
		out := Frame{Signature: Signature{Width: w, Height: h, Sample: Uint16}, Pix16: make([]uint16, w*h)}
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+2*w]
			dst := out.Pix16[y*w : (y+1)*w]
			for x := range dst {
				dst[x] = uint16(row[2*x])<<8 | uint16(row[2*x+1])
			}
		}
		return out, nil
	default:
		return Frame{}, fmt.Errorf("unsupported colour model %T", img)
	}
}
