// Package frame decodes single imager frames and owns the image stack type.
//
// A Codec turns raw file bytes into a top-to-bottom raster; Decoder wraps a
// codec, applies the mandatory vertical flip so rows are stored bottom-to-top
// (the orientation every consumer of this instrument's data expects) and
// reports the source byte count for rate accounting.
//
// Samples are either 8-bit or 16-bit unsigned integers. Frame and Stack model
// that as a tagged union: exactly one of the Pix8/Pix16 buffers is populated,
// selected by the Signature's SampleType.
package frame
