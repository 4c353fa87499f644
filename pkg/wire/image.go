package wire

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrTruncatedPayload indicates an image's declared pixel byte length
// exceeds the bytes actually received.
var ErrTruncatedPayload = errors.New("truncated payload")

// PixelEncoding identifies the pixel buffer element format.
type PixelEncoding uint8

const (
	// EncodingUint8 is one byte per pixel.
	EncodingUint8 PixelEncoding = 1

	// EncodingUint16 is two bytes per pixel, little endian.
	EncodingUint16 PixelEncoding = 2

	// EncodingFloat32 is four bytes per pixel, little endian.
	EncodingFloat32 PixelEncoding = 3
)

// BytesPerPixel returns the element size, or 0 for unknown encodings.
func (e PixelEncoding) BytesPerPixel() int {
	switch e {
	case EncodingUint8:
		return 1
	case EncodingUint16:
		return 2
	case EncodingFloat32:
		return 4
	default:
		return 0
	}
}

// String returns the encoding name.
func (e PixelEncoding) String() string {
	switch e {
	case EncodingUint8:
		return "uint8"
	case EncodingUint16:
		return "uint16"
	case EncodingFloat32:
		return "float32"
	default:
		return "unknown"
	}
}

// MetaEntry is one acquisition metadata entry. Entries preserve their
// order across encoding; numeric values are rendered by the producer in
// a fixed decimal form.
//
// CBOR encoding: {1: key, 2: value}
type MetaEntry struct {
	Key   string `cbor:"1,keyasint"`
	Value string `cbor:"2,keyasint"`
}

// ImageHeader describes the binary pixel segment that follows the CBOR
// envelope of an image response.
//
// CBOR encoding:
//
//	{
//	  1: width,      // uint32, pixels
//	  2: height,     // uint32, pixels
//	  3: bitDepth,   // uint8, significant bits per pixel
//	  4: encoding,   // uint8: element format
//	  5: byteLen,    // uint32: pixel segment length in bytes
//	  6: metadata    // ordered acquisition metadata entries
//	}
type ImageHeader struct {
	Width    uint32        `cbor:"1,keyasint"`
	Height   uint32        `cbor:"2,keyasint"`
	BitDepth uint8         `cbor:"3,keyasint"`
	Encoding PixelEncoding `cbor:"4,keyasint"`
	ByteLen  uint32        `cbor:"5,keyasint"`
	Metadata []MetaEntry   `cbor:"6,keyasint,omitempty"`
}

// Image is an acquired image: header plus pixel buffer. The caller owns
// the buffer once returned; the server never caches it beyond the
// single response.
type Image struct {
	Header ImageHeader
	Pixels []byte
}

// Equal reports deep equality of two images.
func (img *Image) Equal(o *Image) bool {
	if img == nil || o == nil {
		return img == o
	}
	if img.Header.Width != o.Header.Width ||
		img.Header.Height != o.Header.Height ||
		img.Header.BitDepth != o.Header.BitDepth ||
		img.Header.Encoding != o.Header.Encoding ||
		img.Header.ByteLen != o.Header.ByteLen ||
		len(img.Header.Metadata) != len(o.Header.Metadata) {
		return false
	}
	for i := range img.Header.Metadata {
		if img.Header.Metadata[i] != o.Header.Metadata[i] {
			return false
		}
	}
	return bytes.Equal(img.Pixels, o.Pixels)
}

// Validate checks internal consistency of the header against the pixel
// buffer.
func (img *Image) Validate() error {
	bpp := img.Header.Encoding.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("%w: unknown pixel encoding %d", ErrMalformedValue, img.Header.Encoding)
	}
	expected := int(img.Header.Width) * int(img.Header.Height) * bpp
	if int(img.Header.ByteLen) != expected {
		return fmt.Errorf("%w: declared %d bytes, %dx%d %s needs %d",
			ErrMalformedValue, img.Header.ByteLen, img.Header.Width, img.Header.Height,
			img.Header.Encoding, expected)
	}
	if len(img.Pixels) != expected {
		return fmt.Errorf("%w: pixel buffer is %d bytes, want %d", ErrMalformedValue, len(img.Pixels), expected)
	}
	return nil
}

// EncodeImageResponse encodes a success response carrying an image. The
// CBOR envelope holds the header; the pixel buffer is appended after it
// as a raw binary segment inside the same frame.
func EncodeImageResponse(messageID uint32, img *Image) ([]byte, error) {
	img.Header.ByteLen = uint32(len(img.Pixels))
	if err := img.Validate(); err != nil {
		return nil, err
	}
	resp := &Response{
		MessageID:    messageID,
		Status:       StatusOK,
		Payload:      img.Header,
		ImageFollows: true,
	}
	envelope, err := Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image response: %w", err)
	}
	frame := make([]byte, 0, len(envelope)+len(img.Pixels))
	frame = append(frame, envelope...)
	frame = append(frame, img.Pixels...)
	return frame, nil
}

// DecodeImagePayload assembles an image from a decoded response payload
// and the trailing binary segment. The header's declared length is
// validated against the bytes present before any image is returned: a
// short segment fails with ErrTruncatedPayload and no partial image.
func DecodeImagePayload(payload any, trailing []byte) (*Image, error) {
	header, err := ExtractImageHeader(payload)
	if err != nil {
		return nil, err
	}
	if int(header.ByteLen) > len(trailing) {
		return nil, fmt.Errorf("%w: declared %d bytes, received %d", ErrTruncatedPayload, header.ByteLen, len(trailing))
	}
	if int(header.ByteLen) < len(trailing) {
		return nil, fmt.Errorf("%w: %d trailing bytes beyond declared %d", ErrMalformedValue, len(trailing), header.ByteLen)
	}
	img := &Image{Header: *header, Pixels: trailing}
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return img, nil
}

// ExtractImageHeader pulls an image header out of a decoded response
// payload. After a CBOR round trip the payload is a raw map, not
// ImageHeader, so both forms are handled.
func ExtractImageHeader(payload any) (*ImageHeader, error) {
	switch h := payload.(type) {
	case *ImageHeader:
		return h, nil
	case ImageHeader:
		return &h, nil
	}

	m, ok := payload.(map[any]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T, want image header", ErrMalformedValue, payload)
	}

	header := &ImageHeader{}
	if v, ok := asInt64(m[uint64(1)]); ok {
		header.Width = uint32(v)
	}
	if v, ok := asInt64(m[uint64(2)]); ok {
		header.Height = uint32(v)
	}
	if v, ok := asInt64(m[uint64(3)]); ok {
		header.BitDepth = uint8(v)
	}
	if v, ok := asInt64(m[uint64(4)]); ok {
		header.Encoding = PixelEncoding(v)
	}
	if v, ok := asInt64(m[uint64(5)]); ok {
		header.ByteLen = uint32(v)
	}
	if raw, ok := m[uint64(6)].([]any); ok {
		for _, e := range raw {
			em, ok := e.(map[any]any)
			if !ok {
				return nil, fmt.Errorf("%w: malformed metadata entry", ErrMalformedValue)
			}
			entry := MetaEntry{}
			if s, ok := em[uint64(1)].(string); ok {
				entry.Key = s
			}
			if s, ok := em[uint64(2)].(string); ok {
				entry.Value = s
			}
			header.Metadata = append(header.Metadata, entry)
		}
	}
	return header, nil
}
