package wire

import (
	"bytes"
	"errors"
	"testing"
)

func testImage() *Image {
	// 4x3 16-bit gradient.
	pixels := make([]byte, 4*3*2)
	for i := 0; i < len(pixels); i += 2 {
		pixels[i] = byte(i)
		pixels[i+1] = byte(i >> 1)
	}
	return &Image{
		Header: ImageHeader{
			Width:    4,
			Height:   3,
			BitDepth: 16,
			Encoding: EncodingUint16,
			Metadata: []MetaEntry{
				{Key: "camera", Value: "BM-Ceta"},
				{Key: "exposure_s", Value: "0.500"},
				{Key: "binning", Value: "1"},
			},
		},
		Pixels: pixels,
	}
}

func TestImageResponseRoundTrip(t *testing.T) {
	img := testImage()

	frame, err := EncodeImageResponse(21, img)
	if err != nil {
		t.Fatalf("EncodeImageResponse failed: %v", err)
	}

	resp, trailing, err := DecodeResponse(frame)
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if resp.MessageID != 21 {
		t.Errorf("MessageID: got %d, want 21", resp.MessageID)
	}
	if !resp.ImageFollows {
		t.Error("ImageFollows not set")
	}

	decoded, err := DecodeImagePayload(resp.Payload, trailing)
	if err != nil {
		t.Fatalf("DecodeImagePayload failed: %v", err)
	}
	if !decoded.Equal(img) {
		t.Error("round trip changed image")
	}
	// Metadata order must survive the round trip.
	if decoded.Header.Metadata[0].Key != "camera" || decoded.Header.Metadata[2].Key != "binning" {
		t.Errorf("metadata order changed: %v", decoded.Header.Metadata)
	}
}

func TestDecodeImagePayloadTruncated(t *testing.T) {
	img := testImage()
	frame, err := EncodeImageResponse(5, img)
	if err != nil {
		t.Fatalf("EncodeImageResponse failed: %v", err)
	}

	// Drop the last few pixel bytes; the envelope stays intact.
	resp, trailing, err := DecodeResponse(frame[:len(frame)-5])
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}

	_, err = DecodeImagePayload(resp.Payload, trailing)
	if !errors.Is(err, ErrTruncatedPayload) {
		t.Errorf("got %v, want ErrTruncatedPayload", err)
	}
}

func TestDecodeImagePayloadExcessBytes(t *testing.T) {
	img := testImage()
	frame, err := EncodeImageResponse(5, img)
	if err != nil {
		t.Fatalf("EncodeImageResponse failed: %v", err)
	}
	frame = append(frame, 0xde, 0xad)

	resp, trailing, err := DecodeResponse(frame)
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	_, err = DecodeImagePayload(resp.Payload, trailing)
	if !errors.Is(err, ErrMalformedValue) {
		t.Errorf("got %v, want ErrMalformedValue", err)
	}
}

func TestImageValidate(t *testing.T) {
	tests := []struct {
		name    string
		img     Image
		wantErr bool
	}{
		{
			name: "consistent",
			img: Image{
				Header: ImageHeader{Width: 2, Height: 2, BitDepth: 8, Encoding: EncodingUint8, ByteLen: 4},
				Pixels: make([]byte, 4),
			},
		},
		{
			name: "byte length does not match dimensions",
			img: Image{
				Header: ImageHeader{Width: 2, Height: 2, BitDepth: 16, Encoding: EncodingUint16, ByteLen: 4},
				Pixels: make([]byte, 4),
			},
			wantErr: true,
		},
		{
			name: "unknown encoding",
			img: Image{
				Header: ImageHeader{Width: 2, Height: 2, BitDepth: 8, Encoding: PixelEncoding(99), ByteLen: 4},
				Pixels: make([]byte, 4),
			},
			wantErr: true,
		},
		{
			name: "buffer shorter than header",
			img: Image{
				Header: ImageHeader{Width: 2, Height: 2, BitDepth: 8, Encoding: EncodingUint8, ByteLen: 4},
				Pixels: make([]byte, 3),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.img.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExtractImageHeaderForms(t *testing.T) {
	h := &ImageHeader{Width: 8, Height: 8, BitDepth: 8, Encoding: EncodingUint8, ByteLen: 64}

	got, err := ExtractImageHeader(h)
	if err != nil || got != h {
		t.Fatalf("pointer form: got %v, %v", got, err)
	}

	if _, err := ExtractImageHeader("nonsense"); !errors.Is(err, ErrMalformedValue) {
		t.Errorf("got %v, want ErrMalformedValue", err)
	}
}

func TestPixelEncodingSizes(t *testing.T) {
	tests := []struct {
		enc  PixelEncoding
		size int
	}{
		{EncodingUint8, 1},
		{EncodingUint16, 2},
		{EncodingFloat32, 4},
		{PixelEncoding(0), 0},
	}
	for _, tt := range tests {
		if got := tt.enc.BytesPerPixel(); got != tt.size {
			t.Errorf("%v.BytesPerPixel() = %d, want %d", tt.enc, got, tt.size)
		}
	}
}

func TestImageEqual(t *testing.T) {
	a := testImage()
	b := testImage()
	if !a.Equal(b) {
		t.Error("identical images not equal")
	}

	b.Pixels = bytes.Repeat([]byte{0}, len(b.Pixels))
	if a.Equal(b) {
		t.Error("images with different pixels compare equal")
	}

	var nilImg *Image
	if a.Equal(nilImg) {
		t.Error("image equal to nil")
	}
	if !nilImg.Equal(nil) {
		t.Error("nil images not equal")
	}
}
