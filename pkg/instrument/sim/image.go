package sim

import (
	"encoding/binary"
	"fmt"

	"github.com/temscript/temscript-go/pkg/wire"
)

// noiseSource is a small xorshift generator. Images stay reproducible
// within a driver instance without pulling in math/rand state.
type noiseSource struct {
	state uint32
}

func (n *noiseSource) next() uint32 {
	x := n.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	n.state = x
	return x
}

// renderImage produces a 16-bit horizontal gradient with shot-style
// noise scaled by the exposure or dwell time.
func (d *Driver) renderImage(w, h uint32, source, timeKey string, timeVal float64, binning int64) *wire.Image {
	pixels := make([]byte, int(w)*int(h)*2)

	scale := timeVal
	if scale > 1 {
		scale = 1
	}
	amplitude := uint32(float64(0x0fff) * scale)
	if amplitude == 0 {
		amplitude = 1
	}

	i := 0
	for y := uint32(0); y < h; y++ {
		for x := uint32(0); x < w; x++ {
			base := uint32(0x2000)
			if w > 1 {
				base += x * 0x8000 / (w - 1)
			}
			v := base + d.noise.next()%amplitude
			if v > 0xffff {
				v = 0xffff
			}
			binary.LittleEndian.PutUint16(pixels[i:], uint16(v))
			i += 2
		}
	}

	img := &wire.Image{
		Header: wire.ImageHeader{
			Width:    w,
			Height:   h,
			BitDepth: 16,
			Encoding: wire.EncodingUint16,
			ByteLen:  uint32(len(pixels)),
			Metadata: []wire.MetaEntry{
				{Key: "source", Value: source},
				{Key: timeKey, Value: fmt.Sprintf("%.6f", timeVal)},
				{Key: "binning", Value: fmt.Sprintf("%d", binning)},
				{Key: "magnification", Value: fmt.Sprintf("%.0f", d.magnification)},
				{Key: "ht_volts", Value: fmt.Sprintf("%.0f", d.voltage)},
			},
		},
		Pixels: pixels,
	}
	return img
}
