package microscope

import (
	"context"

	"github.com/temscript/temscript-go/pkg/instrument"
	"github.com/temscript/temscript-go/pkg/schema"
	"github.com/temscript/temscript-go/pkg/wire"
)

// CameraInfo describes one installed camera.
type CameraInfo struct {
	Name   string
	Width  int64
	Height int64
}

// AcquireOptions tunes an acquisition. The zero value means full
// readout, default exposure or dwell time, binning 1.
type AcquireOptions struct {
	// Size selects the readout area.
	Size AcqImageSize

	// Exposure is the exposure time in seconds (TEM cameras), or the
	// per-pixel dwell time in seconds (STEM detectors). Zero keeps the
	// instrument default.
	Exposure float64

	// Binning is the pixel binning factor. Zero keeps binning 1.
	Binning int64
}

// Acquisition controls cameras and STEM detectors.
type Acquisition struct {
	driver instrument.Driver
}

// Cameras lists the installed cameras.
func (a *Acquisition) Cameras(ctx context.Context) ([]CameraInfo, error) {
	v, err := a.driver.Get(ctx, schema.SubAcquisition, "cameras")
	if err != nil {
		return nil, err
	}
	cameras := make([]CameraInfo, 0, len(v.Rec))
	for _, field := range v.Rec {
		info := CameraInfo{Name: field.Name}
		for _, prop := range field.Value.Rec {
			switch prop.Name {
			case "width":
				info.Width = prop.Value.Int
			case "height":
				info.Height = prop.Value.Int
			}
		}
		cameras = append(cameras, info)
	}
	return cameras, nil
}

// Detectors lists the installed STEM detector names.
func (a *Acquisition) Detectors(ctx context.Context) ([]string, error) {
	v, err := a.driver.Get(ctx, schema.SubAcquisition, "stem_detectors")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(v.Rec))
	for _, field := range v.Rec {
		names = append(names, field.Name)
	}
	return names, nil
}

// ScreenCurrent reads the fluorescent screen current in amperes.
func (a *Acquisition) ScreenCurrent(ctx context.Context) (float64, error) {
	return getFloat(ctx, a.driver, schema.SubAcquisition, "screen_current")
}

// AcquireTEMImage records one image from the named camera.
func (a *Acquisition) AcquireTEMImage(ctx context.Context, camera string, opts AcquireOptions) (*wire.Image, error) {
	return a.acquire(ctx, "acquire_tem_image", "camera", camera, "exposure", opts)
}

// AcquireSTEMImage records one scan from the named detector.
func (a *Acquisition) AcquireSTEMImage(ctx context.Context, detector string, opts AcquireOptions) (*wire.Image, error) {
	return a.acquire(ctx, "acquire_stem_image", "detector", detector, "dwell_time", opts)
}

func (a *Acquisition) acquire(ctx context.Context, item, sourceArg, source, timeArg string, opts AcquireOptions) (*wire.Image, error) {
	args := wire.Args{{Name: sourceArg, Value: wire.Str(source)}}
	if opts.Size != AcqSizeFull {
		args = append(args, wire.Arg{Name: "size", Value: wire.Enum(int64(opts.Size))})
	}
	if opts.Exposure > 0 {
		args = append(args, wire.Arg{Name: timeArg, Value: wire.Float(opts.Exposure)})
	}
	if opts.Binning > 0 {
		args = append(args, wire.Arg{Name: "binning", Value: wire.Int(opts.Binning)})
	}

	v, err := a.driver.Call(ctx, schema.SubAcquisition, item, args)
	if err != nil {
		return nil, err
	}
	return v.Img, nil
}
