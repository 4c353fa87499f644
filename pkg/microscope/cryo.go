package microscope

import (
	"context"
	"time"

	"github.com/temscript/temscript-go/pkg/instrument"
	"github.com/temscript/temscript-go/pkg/schema"
	"github.com/temscript/temscript-go/pkg/wire"
)

// Temperature controls the cryo refrigerant system.
type Temperature struct {
	driver instrument.Driver
}

// IsFilling reports whether a dewar refill is in progress.
func (t *Temperature) IsFilling(ctx context.Context) (bool, error) {
	v, err := t.driver.Get(ctx, schema.SubTemperature, "is_filling")
	if err != nil {
		return false, err
	}
	return v.Bool, nil
}

// RemainingTime reports how long the current refill will run.
func (t *Temperature) RemainingTime(ctx context.Context) (time.Duration, error) {
	v, err := t.driver.Get(ctx, schema.SubTemperature, "remaining_time")
	if err != nil {
		return 0, err
	}
	return time.Duration(v.Int) * time.Second, nil
}

// DewarLevel reads the fill level of the named dewar in percent.
// Known names are "autoloader" and "column".
func (t *Temperature) DewarLevel(ctx context.Context, dewar string) (float64, error) {
	v, err := t.driver.Call(ctx, schema.SubTemperature, "dewar_level", wire.Args{
		{Name: "dewar", Value: wire.Str(dewar)},
	})
	if err != nil {
		return 0, err
	}
	return v.Num, nil
}

// ForceRefill starts an immediate dewar refill. Fails with a busy
// fault while a refill is already running.
func (t *Temperature) ForceRefill(ctx context.Context) error {
	_, err := t.driver.Call(ctx, schema.SubTemperature, "force_refill", nil)
	return err
}

// Autoloader controls the cartridge autoloader.
type Autoloader struct {
	driver instrument.Driver
}

// NumberOfSlots reads the cassette capacity.
func (a *Autoloader) NumberOfSlots(ctx context.Context) (int64, error) {
	v, err := a.driver.Get(ctx, schema.SubAutoloader, "number_of_slots")
	if err != nil {
		return 0, err
	}
	return v.Int, nil
}

// LoadCartridge moves the cartridge from the given slot onto the
// stage. Slots are numbered from 1.
func (a *Autoloader) LoadCartridge(ctx context.Context, slot int64) error {
	_, err := a.driver.Call(ctx, schema.SubAutoloader, "load_cartridge", wire.Args{
		{Name: "slot", Value: wire.Int(slot)},
	})
	return err
}

// UnloadCartridge returns the loaded cartridge to its slot.
func (a *Autoloader) UnloadCartridge(ctx context.Context) error {
	_, err := a.driver.Call(ctx, schema.SubAutoloader, "unload_cartridge", nil)
	return err
}

// SlotStatus reports "empty", "occupied" or "loaded" for a slot.
func (a *Autoloader) SlotStatus(ctx context.Context, slot int64) (string, error) {
	v, err := a.driver.Call(ctx, schema.SubAutoloader, "slot_status", wire.Args{
		{Name: "slot", Value: wire.Int(slot)},
	})
	if err != nil {
		return "", err
	}
	return v.Str, nil
}
