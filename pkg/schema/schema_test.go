package schema

import (
	"errors"
	"testing"
)

func TestLookupKnownCapabilities(t *testing.T) {
	reg := Default()

	tests := []struct {
		subsystem string
		item      string
		kind      Kind
		valueType ValueType
	}{
		{SubStage, "position", KindReadProp, TypeVec3},
		{SubStage, "go_to", KindMethod, TypeNone},
		{SubGun, "voltage", KindReadProp, TypeFloat64},
		{SubIllumination, "beam_shift", KindReadWriteProp, TypeVec2},
		{SubVacuum, "column_valves_open", KindReadWriteProp, TypeBool},
		{SubAcquisition, "acquire_tem_image", KindMethod, TypeImage},
		{SubConfiguration, "family", KindReadProp, TypeEnum},
	}

	for _, tt := range tests {
		d, err := reg.Lookup(tt.subsystem, tt.item)
		if err != nil {
			t.Fatalf("Lookup(%s, %s) failed: %v", tt.subsystem, tt.item, err)
		}
		if d.Kind != tt.kind {
			t.Errorf("%s.%s kind: got %v, want %v", tt.subsystem, tt.item, d.Kind, tt.kind)
		}
		if d.Type != tt.valueType {
			t.Errorf("%s.%s type: got %v, want %v", tt.subsystem, tt.item, d.Type, tt.valueType)
		}
	}
}

func TestLookupUnknownCapability(t *testing.T) {
	reg := Default()

	tests := []struct {
		subsystem string
		item      string
	}{
		{"nosuch", "position"},
		{SubStage, "nosuch"},
		{"", ""},
		{SubStage, "Position"}, // names are case sensitive
	}

	for _, tt := range tests {
		_, err := reg.Lookup(tt.subsystem, tt.item)
		if !errors.Is(err, ErrUnknownCapability) {
			t.Errorf("Lookup(%q, %q): got %v, want ErrUnknownCapability", tt.subsystem, tt.item, err)
		}
	}
}

func TestDescriptorAccess(t *testing.T) {
	reg := Default()

	pos, _ := reg.Lookup(SubStage, "position")
	if !pos.Readable() || pos.Writable() || pos.IsMethod() {
		t.Errorf("stage.position access flags wrong: %+v", pos)
	}

	shift, _ := reg.Lookup(SubIllumination, "beam_shift")
	if !shift.Readable() || !shift.Writable() {
		t.Errorf("illumination.beam_shift should be read-write")
	}

	goTo, _ := reg.Lookup(SubStage, "go_to")
	if !goTo.IsMethod() || goTo.Readable() || goTo.Writable() {
		t.Errorf("stage.go_to should be method-only")
	}
}

func TestMethodParams(t *testing.T) {
	reg := Default()

	acq, _ := reg.Lookup(SubAcquisition, "acquire_tem_image")
	camera := acq.Param("camera")
	if camera == nil || !camera.Required || camera.Type != TypeString {
		t.Fatalf("acquire_tem_image camera param wrong: %+v", camera)
	}
	if acq.Param("nosuch") != nil {
		t.Error("Param should return nil for unknown parameter")
	}

	goTo, _ := reg.Lookup(SubStage, "go_to")
	for _, name := range []string{"x", "y", "z", "a", "b", "speed"} {
		p := goTo.Param(name)
		if p == nil || p.Required {
			t.Errorf("go_to param %q should exist and be optional", name)
		}
	}
}

func TestPreInitFlags(t *testing.T) {
	reg := Default()

	family, _ := reg.Lookup(SubConfiguration, "family")
	if !family.PreInit {
		t.Error("configuration.family should be pre-init safe")
	}

	pos, _ := reg.Lookup(SubStage, "position")
	if pos.PreInit {
		t.Error("stage.position must not be pre-init safe")
	}
}

func TestTupleArity(t *testing.T) {
	if TypeVec2.Arity() != 2 || TypeVec3.Arity() != 3 {
		t.Fatal("tuple arities wrong")
	}
	if TypeFloat64.Arity() != 0 || TypeRecord.Arity() != 0 {
		t.Fatal("non-tuple types must report arity 0")
	}
}

func TestSubsystemsAndItems(t *testing.T) {
	reg := Default()

	subs := reg.Subsystems()
	if len(subs) == 0 {
		t.Fatal("no subsystems")
	}
	seen := make(map[string]bool, len(subs))
	for _, s := range subs {
		seen[s] = true
	}
	for _, want := range []string{SubStage, SubGun, SubVacuum, SubAcquisition} {
		if !seen[want] {
			t.Errorf("missing subsystem %q", want)
		}
	}

	items := reg.Items(SubStage)
	if len(items) == 0 {
		t.Fatal("stage has no items")
	}
	if reg.Items("nosuch") != nil && len(reg.Items("nosuch")) != 0 {
		t.Error("unknown subsystem should yield no items")
	}
}

func TestDuplicateDescriptorPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("NewRegistry should panic on duplicate capability")
		}
	}()
	NewRegistry([]Descriptor{
		{Subsystem: "a", Item: "b", Kind: KindReadProp, Type: TypeBool},
		{Subsystem: "a", Item: "b", Kind: KindReadProp, Type: TypeBool},
	})
}
