package view

import "testing"

func TestParseTonemappingRoundTrip(t *testing.T) {
	names := map[string]Tonemapping{
		"":                                  TonemappingNone,
		"none":                              TonemappingNone,
		"reinhard":                          TonemappingReinhard,
		"reinhard_luminance":                TonemappingReinhardLuminance,
		"aces_fitted":                       TonemappingAcesFitted,
		"agx":                               TonemappingAgX,
		"somewhat_boring_display_transform": TonemappingSomewhatBoringDisplayTransform,
		"tony_mc_mapface":                   TonemappingTonyMcMapface,
		"blender_filmic":                    TonemappingBlenderFilmic,
	}
	for name, want := range names {
		got, ok := ParseTonemapping(name)
		if !ok {
			t.Errorf("ParseTonemapping(%q) not recognized", name)
			continue
		}
		if got != want {
			t.Errorf("ParseTonemapping(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestParseTonemappingUnknown(t *testing.T) {
	if _, ok := ParseTonemapping("filmic"); ok {
		t.Error("expected an unknown name to be rejected")
	}
}

func TestTonemappingShaderSuffix(t *testing.T) {
	if got := TonemappingTonyMcMapface.String(); got != "TONY_MC_MAPFACE" {
		t.Errorf("String() = %q, want TONY_MC_MAPFACE", got)
	}
	if got := Tonemapping(99).String(); got != "NONE" {
		t.Errorf("String() on an unknown value = %q, want NONE", got)
	}
}
