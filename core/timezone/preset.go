package timezone

// Preset is a named timezone configuration. The set is closed: each
// entry holds data plus the override tag selecting its projection
// rule, dispatched by explicit matching.
type Preset struct {
	Name          string
	OffsetMinutes int64
	Override      Override
	FixedHour     int
}

var presets = []Preset{
	{Name: "server_time"},
	{Name: "early_morning", OffsetMinutes: -360},
	{Name: "morning", OffsetMinutes: -180},
	{Name: "afternoon", OffsetMinutes: 180},
	{Name: "evening", OffsetMinutes: 360},
	{Name: "night", OffsetMinutes: 540},
	{Name: "midnight", OffsetMinutes: 720},

	{Name: "utc-12", OffsetMinutes: -17280},
	{Name: "utc-6", OffsetMinutes: -8640},
	{Name: "utc"},
	{Name: "utc+6", OffsetMinutes: 8640},
	{Name: "utc+12", OffsetMinutes: 17280},

	{Name: "eternal_day", Override: OverrideFixedHour, FixedHour: 12},
	{Name: "eternal_night", Override: OverrideFixedHour, FixedHour: 0},
	{Name: "reversed_time", Override: OverrideReverseFlow},
}

// PresetByName looks a preset up by its configuration name.
func PresetByName(name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// PresetNames returns the known preset names in declaration order.
func PresetNames() []string {
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.Name
	}
	return names
}
