// Package config decodes optional TOML settings files. cmd/gbemu loads the file named
// by its -config flag but does not apply any of its values; cmd/cpurunner does not use
// this package. A Config's zero value leaves every field unset; it is not the same as
// cpurunner's flag defaults.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config holds the settings a file can carry: a four-shade palette, trace-on-fail window
// sizes, and serial pass/fail markers.
type Config struct {
	Palette Palette `toml:"palette"`
	Trace   Trace   `toml:"trace"`
	Serial  Serial  `toml:"serial"`
}

// Palette holds four 0xRRGGBB shades; a zero value means "unset". Nothing in this
// repository reads it: Device always paints the built-in DMG greys.
type Palette struct {
	Lightest uint32 `toml:"lightest"`
	Light    uint32 `toml:"light"`
	Dark     uint32 `toml:"dark"`
	Darkest  uint32 `toml:"darkest"`
}

// IsZero reports whether the palette was left unset in the config file.
func (p Palette) IsZero() bool { return p == (Palette{}) }

// Trace holds window sizes for a trace-on-fail dump. cpurunner's -traceOnFail dump takes
// its sizes from its own flags, not from this struct.
type Trace struct {
	Window       int `toml:"window"`
	SerialWindow int `toml:"serial_window"`
}

// Serial holds pass/fail markers for captured serial output. cpurunner's -auto mode takes
// its markers from its own flags, not from this struct.
type Serial struct {
	PassMarker string `toml:"pass_marker"`
	FailRegexp string `toml:"fail_regexp"`
}

// Default returns the zero-value Config, i.e. the behavior a host gets with no file.
func Default() Config { return Config{} }

// Load reads and decodes a TOML config file at path. A missing or malformed file is the
// caller's concern to report; Load does not fall back to Default silently.
func Load(path string) (Config, error) {
	var c Config
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return c, nil
}

// Merge overlays non-zero fields of override onto c, giving CLI-flag-sourced values
// precedence over the file while letting the file supply anything flags left at their
// Go zero value.
func (c Config) Merge(override Config) Config {
	out := c
	if !override.Palette.IsZero() {
		out.Palette = override.Palette
	}
	if override.Trace.Window != 0 {
		out.Trace.Window = override.Trace.Window
	}
	if override.Trace.SerialWindow != 0 {
		out.Trace.SerialWindow = override.Trace.SerialWindow
	}
	if override.Serial.PassMarker != "" {
		out.Serial.PassMarker = override.Serial.PassMarker
	}
	if override.Serial.FailRegexp != "" {
		out.Serial.FailRegexp = override.Serial.FailRegexp
	}
	return out
}
