package stream

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Step is one scripted line and the pause that follows it.
type Step struct {
	Line  string        `toml:"line"`
	Delay time.Duration `toml:"delay"`
}

// Script is an ordered list of steps.
type Script []Step

// Validate rejects steps that cannot be written as a single line.
func (s Script) Validate() error {
	for i, step := range s {
		if strings.ContainsAny(strings.TrimRight(step.Line, "\r\n"), "\r\n") {
			return fmt.Errorf("stream: step %d: line contains a line break", i+1)
		}
		if step.Delay < 0 {
			return fmt.Errorf("stream: step %d: negative delay %v", i+1, step.Delay)
		}
	}

	return nil
}

// Duration returns the sum of all step delays.
func (s Script) Duration() time.Duration {
	var total time.Duration
	for _, step := range s {
		total += step.Delay
	}

	return total
}

type scriptFile struct {
	// DefaultDelay applies to steps that do not set their own delay.
	DefaultDelay time.Duration `toml:"default_delay"`
	Steps        []struct {
		Line  string         `toml:"line"`
		Delay *time.Duration `toml:"delay"`
	} `toml:"step"`
}

// ParseScript decodes a TOML script:
//
//	default_delay = "500ms"
//
//	[[step]]
//	line = "adc.start(1000)"
//	delay = "2.5s"
//
//	[[step]]
//	line = "adc.stop"
func ParseScript(data string) (Script, error) {
	var f scriptFile

	md, err := toml.Decode(data, &f)
	if err != nil {
		return nil, fmt.Errorf("stream: parse script: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("stream: parse script: unknown key %q", undecoded[0].String())
	}

	if len(f.Steps) == 0 {
		return nil, errors.New("stream: script has no steps")
	}

	script := make(Script, len(f.Steps))
	for i, st := range f.Steps {
		script[i] = Step{Line: st.Line, Delay: f.DefaultDelay}
		if st.Delay != nil {
			script[i].Delay = *st.Delay
		}
	}

	if err := script.Validate(); err != nil {
		return nil, err
	}

	return script, nil
}

// LoadScript reads and parses the TOML script at path.
func LoadScript(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("stream: %w", err)
	}

	return ParseScript(string(data))
}
