// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config provides basic infrastructure to set configuration settings
// for ksim. Settings come from defaults, then an optional configuration file,
// then flags set on the command line, each overriding the previous one.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
	"ukern.dev/ukern/pkg/hostarch"
	"ukern.dev/ukern/pkg/log"
)

// Config holds configuration that is not part of the user programs
// themselves.
type Config struct {
	// NumProcs is the number of process table slots.
	NumProcs int `toml:"nproc" yaml:"nproc"`

	// NumFiles is the size of each task's file table.
	NumFiles int `toml:"nofile" yaml:"nofile"`

	// InitMemory is the size of the first task's address space.
	InitMemory Bytes `toml:"init-memory" yaml:"init-memory"`

	// MaxMemory is the size an address space may grow to with sbrk.
	MaxMemory Bytes `toml:"max-memory" yaml:"max-memory"`

	// TickInterval is the period of the timer interrupt.
	TickInterval Duration `toml:"tick-interval" yaml:"tick-interval"`

	// MaxBacktraceDepth bounds the frames printed by backtrace.
	MaxBacktraceDepth int `toml:"max-backtrace-depth" yaml:"max-backtrace-depth"`

	// Debug indicates that debug logging should be enabled.
	Debug bool `toml:"debug" yaml:"debug"`

	// Strace indicates that syscalls should be traced to the log.
	Strace bool `toml:"strace" yaml:"strace"`

	// LogFormat is the log format: text or json.
	LogFormat string `toml:"log-format" yaml:"log-format"`

	// LogFilename is the filename to log to, if not empty.
	LogFilename string `toml:"log" yaml:"log"`

	// AlsoLogToStderr copies the log to stderr when LogFilename is set.
	AlsoLogToStderr bool `toml:"alsologtostderr" yaml:"alsologtostderr"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		NumProcs:          64,
		NumFiles:          16,
		InitMemory:        4 * hostarch.PageSize,
		MaxMemory:         64 * hostarch.PageSize,
		TickInterval:      Duration(10 * time.Millisecond),
		MaxBacktraceDepth: 64,
		LogFormat:         "text",
	}
}

// Bytes is a size in bytes. In flags and files it is written the way
// humanize formats sizes, e.g. "16 KiB" or "65536".
type Bytes uint64

// String implements flag.Value.String.
func (b *Bytes) String() string {
	return humanize.IBytes(uint64(*b))
}

// Set implements flag.Value.Set.
func (b *Bytes) Set(s string) error {
	v, err := humanize.ParseBytes(s)
	if err != nil {
		return err
	}
	*b = Bytes(v)
	return nil
}

// Get implements flag.Getter.Get.
func (b *Bytes) Get() any {
	return *b
}

// MarshalText implements encoding.TextMarshaler.
func (b Bytes) MarshalText() ([]byte, error) {
	return []byte(humanize.IBytes(uint64(b))), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Bytes) UnmarshalText(text []byte) error {
	return b.Set(string(text))
}

// Duration is a time.Duration written as "10ms" in flags and files.
type Duration time.Duration

// String implements flag.Value.String.
func (d *Duration) String() string {
	return time.Duration(*d).String()
}

// Set implements flag.Value.Set.
func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Get implements flag.Getter.Get.
func (d *Duration) Get() any {
	return *d
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	return d.Set(string(text))
}

// Validate checks that the configuration can boot a kernel.
func (c *Config) Validate() error {
	switch {
	case c.NumProcs < 1:
		return fmt.Errorf("nproc must be at least 1, got %d", c.NumProcs)
	case c.NumFiles < 3:
		return fmt.Errorf("nofile must be at least 3, got %d", c.NumFiles)
	case c.InitMemory < 2*hostarch.PageSize:
		return fmt.Errorf("init-memory must be at least %d bytes, got %d", 2*hostarch.PageSize, c.InitMemory)
	case !hostarch.Addr(c.InitMemory).IsPageAligned():
		return fmt.Errorf("init-memory must be page aligned, got %d", c.InitMemory)
	case c.MaxMemory < c.InitMemory:
		return fmt.Errorf("max-memory (%d) is less than init-memory (%d)", c.MaxMemory, c.InitMemory)
	case uint64(c.MaxMemory) > uint64(hostarch.MaxAddr):
		return fmt.Errorf("max-memory exceeds the %d byte address space, got %d", uint64(hostarch.MaxAddr), c.MaxMemory)
	case c.TickInterval <= 0:
		return fmt.Errorf("tick-interval must be positive, got %v", time.Duration(c.TickInterval))
	case c.MaxBacktraceDepth < 1:
		return fmt.Errorf("max-backtrace-depth must be at least 1, got %d", c.MaxBacktraceDepth)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format %q, must be text or json", c.LogFormat)
	}
	return nil
}

// ToTOML writes c in the configuration file format.
func (c *Config) ToTOML() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Log logs important aspects of the configuration to the given log function.
func (c *Config) Log() {
	log.Infof("Config:")
	log.Infof("\t\tNumProcs: %d, NumFiles: %d", c.NumProcs, c.NumFiles)
	log.Infof("\t\tInitMemory: %v, MaxMemory: %v", &c.InitMemory, &c.MaxMemory)
	log.Infof("\t\tTickInterval: %v, MaxBacktraceDepth: %d", &c.TickInterval, c.MaxBacktraceDepth)
	log.Infof("\t\tDebug: %t, Strace: %t, LogFormat: %s, LogFilename: %q, AlsoLogToStderr: %t", c.Debug, c.Strace, c.LogFormat, c.LogFilename, c.AlsoLogToStderr)
}

// LoadFile overlays the settings found in the file at path onto c. The
// format is chosen by extension: .toml, or .yaml and .yml. Keys the file does
// not name keep their value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch ext := filepath.Ext(path); ext {
	case ".toml":
		md, err := toml.Decode(string(data), c)
		if err != nil {
			return fmt.Errorf("parsing %q: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("parsing %q: unknown keys %v", path, undecoded)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parsing %q: %w", path, err)
		}
	default:
		return fmt.Errorf("unknown configuration file extension %q for %q", ext, path)
	}
	return nil
}
