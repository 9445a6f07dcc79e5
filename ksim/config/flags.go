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

package config

import (
	"flag"
	"fmt"
)

// configFlag names the flag that points at a configuration file.
const configFlag = "config"

// RegisterFlags registers flags used to populate Config.
func RegisterFlags(flagSet *flag.FlagSet) {
	d := Default()

	flagSet.String(configFlag, "", "path to a configuration file (.toml, .yaml or .yml). Flags set on the command line take precedence over it.")

	// Kernel limits.
	flagSet.Int("nproc", d.NumProcs, "number of process table slots.")
	flagSet.Int("nofile", d.NumFiles, "size of the per-task file table.")
	flagSet.Var(&d.InitMemory, "init-memory", "size of the first task's address space, e.g. 16KiB.")
	flagSet.Var(&d.MaxMemory, "max-memory", "size an address space may grow to.")
	flagSet.Var(&d.TickInterval, "tick-interval", "period of the timer interrupt.")
	flagSet.Int("max-backtrace-depth", d.MaxBacktraceDepth, "maximum number of frames printed by backtrace.")

	// Debugging flags.
	flagSet.Bool("debug", d.Debug, "enable debug logging.")
	flagSet.Bool("strace", d.Strace, "enable strace.")
	flagSet.String("log-format", d.LogFormat, "log format: text (default) or json.")
	flagSet.String("log", d.LogFilename, "file path where internal debug information is written, default is stderr.")
	flagSet.Bool("alsologtostderr", d.AlsoLogToStderr, "send log messages to stderr as well as to --log.")
}

// NewFromFlags creates a new Config with values coming from the given flag
// set, overlaid on the configuration file if one is given. It returns an
// error if the result is invalid.
func NewFromFlags(flagSet *flag.FlagSet) (*Config, error) {
	conf := Default()
	if f := flagSet.Lookup(configFlag); f != nil && f.Value.String() != "" {
		if err := conf.LoadFile(f.Value.String()); err != nil {
			return nil, fmt.Errorf("loading configuration file: %w", err)
		}
	}

	// Only flags set explicitly override the file. Unset flags hold the
	// defaults, which conf already has.
	var err error
	flagSet.Visit(func(f *flag.Flag) {
		if err == nil && f.Name != configFlag {
			err = conf.set(f.Name, f.Value.(flag.Getter).Get())
		}
	})
	if err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// set assigns the value of the flag with the given name. Flags registered on
// the set that are not configuration flags are ignored.
func (c *Config) set(name string, v any) error {
	var ok bool
	switch name {
	case "nproc":
		c.NumProcs, ok = v.(int)
	case "nofile":
		c.NumFiles, ok = v.(int)
	case "init-memory":
		c.InitMemory, ok = v.(Bytes)
	case "max-memory":
		c.MaxMemory, ok = v.(Bytes)
	case "tick-interval":
		c.TickInterval, ok = v.(Duration)
	case "max-backtrace-depth":
		c.MaxBacktraceDepth, ok = v.(int)
	case "debug":
		c.Debug, ok = v.(bool)
	case "strace":
		c.Strace, ok = v.(bool)
	case "log-format":
		c.LogFormat, ok = v.(string)
	case "log":
		c.LogFilename, ok = v.(string)
	case "alsologtostderr":
		c.AlsoLogToStderr, ok = v.(bool)
	default:
		return nil
	}
	if !ok {
		return fmt.Errorf("flag %q has value %v of unexpected type %T", name, v, v)
	}
	return nil
}
