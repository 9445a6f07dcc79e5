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

package cmd

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"ukern.dev/ukern/ksim/config"
)

// Config implements subcommands.Command for the "config" command.
type Config struct{}

// Name implements subcommands.Command.Name.
func (*Config) Name() string {
	return "config"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Config) Synopsis() string {
	return "print the effective configuration as TOML"
}

// Usage implements subcommands.Command.Usage.
func (*Config) Usage() string {
	return `config

Prints the configuration that results from defaults, the --config file and
flags. The output can be passed back with --config.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Config) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Config) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	data, err := conf.ToTOML()
	if err != nil {
		Fatalf("encoding config: %v", err)
	}
	if _, err := os.Stdout.Write(data); err != nil {
		Fatalf("writing config: %v", err)
	}
	return subcommands.ExitSuccess
}
