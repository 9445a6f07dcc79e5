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

// Package cmd holds implementations of the ksim commands.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
	"ukern.dev/ukern/ksim/boot"
	"ukern.dev/ukern/ksim/config"
	"ukern.dev/ukern/pkg/log"
)

// Fatalf logs the same message to the log and to stderr, and exits.
func Fatalf(format string, args ...any) {
	log.Warningf(format, args...)
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(128)
}

// bootAndRun loads a kernel for conf and runs init on it until it returns or the
// command is interrupted.
func bootAndRun(ctx context.Context, conf *config.Config, console io.Writer, setup func(l *boot.Loader) error, init boot.Program) error {
	l, err := boot.New(conf, console)
	if err != nil {
		return err
	}
	if setup != nil {
		if err := setup(l); err != nil {
			return err
		}
	}
	ctx, stop := signal.NotifyContext(ctx, unix.SIGINT, unix.SIGTERM)
	defer stop()
	return l.Run(ctx, init)
}
