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
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/google/subcommands"
	"ukern.dev/ukern/ksim/boot"
	"ukern.dev/ukern/ksim/config"
	"ukern.dev/ukern/pkg/abi/uapi"
	"ukern.dev/ukern/pkg/hostarch"
)

// PS implements subcommands.Command for the "ps" command.
type PS struct {
	children int
	depth    int
}

// Name implements subcommands.Command.Name.
func (*PS) Name() string {
	return "ps"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*PS) Synopsis() string {
	return "boot a kernel, fork a process tree and list it with getprocinfo"
}

// Usage implements subcommands.Command.Usage.
func (*PS) Usage() string {
	return `ps [flags]

Boots a kernel whose init forks a tree of processes that grow their memory
and sleep, then prints the process table as seen through getprocinfo.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (ps *PS) SetFlags(f *flag.FlagSet) {
	f.IntVar(&ps.children, "children", 2, "number of children each process forks.")
	f.IntVar(&ps.depth, "depth", 2, "depth of the process tree below init.")
}

// Execute implements subcommands.Command.Execute.
func (ps *PS) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 || ps.children < 0 || ps.depth < 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	init := func(p *boot.Proc) error {
		kids, all, err := ps.forkTree(p, ps.depth)
		if err != nil {
			return err
		}
		for _, pid := range all {
			if err := p.Loader().WaitForState(ctx, pid, uapi.SLEEPING); err != nil {
				return err
			}
		}
		if err := printProcTable(os.Stdout, p, procInfoBuf); err != nil {
			return err
		}
		for _, pid := range kids {
			p.Kill(pid)
		}
		// Orphans are given to init, so init reaps the whole tree.
		for p.Wait() > 0 {
		}
		return nil
	}
	if err := bootAndRun(ctx, conf, os.Stdout, nil, init); err != nil {
		Fatalf("ps failed: %v", err)
	}
	return subcommands.ExitSuccess
}

// forkTree forks ps.children children from p, each of which does the same
// until depth levels exist below p. It returns the pids of p's children and
// of all its descendants.
//
// Every process in the tree sleeps until it is killed, then kills its
// children and exits.
func (ps *PS) forkTree(p *boot.Proc, depth int) (kids, all []int32, err error) {
	if depth == 0 {
		return nil, nil, nil
	}
	for i := 0; i < ps.children; i++ {
		below := make(chan []int32, 1)
		pid := p.Fork(func(c *boot.Proc) error {
			// Each level has a different size.
			if c.Sbrk(int32(depth)*hostarch.PageSize) < 0 {
				below <- nil
				return errors.New("sbrk failed")
			}
			kids, all, err := ps.forkTree(c, depth-1)
			below <- all
			if err != nil {
				return err
			}
			c.Sleep(1 << 30)
			for _, pid := range kids {
				c.Kill(pid)
			}
			return nil
		})
		if pid < 0 {
			return nil, nil, fmt.Errorf("fork failed at depth %d", depth)
		}
		kids = append(kids, pid)
		all = append(all, pid)
		all = append(all, <-below...)
	}
	return kids, all, nil
}

// printProcTable prints the process table as p sees it through
// getprocinfo, using the user buffer at buf.
func printProcTable(w io.Writer, p *boot.Proc, buf uint32) error {
	infos, err := p.ProcTable(buf)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		return errors.New("process table is empty")
	}
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)
	fmt.Fprint(tw, "PID\tPPID\tNAME\tSTATE\tSIZE\tBLOCKED\tKILLED\n")
	for _, info := range infos {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%v\t%s\t%t\t%t\n",
			info.PID, info.ParentPID, info.NameString(), info.State,
			humanize.IBytes(uint64(info.Size)), info.IsBlocked != 0, info.IsKilled != 0)
	}
	return tw.Flush()
}
