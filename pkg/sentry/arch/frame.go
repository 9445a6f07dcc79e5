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

package arch

import (
	"errors"
	"fmt"

	"ukern.dev/ukern/pkg/errors/linuxerr"
	"ukern.dev/ukern/pkg/hostarch"
	"ukern.dev/ukern/pkg/marshal/primitive"
	"ukern.dev/ukern/pkg/usermem"
)

// threadFrameSize is the size of the frame NewThreadFrame builds: a fake
// return address and one argument.
const threadFrameSize = 2 * hostarch.WordSize

// NewThreadFrame builds the initial execution context of a thread that starts
// in entry with a single argument arg, running on stack.
//
// It writes a frame at the top of stack as if entry had just been called
// with arg by a function whose return address is StackBottomMagic:
//
//	stack.End-4: arg
//	stack.End-8: StackBottomMagic  <- esp, ebp
//
// The returned registers are a copy of base with eip = entry, eax = 0 and
// esp and ebp pointing at the frame. On error nothing has been written.
func NewThreadFrame(base *Registers, io usermem.IO, stack hostarch.AddrRange, entry, arg uint32) (Registers, error) {
	if !stack.WellFormed() || stack.Length() < threadFrameSize || stack.End > hostarch.MaxAddr {
		return Registers{}, linuxerr.EINVAL
	}
	top := stack.End - threadFrameSize
	var frame [threadFrameSize]byte
	hostarch.ByteOrder.PutUint32(frame[0:], StackBottomMagic)
	hostarch.ByteOrder.PutUint32(frame[hostarch.WordSize:], arg)
	if _, err := io.CopyOut(top, frame[:]); err != nil {
		return Registers{}, err
	}

	regs := base.Fork()
	regs.SetIP(uintptr(entry))
	regs.SetStack(uintptr(top))
	regs.Ebp = uint32(top)
	return regs, nil
}

// Errors returned by FrameIterator.Err.
var (
	// ErrFrameOutOfRange is returned when a frame pointer leads outside
	// the stack region.
	ErrFrameOutOfRange = errors.New("frame pointer outside of stack")

	// ErrMaxDepth is returned when the walk gives up before finding the
	// bottom of the stack.
	ErrMaxDepth = errors.New("maximum backtrace depth reached")
)

// Frame is one step of a frame-pointer walk.
type Frame struct {
	// Index is the zero-based position of the frame, innermost first.
	Index int

	// FramePointer is the address of the saved ebp of the frame.
	FramePointer hostarch.Addr

	// ReturnAddr is the return address saved above FramePointer.
	ReturnAddr uint32
}

// Bottom returns true if f is the outermost frame of its stack.
func (f Frame) Bottom() bool {
	return f.ReturnAddr == StackBottomMagic
}

// FrameIterator lazily walks a chain of saved frame pointers. Each frame
// contributes the return address at [ebp+4], and [ebp] holds the frame
// pointer of the caller.
//
// The walk ends after the frame whose return address is StackBottomMagic, or
// with an error when a frame falls outside region or more than maxDepth
// frames have been produced. It never reads outside region.
type FrameIterator struct {
	io       usermem.IO
	region   hostarch.AddrRange
	fp       hostarch.Addr
	n        int
	maxDepth int
	done     bool
	err      error
}

// NewFrameIterator returns an iterator that walks frames starting from the
// frame pointer fp, reading through io. Every frame must lie within region.
func NewFrameIterator(io usermem.IO, region hostarch.AddrRange, fp uint32, maxDepth int) *FrameIterator {
	return &FrameIterator{
		io:       io,
		region:   region,
		fp:       hostarch.Addr(fp),
		maxDepth: maxDepth,
	}
}

// Next returns the next frame. It returns false when the walk is over; Err
// then reports whether it ended early.
func (it *FrameIterator) Next() (Frame, bool) {
	if it.done {
		return Frame{}, false
	}
	if it.n >= it.maxDepth {
		return it.fail(ErrMaxDepth)
	}
	ar, ok := it.fp.ToRange(threadFrameSize)
	if !ok || !it.region.IsSupersetOf(ar) {
		return it.fail(fmt.Errorf("%w: ebp %v, stack %v", ErrFrameOutOfRange, it.fp, it.region))
	}
	s := Stack{IO: it.io, Bottom: it.fp}
	next, err := primitive.CopyUint32In(&s, 0)
	if err != nil {
		return it.fail(err)
	}
	ret, err := primitive.CopyUint32In(&s, 0)
	if err != nil {
		return it.fail(err)
	}

	f := Frame{Index: it.n, FramePointer: it.fp, ReturnAddr: ret}
	it.n++
	if f.Bottom() {
		it.done = true
	}
	it.fp = hostarch.Addr(next)
	return f, true
}

func (it *FrameIterator) fail(err error) (Frame, bool) {
	it.done = true
	it.err = err
	return Frame{}, false
}

// Err returns the error that ended the walk, or nil if the walk reached the
// bottom of the stack.
func (it *FrameIterator) Err() error {
	return it.err
}
