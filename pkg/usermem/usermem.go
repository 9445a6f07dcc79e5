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

// Package usermem governs access to user memory.
package usermem

import (
	"ukern.dev/ukern/pkg/hostarch"
)

// IO provides access to the contents of a virtual memory space.
type IO interface {
	// CopyOut copies len(src) bytes from src to the memory mapped at addr. It
	// returns the number of bytes copied. If the number of bytes copied is <
	// len(src), it returns a non-nil error explaining why.
	CopyOut(addr hostarch.Addr, src []byte) (int, error)

	// CopyIn copies len(dst) bytes from the memory mapped at addr to dst.
	// It returns the number of bytes copied. If the number of bytes copied is
	// < len(dst), it returns a non-nil error explaining why.
	CopyIn(addr hostarch.Addr, dst []byte) (int, error)

	// ZeroOut sets toZero bytes to 0, starting at addr. It returns the number
	// of bytes zeroed. If the number of bytes zeroed is < toZero, it returns a
	// non-nil error explaining why.
	ZeroOut(addr hostarch.Addr, toZero int64) (int64, error)
}

// IOCopyContext wraps an object implementing IO to implement
// marshal.CopyContext.
type IOCopyContext struct {
	IO IO
}

// CopyInBytes implements marshal.CopyContext.CopyInBytes.
func (i IOCopyContext) CopyInBytes(addr hostarch.Addr, dst []byte) (int, error) {
	return i.IO.CopyIn(addr, dst)
}

// CopyOutBytes implements marshal.CopyContext.CopyOutBytes.
func (i IOCopyContext) CopyOutBytes(addr hostarch.Addr, src []byte) (int, error) {
	return i.IO.CopyOut(addr, src)
}
