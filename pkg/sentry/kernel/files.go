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

package kernel

import (
	"ukern.dev/ukern/pkg/refs"
)

// File is an open file. Files are shared between tasks by reference count:
// fork and thread creation take a new reference on every open file rather
// than copying it.
type File struct {
	refs.AtomicRefCount

	name string
	k    *Kernel
}

// stdout is the file descriptor diagnostic output of a task goes to.
const stdout = 1

func newConsoleFile(k *Kernel) *File {
	return &File{name: "console", k: k}
}

// Name returns the name the file was opened with.
func (f *File) Name() string {
	return f.name
}

// Write writes p to the file. A single Write is never interleaved with
// another.
func (f *File) Write(p []byte) (int, error) {
	if err := f.k.writeConsole(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Inode is a directory entry a task may use as its working directory.
type Inode struct {
	refs.AtomicRefCount

	path string
}

func newRootInode() *Inode {
	return &Inode{path: "/"}
}

// Path returns the absolute path of the inode.
func (i *Inode) Path() string {
	return i.path
}
