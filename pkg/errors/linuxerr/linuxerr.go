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

// Package linuxerr contains syscall error codes exported as error interface
// pointers. This allows for fast comparison and return operations comparable
// to unix.Errno constants.
package linuxerr

import (
	stderrors "errors"

	"golang.org/x/sys/unix"
	"ukern.dev/ukern/pkg/errors"
)

// The following errors are semantically identical to Errno of type
// unix.Errno. Since the types are distinct they are not directly comparable,
// but the Errno method returns a number such that
// unix.Errno(EPERM.Errno()) == unix.EPERM is true.
var (
	noError *errors.Error = nil
	EPERM                 = errors.New(unix.EPERM, "operation not permitted")
	ESRCH                 = errors.New(unix.ESRCH, "no such process")
	EINTR                 = errors.New(unix.EINTR, "interrupted system call")
	EBADF                 = errors.New(unix.EBADF, "bad file number")
	ECHILD                = errors.New(unix.ECHILD, "no child processes")
	EAGAIN                = errors.New(unix.EAGAIN, "try again")
	ENOMEM                = errors.New(unix.ENOMEM, "out of memory")
	EFAULT                = errors.New(unix.EFAULT, "bad address")
	EINVAL                = errors.New(unix.EINVAL, "invalid argument")
	ENOSYS                = errors.New(unix.ENOSYS, "invalid system call number")
)

// ToUnix converts an error to a unix.Errno. It returns false if err does not
// carry an errno.
func ToUnix(err error) (unix.Errno, bool) {
	if err == nil {
		return 0, true
	}
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Errno(), true
	}
	var u unix.Errno
	if stderrors.As(err, &u) {
		return u, true
	}
	return 0, false
}

// Equals compares a linuxerr to a given error. It accounts for wrapped
// *errors.Error values and for unix.Errno values.
func Equals(e *errors.Error, err error) bool {
	if err == nil {
		return e == noError
	}
	if e == nil {
		return false
	}
	errno, ok := ToUnix(err)
	return ok && errno == e.Errno()
}
