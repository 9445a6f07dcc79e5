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

package uapi

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestProcInfoLayout(t *testing.T) {
	p := ProcInfo{
		PID:       2,
		ParentPID: 1,
		Size:      0x3000,
		State:     RUNNABLE,
		IsBlocked: 1,
		IsKilled:  0,
	}
	copy(p.Name[:], "sh")

	buf := make([]byte, p.SizeBytes())
	p.MarshalBytes(buf)

	want := []byte{
		's', 'h', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		2, 0, 0, 0, // pid
		1, 0, 0, 0, // parentpid
		0, 0x30, 0, 0, // sz
		3, 0, 0, 0, // state
		1, 0, 0, 0, // isBlocked
		0, 0, 0, 0, // isKilled
	}
	if diff := cmp.Diff(want, buf); diff != "" {
		t.Fatalf("MarshalBytes mismatch (-want +got):\n%s", diff)
	}

	var got ProcInfo
	got.UnmarshalBytes(buf)
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("UnmarshalBytes mismatch (-want +got):\n%s", diff)
	}
	if got.NameString() != "sh" {
		t.Errorf("NameString() = %q, want %q", got.NameString(), "sh")
	}
}

func TestProcStateCodes(t *testing.T) {
	for _, tc := range []struct {
		state ProcState
		code  int32
	}{
		{UNUSED, 0},
		{EMBRYO, 1},
		{SLEEPING, 2},
		{RUNNABLE, 3},
		{RUNNING, 4},
		{ZOMBIE, 5},
	} {
		if int32(tc.state) != tc.code {
			t.Errorf("%v has code %d, want %d", tc.state, int32(tc.state), tc.code)
		}
	}
}
