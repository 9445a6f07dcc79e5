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

package log

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// Test that integers can be properly unmarshaled.
func TestUnmarshalFromInt(t *testing.T) {
	tcs := []struct {
		i    int
		want Level
	}{
		{0, Warning},
		{1, Info},
		{2, Debug},
	}

	for _, tc := range tcs {
		j, err := json.Marshal(tc.i)
		if err != nil {
			t.Errorf("error marshaling %v: %v", tc.i, err)
		}
		var lv Level
		if err := lv.UnmarshalJSON(j); err != nil {
			t.Errorf("error unmarshaling %v: %v", j, err)
		}
		if lv != tc.want {
			t.Errorf("marshal/unmarshal %v got %v want %v", tc.i, lv, tc.want)
		}
	}
}

func TestLevelJSONNames(t *testing.T) {
	for _, tc := range []struct {
		level Level
		want  string
	}{
		{Warning, `"warning"`},
		{Info, `"info"`},
		{Debug, `"debug"`},
	} {
		b, err := json.Marshal(tc.level)
		if err != nil || string(b) != tc.want {
			t.Errorf("json.Marshal(%v) = (%s, %v), want %s", tc.level, b, err, tc.want)
		}
		var got Level
		if err := json.Unmarshal(b, &got); err != nil || got != tc.level {
			t.Errorf("json.Unmarshal(%s) = (%v, %v), want %v", b, got, err, tc.level)
		}
	}
	if _, err := json.Marshal(Level(7)); err == nil {
		t.Errorf("json.Marshal(Level(7)) succeeded")
	}
	var l Level
	if err := l.UnmarshalJSON([]byte(`"fatal"`)); err == nil {
		t.Errorf(`UnmarshalJSON("fatal") succeeded`)
	}
}

func TestJSONEmitter(t *testing.T) {
	for _, tc := range []struct {
		name   string
		format string
		args   []any
		want   jsonLog
	}{
		{
			name:   "kernel",
			format: "Kernel initialized: %d task slots\n",
			args:   []any{64},
			want:   jsonLog{Msg: "Kernel initialized: 64 task slots", Level: Info},
		},
		{
			name:   "task",
			format: "[%4d] initcode: unknown sys call %d at eip %#x",
			args:   []any{3, 99, 0x100},
			want:   jsonLog{Msg: "initcode: unknown sys call 99 at eip 0x100", Level: Info, Task: 3},
		},
		{
			name:   "not a pid",
			format: "[init] booting",
			want:   jsonLog{Msg: "[init] booting", Level: Info},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tw := &testWriter{}
			e := JSONEmitter{&Writer{Next: tw}}
			e.Emit(0, Info, time.Unix(0, 0).UTC(), tc.format, tc.args...)

			if len(tw.lines) != 2 {
				t.Fatalf("got %d writes, want the object and its newline: %q", len(tw.lines), tw.lines)
			}
			var got jsonLog
			if err := json.Unmarshal([]byte(tw.lines[0]), &got); err != nil {
				t.Fatalf("json.Unmarshal(%q): %v", tw.lines[0], err)
			}
			if !strings.HasPrefix(got.Source, "json_test.go:") {
				t.Errorf("Source = %q, want json_test.go:<line>", got.Source)
			}
			tc.want.Time = got.Time
			tc.want.Source = got.Source
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("log object mismatch (-want +got):\n%s", diff)
			}
			if !got.Time.Equal(time.Unix(0, 0)) {
				t.Errorf("Time = %v, want the epoch", got.Time)
			}
		})
	}
}
