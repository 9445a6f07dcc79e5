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
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type testWriter struct {
	lines []string
	fail  bool
}

func (w *testWriter) Write(bytes []byte) (int, error) {
	if w.fail {
		return 0, fmt.Errorf("simulated failure")
	}
	w.lines = append(w.lines, string(bytes))
	return len(bytes), nil
}

func TestDropMessages(t *testing.T) {
	tw := &testWriter{}
	w := Writer{Next: tw}
	if _, err := w.Write([]byte("line 1\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	tw.fail = true
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}

	tw.fail = false
	if _, err := w.Write([]byte("line 2\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	want := []string{
		"line 1\n",
		"line 2\n",
		"\n*** Dropped 2 log messages ***\n",
	}
	if diff := cmp.Diff(want, tw.lines); diff != "" {
		t.Errorf("Writer lines mismatch (-want +got):\n%s", diff)
	}
}

func TestAppendsNewline(t *testing.T) {
	tw := &testWriter{}
	w := Writer{Next: tw}
	if _, err := w.Write([]byte("no newline")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}
	if got := strings.Join(tw.lines, ""); got != "no newline\n" {
		t.Errorf("got %q, want %q", got, "no newline\n")
	}
}

func TestLevels(t *testing.T) {
	tw := &testWriter{}
	l := &BasicLogger{Level: Info, Emitter: &Writer{Next: tw}}

	l.Debugf("dropped")
	l.Infof("info %d", 1)
	l.Warningf("warning %d", 2)
	if diff := cmp.Diff("info 1\nwarning 2\n", strings.Join(tw.lines, "")); diff != "" {
		t.Errorf("emitted lines mismatch (-want +got):\n%s", diff)
	}

	l.SetLevel(Debug)
	if !l.IsLogging(Debug) {
		t.Errorf("IsLogging(Debug) = false after SetLevel(Debug)")
	}
}

func TestGoogleEmitterHeader(t *testing.T) {
	tw := &testWriter{}
	g := GoogleEmitter{&Writer{Next: tw}}
	ts := time.Date(2026, time.May, 4, 13, 2, 1, 5000, time.UTC)
	g.Emit(0, Warning, ts, "hello %s", "world")

	if len(tw.lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(tw.lines), tw.lines)
	}
	line := tw.lines[0]
	if !strings.HasPrefix(line, "W0504 13:02:01.000005 ") {
		t.Errorf("line %q does not start with the glog header", line)
	}
	if !strings.Contains(line, "log_test.go:") {
		t.Errorf("line %q does not name the calling file", line)
	}
	if !strings.HasSuffix(line, "] hello world\n") {
		t.Errorf("line %q does not end with the message", line)
	}
}

func TestRateLimitedLogger(t *testing.T) {
	tw := &testWriter{}
	l := RateLimitedLogger(&BasicLogger{Level: Info, Emitter: &Writer{Next: tw}}, time.Hour)
	for i := 0; i < 5; i++ {
		l.Warningf("bad pointer %d", i)
	}
	if diff := cmp.Diff("bad pointer 0\n", strings.Join(tw.lines, "")); diff != "" {
		t.Errorf("emitted lines mismatch (-want +got):\n%s", diff)
	}
}

func TestMultiEmitter(t *testing.T) {
	file, stderr := &testWriter{}, &testWriter{}
	e := &MultiEmitter{
		&Writer{Next: file},
		JSONEmitter{&Writer{Next: stderr}},
	}
	l := &BasicLogger{Level: Info, Emitter: e}
	l.Infof("[%4d] initcode: exit", 2)

	if diff := cmp.Diff("[   2] initcode: exit\n", strings.Join(file.lines, "")); diff != "" {
		t.Errorf("text lines mismatch (-want +got):\n%s", diff)
	}
	if len(stderr.lines) == 0 || !strings.Contains(stderr.lines[0], `"task":2`) {
		t.Errorf("json lines %q do not carry the task", stderr.lines)
	}
}
