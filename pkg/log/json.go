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
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// jsonLevels are the names levels are written as. A level may also be read
// back from its number.
var jsonLevels = [...]string{
	Warning: "warning",
	Info:    "info",
	Debug:   "debug",
}

type jsonLog struct {
	Msg    string    `json:"msg"`
	Level  Level     `json:"level"`
	Time   time.Time `json:"time"`
	Task   int32     `json:"task,omitempty"`
	Source string    `json:"source,omitempty"`
}

// MarshalJSON implements json.Marshaler.MarshalJSON.
func (l Level) MarshalJSON() ([]byte, error) {
	if int(l) >= len(jsonLevels) {
		return nil, fmt.Errorf("unknown level %v", l)
	}
	return json.Marshal(jsonLevels[l])
}

// UnmarshalJSON implements json.Unmarshaler.UnmarshalJSON. It accepts a
// level name or number.
func (l *Level) UnmarshalJSON(b []byte) error {
	s := string(b)
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n < len(jsonLevels) {
		*l = Level(n)
		return nil
	}
	for i, name := range jsonLevels {
		if s == strconv.Quote(name) {
			*l = Level(i)
			return nil
		}
	}
	return fmt.Errorf("unknown level %q", s)
}

// splitTask separates the "[pid] " prefix that task loggers put in front of
// their messages. pid is 0 if msg has no such prefix.
func splitTask(msg string) (pid int32, rest string) {
	end := strings.Index(msg, "] ")
	if !strings.HasPrefix(msg, "[") || end < 0 {
		return 0, msg
	}
	n, err := strconv.ParseInt(strings.TrimSpace(msg[1:end]), 10, 32)
	if err != nil || n <= 0 {
		return 0, msg
	}
	return int32(n), msg[end+2:]
}

// JSONEmitter logs messages in json format, one object per line. Messages
// logged on behalf of a task carry its pid in the "task" field.
type JSONEmitter struct {
	*Writer
}

// Emit implements Emitter.Emit.
func (e JSONEmitter) Emit(depth int, level Level, timestamp time.Time, format string, v ...any) {
	j := jsonLog{
		Level: level,
		Time:  timestamp,
	}
	j.Task, j.Msg = splitTask(strings.TrimSuffix(fmt.Sprintf(format, v...), "\n"))
	if _, file, line, ok := runtime.Caller(depth + 1); ok {
		j.Source = fmt.Sprintf("%s:%d", file[strings.LastIndexByte(file, '/')+1:], line)
	}
	b, err := json.Marshal(j)
	if err != nil {
		panic(err)
	}
	e.Writer.Write(b)
}
