// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"fmt"

	"github.com/apex/log"
)

// Leveled adapts apex/log to the retryablehttp.LeveledLogger interface.
type Leveled struct {
	Logger log.Interface
}

func (l Leveled) Error(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Error(msg)
}

func (l Leveled) Info(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Info(msg)
}

func (l Leveled) Debug(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Debug(msg)
}

func (l Leveled) Warn(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Warn(msg)
}

// entry turns alternating keys and values into apex fields. A trailing key
// without a value is kept with an empty value.
func (l Leveled) entry(keysAndValues []interface{}) *log.Entry {
	logger := l.Logger
	if logger == nil {
		logger = log.Log
	}

	fields := log.Fields{}
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		var val interface{} = ""
		if i+1 < len(keysAndValues) {
			val = keysAndValues[i+1]
		}
		fields[key] = val
	}
	return logger.WithFields(fields)
}
