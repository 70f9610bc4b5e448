// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package logging

import (
	"context"
	"io"
	"math/rand"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// StructuredLogger is a Logger backed by zap's JSON core. The encoder is
// configured to match the field names the rest of the system expects
// ("timestamp", "level", "message") rather than zap's own defaults.
type StructuredLogger struct {
	level        Level
	output       io.Writer
	fields       []Field
	samplingRate float64
	atomicLevel  zap.AtomicLevel
	core         *zap.Logger
	mu           sync.Mutex
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.LevelKey = "level"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	return cfg
}

// NewStructuredLogger creates a new structured logger writing JSON to
// stdout.
func NewStructuredLogger(level Level) *StructuredLogger {
	return NewStructuredLoggerWithOutput(level, os.Stdout)
}

// NewStructuredLoggerWithOutput creates a logger with custom output,
// using the JSON encoder.
func NewStructuredLoggerWithOutput(level Level, output io.Writer) *StructuredLogger {
	return NewStructuredLoggerWithFormat(level, "json", output)
}

// NewStructuredLoggerWithFormat creates a logger with custom output and
// encoding ("json" or "console", matching VESPER_LOG_FORMAT).
func NewStructuredLoggerWithFormat(level Level, format string, output io.Writer) *StructuredLogger {
	atomicLevel := zap.NewAtomicLevelAt(toZapLevel(level))

	var encoder zapcore.Encoder
	if format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig())
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig())
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(output), atomicLevel)

	return &StructuredLogger{
		level:        level,
		output:       output,
		fields:       []Field{},
		samplingRate: 1.0,
		atomicLevel:  atomicLevel,
		core:         zap.New(core),
	}
}

// Debug logs a debug message.
func (l *StructuredLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	if l.level == LevelDebug && l.samplingRate < 1.0 {
		if rand.Float64() > l.samplingRate {
			return
		}
	}
	l.log(ctx, zapcore.DebugLevel, msg, fields...)
}

// Info logs an informational message.
func (l *StructuredLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.InfoLevel, msg, fields...)
}

// Warn logs a warning message.
func (l *StructuredLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.WarnLevel, msg, fields...)
}

// Error logs an error message.
func (l *StructuredLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.ErrorLevel, msg, fields...)
}

// Fatal logs a fatal message and exits.
func (l *StructuredLogger) Fatal(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.FatalLevel, msg, fields...)
	os.Exit(1)
}

// With creates a child logger with persistent fields.
func (l *StructuredLogger) With(fields ...Field) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	newFields := make([]Field, len(l.fields)+len(fields))
	copy(newFields, l.fields)
	copy(newFields[len(l.fields):], fields)

	return &StructuredLogger{
		level:        l.level,
		output:       l.output,
		fields:       newFields,
		samplingRate: l.samplingRate,
		atomicLevel:  l.atomicLevel,
		core:         l.core.With(toZapFields(fields)...),
	}
}

// SetLevel sets the minimum log level.
func (l *StructuredLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	l.atomicLevel.SetLevel(toZapLevel(level))
}

// SetSamplingRate sets the sampling rate for debug logs.
func (l *StructuredLogger) SetSamplingRate(rate float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rate < 0.0 {
		rate = 0.0
	}
	if rate > 1.0 {
		rate = 1.0
	}

	l.samplingRate = rate
}

func (l *StructuredLogger) log(ctx context.Context, level zapcore.Level, msg string, fields ...Field) {
	all := make([]Field, 0, len(fields)+5)
	all = append(all, extractContextFields(ctx)...)
	all = append(all, l.fields...)
	all = append(all, fields...)

	if ce := l.core.Check(level, msg); ce != nil {
		ce.Write(toZapFields(all)...)
	}
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func toZapFields(fields []Field) []zap.Field {
	zfields := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		zfields = append(zfields, zap.Any(f.Key, f.Value))
	}
	return zfields
}
