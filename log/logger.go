// Copyright 2024 The go-vesper Authors
// This file is part of the go-vesper library.
//
// The go-vesper library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-vesper library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-vesper library. If not, see <http://www.gnu.org/licenses/>.

// Package log provides the leveled key-value logger used across the node.
// It is a thin surface over log/slog so embedding applications can install
// their own handler via SetDefault.
package log

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

// Trace sits below slog's built-in levels; the remaining levels map directly.
const LevelTrace = slog.Level(-8)

// Logger writes leveled log records with key-value context.
type Logger interface {
	// With returns a Logger that includes ctx key-value pairs in every record.
	With(ctx ...any) Logger

	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
}

type logger struct {
	inner *slog.Logger
}

func (l *logger) With(ctx ...any) Logger {
	return &logger{inner: l.inner.With(ctx...)}
}

func (l *logger) write(level slog.Level, msg string, ctx []any) {
	if !l.inner.Enabled(context.Background(), level) {
		return
	}
	l.inner.Log(context.Background(), level, msg, ctx...)
}

func (l *logger) Trace(msg string, ctx ...any) { l.write(LevelTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...any) { l.write(slog.LevelDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...any)  { l.write(slog.LevelInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...any)  { l.write(slog.LevelWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...any) { l.write(slog.LevelError, msg, ctx) }

var root atomic.Pointer[logger]

func init() {
	root.Store(&logger{inner: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))})
}

// SetDefault installs handler as the backend of the root logger.
func SetDefault(handler slog.Handler) {
	root.Store(&logger{inner: slog.New(handler)})
}

// Root returns the process-wide root logger.
func Root() Logger {
	return root.Load()
}

// New returns a child of the root logger carrying the given context.
func New(ctx ...any) Logger {
	return Root().With(ctx...)
}

// Trace logs at trace level on the root logger.
func Trace(msg string, ctx ...any) { Root().Trace(msg, ctx...) }

// Debug logs at debug level on the root logger.
func Debug(msg string, ctx ...any) { Root().Debug(msg, ctx...) }

// Info logs at info level on the root logger.
func Info(msg string, ctx ...any) { Root().Info(msg, ctx...) }

// Warn logs at warn level on the root logger.
func Warn(msg string, ctx ...any) { Root().Warn(msg, ctx...) }

// Error logs at error level on the root logger.
func Error(msg string, ctx ...any) { Root().Error(msg, ctx...) }
