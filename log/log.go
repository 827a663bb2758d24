// Copyright 2018 The klaytn Authors
// This file is part of the klaytn library.
//
// The klaytn library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The klaytn library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the klaytn library. If not, see <http://www.gnu.org/licenses/>.

// Package log provides the structured, module-scoped logger used
// throughout simba. The shape mirrors klaytn's log package: callers get
// a Logger bound to a module name and attach ad-hoc key/value context
// with New, then call Trace/Debug/Info/Warn/Error with alternating
// key/value pairs.
package log

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Module names, one per subsystem. Kept as a closed set (like klaytn's
// log.Common, log.Consensus, ...) so module loggers are consistent
// across the codebase.
const (
	Runtime    = "runtime"
	Network    = "network"
	Trie       = "trie"
	Ledger     = "ledger"
	Nakamoto   = "nakamoto"
	PBFT       = "pbft"
	Gossip     = "gossip"
	Snowball   = "snowball"
	Simulation = "simulation"
)

// Logger is the façade every package logs through.
type Logger interface {
	New(ctx ...interface{}) Logger
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
}

type logger struct {
	module string
	sugar  *zap.SugaredLogger
}

var base = newBaseLogger()

func newBaseLogger() *zap.Logger {
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "t",
		LevelKey:       "lvl",
		NameKey:        "mod",
		MessageKey:     "msg",
		CallerKey:      "caller",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	var out zapcore.WriteSyncer
	if isTerminal(os.Stdout) {
		out = zapcore.AddSync(colorable.NewColorableStdout())
	} else {
		out = zapcore.AddSync(os.Stdout)
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), out, zapcore.DebugLevel)
	return zap.New(core)
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// NewModuleLogger returns the Logger bound to the given module name.
func NewModuleLogger(module string) Logger {
	return &logger{module: module, sugar: base.Named(module).Sugar()}
}

func (l *logger) New(ctx ...interface{}) Logger {
	return &logger{module: l.module, sugar: l.sugar.With(ctx...)}
}

// callerFrame reproduces klaytn's use of go-stack/stack to tag the
// immediate caller when a message is emitted, independent of zap's own
// (disabled) caller annotation.
func callerFrame(skip int) string {
	call := stack.Caller(skip)
	return fmt.Sprintf("%+v", call)
}

func (l *logger) Trace(msg string, ctx ...interface{}) {
	l.sugar.Debugw(colorize(color.FgHiBlack, msg), append(ctx, "at", callerFrame(2))...)
}

func (l *logger) Debug(msg string, ctx ...interface{}) {
	l.sugar.Debugw(msg, ctx...)
}

func (l *logger) Info(msg string, ctx ...interface{}) {
	l.sugar.Infow(msg, ctx...)
}

func (l *logger) Warn(msg string, ctx ...interface{}) {
	l.sugar.Warnw(colorize(color.FgYellow, msg), ctx...)
}

func (l *logger) Error(msg string, ctx ...interface{}) {
	l.sugar.Errorw(colorize(color.FgRed, msg), ctx...)
}

func colorize(c color.Attribute, msg string) string {
	if !isTerminal(os.Stdout) {
		return msg
	}
	return color.New(c).Sprint(msg)
}
