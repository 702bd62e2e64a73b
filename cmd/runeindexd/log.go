// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package main

import (
	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// logRotator rotates runeindexd's log file, opened once in initLogging and
// written to by every subsystem's btclog.Backend.
var logRotator *rotator.Rotator

// loggers groups the per-subsystem loggers the daemon wires into its
// collaborators, matching the SubsystemTag convention btcd-family daemons
// use (a short all-caps tag per package).
type loggers struct {
	indexLog btclog.Logger
	rpcLog   btclog.Logger
	mainLog  btclog.Logger
}

// initLogging opens the rotated log file at path and creates one
// btclog.Logger per subsystem, all backed by the same rotator.
func initLogging(path string, debug bool) (*loggers, error) {
	r, err := rotator.New(path, 10*1024, false, 3)
	if err != nil {
		return nil, err
	}
	logRotator = r

	backend := btclog.NewBackend(r)

	level := btclog.LevelInfo
	if debug {
		level = btclog.LevelDebug
	}

	l := &loggers{
		indexLog: backend.Logger("INDX"),
		rpcLog:   backend.Logger("RPCC"),
		mainLog:  backend.Logger("MAIN"),
	}
	l.indexLog.SetLevel(level)
	l.rpcLog.SetLevel(level)
	l.mainLog.SetLevel(level)

	return l, nil
}
