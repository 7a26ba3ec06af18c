package main

import "errors"

// Setup errors
var (
	ErrLoadConfig  = errors.New("load config")
	ErrInitLogger  = errors.New("initialize logger")
	ErrNoAdapter   = errors.New("no debug adapter configured: set --adapter-addr or --adapter-cmd")
	ErrTwoAdapters = errors.New("--adapter-addr and --adapter-cmd are mutually exclusive")
)

// Adapter errors
var (
	ErrParseAdapterCmd = errors.New("parse adapter command")
	ErrStartAdapter    = errors.New("start debug adapter")
	ErrDialAdapter     = errors.New("connect to debug adapter")
)

// Serve errors
var (
	ErrListen = errors.New("listen")
	ErrAccept = errors.New("accept")
)
