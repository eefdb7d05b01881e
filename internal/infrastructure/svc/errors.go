package svc

import "errors"

// ErrNoInstruments: the seed table produced no tradable instruments.
var ErrNoInstruments = errors.New("no instruments seeded")

// ErrStorageInitFailed: profile store initialization failed.
var ErrStorageInitFailed = errors.New("storage initialization failed")
