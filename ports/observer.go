package ports

import (
	"time"

	"gopairs/domain/core"
	"gopairs/domain/screen"
)

// ScreenObserver receives screening telemetry. The screening core never logs
// or prints on its own; everything observable goes through this port.
// Implementations must be safe for concurrent use: PairSkipped is called from
// worker goroutines.
type ScreenObserver interface {
	ScreenStarted(run core.RunID, method screen.Method, instruments, pairs int)
	PairSkipped(run core.RunID, method screen.Method, skipped screen.SkippedPair)
	// TopPairs reports the head of the distance ranking, closest first
	TopPairs(run core.RunID, ranked []screen.DistanceResult)
	ScreenFinished(run core.RunID, method screen.Method, summary ScreenSummary)
}

// ScreenSummary describes a completed (or failed) screening call
type ScreenSummary struct {
	Table     core.Hash
	Evaluated int
	Qualified int
	Skipped   int
	Duration  time.Duration
	Err       error
}

// NopObserver discards all events
type NopObserver struct{}

func (NopObserver) ScreenStarted(core.RunID, screen.Method, int, int) {}
func (NopObserver) PairSkipped(core.RunID, screen.Method, screen.SkippedPair) {}
func (NopObserver) TopPairs(core.RunID, []screen.DistanceResult) {}
func (NopObserver) ScreenFinished(core.RunID, screen.Method, ScreenSummary) {}

// MultiObserver fans events out to every observer in order
type MultiObserver []ScreenObserver

func (m MultiObserver) ScreenStarted(run core.RunID, method screen.Method, instruments, pairs int) {
	for _, o := range m {
		o.ScreenStarted(run, method, instruments, pairs)
	}
}

func (m MultiObserver) PairSkipped(run core.RunID, method screen.Method, skipped screen.SkippedPair) {
	for _, o := range m {
		o.PairSkipped(run, method, skipped)
	}
}

func (m MultiObserver) TopPairs(run core.RunID, ranked []screen.DistanceResult) {
	for _, o := range m {
		o.TopPairs(run, ranked)
	}
}

func (m MultiObserver) ScreenFinished(run core.RunID, method screen.Method, summary ScreenSummary) {
	for _, o := range m {
		o.ScreenFinished(run, method, summary)
	}
}
