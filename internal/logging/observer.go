package logging

import (
	"gopairs/domain/core"
	"gopairs/domain/screen"
	"gopairs/ports"

	"github.com/sirupsen/logrus"
)

// ScreenObserver writes screening events as structured log entries
type ScreenObserver struct {
	log *logrus.Entry
}

var _ ports.ScreenObserver = (*ScreenObserver)(nil)

// NewScreenObserver creates a logrus-backed observer
func NewScreenObserver(logger logrus.FieldLogger) *ScreenObserver {
	return &ScreenObserver{log: logger.WithField("component", "screener")}
}

func (o *ScreenObserver) ScreenStarted(run core.RunID, method screen.Method, instruments, pairs int) {
	o.log.WithFields(logrus.Fields{
		"run_id":      run.String(),
		"method":      method,
		"instruments": instruments,
		"pairs":       pairs,
	}).Info("screen started")
}

func (o *ScreenObserver) PairSkipped(run core.RunID, method screen.Method, skipped screen.SkippedPair) {
	o.log.WithFields(logrus.Fields{
		"run_id": run.String(),
		"method": method,
		"pair":   skipped.Pair.String(),
		"code":   skipped.Code,
	}).Warn(skipped.Reason)
}

func (o *ScreenObserver) TopPairs(run core.RunID, ranked []screen.DistanceResult) {
	if !o.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	for rank, r := range ranked {
		o.log.WithFields(logrus.Fields{
			"run_id":   run.String(),
			"rank":     rank + 1,
			"pair":     r.Pair.String(),
			"distance": r.Distance,
		}).Debug("closest pair")
	}
}

func (o *ScreenObserver) ScreenFinished(run core.RunID, method screen.Method, summary ports.ScreenSummary) {
	entry := o.log.WithFields(logrus.Fields{
		"run_id":      run.String(),
		"method":      method,
		"evaluated":   summary.Evaluated,
		"qualified":   summary.Qualified,
		"skipped":     summary.Skipped,
		"duration_ms": summary.Duration.Milliseconds(),
	})
	if summary.Table != "" {
		entry = entry.WithField("table", summary.Table.Short())
	}
	if summary.Err != nil {
		entry.WithError(summary.Err).Error("screen failed")
		return
	}
	entry.Info("screen finished")
}
