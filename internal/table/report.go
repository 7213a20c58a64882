package table

import (
	"github.com/rs/zerolog/log"

	"bridgeclient/internal/bridge"
)

// LogReporter is an ErrorReporter that writes to the process log. Hosts
// with a user-facing error surface provide their own.
type LogReporter struct{}

// Report logs the error.
func (LogReporter) Report(err error) {
	log.Error().Err(err).Msg("reported error")
}

// LogNotifier is a ResultNotifier that writes deal results to the process
// log, the toast equivalent for headless consumers.
type LogNotifier struct{}

// Notify logs the deal result.
func (LogNotifier) Notify(result bridge.DealResult) {
	ev := log.Info().Str("deal", result.Deal.String())
	if result.Result == nil {
		ev.Msg("deal ended, result pending")
		return
	}
	if result.Result.Partnership != nil {
		ev = ev.Str("partnership", string(*result.Result.Partnership))
	}
	ev.Int("score", result.Result.Score).Msg("deal ended")
}
