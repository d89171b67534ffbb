package summarize

import (
	"context"

	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/rag/conversation"
	"ai-docqa-be/pkg/rag/ragerr"
)

const (
	module = "SUMMARIZE"

	// DefaultTrigger is the message count above which compaction fires
	DefaultTrigger = 6
	// DefaultWindow is the number of trailing messages handed to the summarizer
	DefaultWindow = 6
	// DefaultKeep is the number of messages left after compaction
	DefaultKeep = 4
)

// Summarizer folds turns into the prior running summary
type Summarizer interface {
	Summarize(ctx context.Context, priorSummary string, turns []conversation.Turn) (string, error)
}

type Scheduler struct {
	summarizer Summarizer
	logger     logger.ILogger
	trigger    int
	window     int
	keep       int
}

func NewScheduler(summarizer Summarizer, log logger.ILogger) *Scheduler {
	return &Scheduler{
		summarizer: summarizer,
		logger:     log,
		trigger:    DefaultTrigger,
		window:     DefaultWindow,
		keep:       DefaultKeep,
	}
}

// MaybeCompact compacts state once it holds more than the trigger count.
// A summarizer failure leaves state unchanged and is returned as SummarizationFailed;
// the next call retries.
func (s *Scheduler) MaybeCompact(ctx context.Context, sessionID string, state *conversation.State) (bool, error) {
	compacted, err := state.Compact(ctx, s.trigger, s.window, s.keep, s.summarizer.Summarize)
	if err != nil {
		s.logger.Warn(module, "Compaction deferred", map[string]interface{}{
			"session_id": sessionID,
			"messages":   state.Len(),
			"error":      err.Error(),
		})
		return false, ragerr.Wrap(ragerr.KindSummarizationFailed, "compact", err)
	}
	if compacted {
		s.logger.Info(module, "Conversation compacted", map[string]interface{}{
			"session_id": sessionID,
			"kept":       s.keep,
		})
	}
	return compacted, nil
}
