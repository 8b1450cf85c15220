// Package classify assigns gluten-free tiers to establishments with a single
// batch LLM call.
package classify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/gfscout/internal/llm"
	"github.com/sells-group/gfscout/internal/model"
)

const defaultTimeout = 60 * time.Second

// Classifier turns an establishment list into a place_id to tier mapping.
type Classifier struct {
	completer llm.Completer
	timeout   time.Duration
}

// New creates a Classifier. A non-positive timeout uses 60 seconds.
func New(completer llm.Completer, timeout time.Duration) *Classifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Classifier{completer: completer, timeout: timeout}
}

// Classify returns the tier for every establishment the model could place.
// It makes one attempt and never fails: provider errors and unusable output
// yield an empty map, and callers apply their own default.
func (c *Classifier) Classify(ctx context.Context, places []model.Establishment, q model.SearchQuery) map[string]model.GFStatus {
	if len(places) == 0 {
		return map[string]model.GFStatus{}
	}

	log := zap.L().With(
		zap.String("type", string(q.Type)),
		zap.String("location", q.Location()),
		zap.Int("places", len(places)),
	)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.completer.Complete(ctx, BuildPrompt(places, q))
	if err != nil {
		log.Warn("classify: completion failed", zap.Error(err))
		return map[string]model.GFStatus{}
	}

	out := Parse(raw, places)
	if len(out) == 0 {
		log.Warn("classify: no usable classification in model output", zap.Int("output_len", len(raw)))
	} else {
		log.Debug("classify: classified", zap.Int("classified", len(out)))
	}
	return out
}
