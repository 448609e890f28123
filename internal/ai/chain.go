package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"idea-relay/backend/internal/util"
)

// generationPlan describes how a task walks its model chain.
type generationPlan struct {
	task   string
	models []string
	policy RetryPolicy
	// fallbackOnFailure moves to the next model after exhausted retries or unexpected
	// errors. Without it only model-initialization failures advance the chain.
	fallbackOnFailure bool
}

// generate returns the raw text of the first model in the plan that answers.
func (o *Orchestrator) generate(ctx context.Context, plan generationPlan, prompt string) (string, error) {
	if !o.Enabled() {
		return "", ErrDisabled
	}
	log := logrus.WithField("task", plan.task)

	var lastErr error
	for _, name := range uniqueModels(plan.models) {
		model, err := o.backend.Model(name)
		if err != nil {
			lastErr = err
			log.WithError(err).WithField("model", name).Warn("model initialization failed, trying next model")
			continue
		}

		timer := util.StartTimer()
		text, err := callWithRetry(ctx, plan.policy, isRateLimited, o.sleep, func(ctx context.Context) (string, error) {
			return model.Generate(ctx, prompt)
		})
		if err == nil {
			log.WithFields(logrus.Fields{
				"model":      model.Name(),
				"elapsed_ms": timer.ElapsedMs(),
			}).Info("generation completed")
			return text, nil
		}

		lastErr = err
		log.WithError(err).WithFields(logrus.Fields{
			"model":      model.Name(),
			"elapsed_ms": timer.ElapsedMs(),
		}).Warn("generation failed")

		if ctx.Err() != nil {
			break
		}
		if errors.Is(err, ErrModelUnavailable) {
			continue
		}
		if !plan.fallbackOnFailure {
			break
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no models configured")
	}
	return "", fmt.Errorf("%w: %w", ErrGenerationFailed, lastErr)
}

func uniqueModels(models []string) []string {
	out := make([]string, 0, len(models))
	seen := make(map[string]struct{}, len(models))
	for _, m := range models {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
