package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

// SuggestCategory classifies a submission into the taxonomy. An empty result means no
// suggestion; callers apply their own default.
func (o *Orchestrator) SuggestCategory(ctx context.Context, title, detail string) string {
	if !o.Enabled() {
		return ""
	}
	cfg := o.Config()
	plan := generationPlan{
		task:   "category",
		models: []string{cfg.PrimaryModel, cfg.FallbackModel},
		policy: RetryPolicy{MaxRetries: cfg.MaxRetries, InitialDelay: cfg.ModerationDelay},
	}
	text, err := o.generate(ctx, plan, buildCategoryPrompt(title, detail))
	if err != nil {
		logrus.WithError(err).Error("category suggestion failed")
		return ""
	}
	return interpretCategory(text)
}

func interpretCategory(text string) string {
	payload, err := parseStructured[categoryPayload](text)
	if errors.Is(err, errNoJSONObject) {
		return categoryHeuristic(text)
	}
	if err != nil {
		logrus.WithError(err).Warn("category answer not decodable")
		return ""
	}
	category := strings.TrimSpace(payload.Category)
	if !IsCategory(category) {
		logrus.WithField("category", category).Warn("suggested category outside taxonomy")
		return ""
	}
	return category
}
