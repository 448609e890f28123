package ai

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// Fusion accepts between MinFusionIdeas and MaxFusionIdeas source ideas.
const (
	MinFusionIdeas = 2
	MaxFusionIdeas = 3
)

// FuseIdeas synthesizes a new idea from two or three source ideas. The boolean is false
// when fusion failed for any reason; the caller must not charge for a failed fusion.
func (o *Orchestrator) FuseIdeas(ctx context.Context, ideas []IdeaRef, mode, persona string) (FusedIdea, bool) {
	if len(ideas) < MinFusionIdeas || len(ideas) > MaxFusionIdeas {
		logrus.WithField("ideas", len(ideas)).Warn("fusion requires two or three ideas")
		return FusedIdea{}, false
	}
	if !o.Enabled() {
		return FusedIdea{}, false
	}

	cfg := o.Config()
	modeInfo := ResolveMode(mode)
	personaInfo := ResolvePersona(persona)
	log := logrus.WithFields(logrus.Fields{
		"mode":    modeInfo.Key,
		"persona": personaInfo.Key,
		"ideas":   len(ideas),
	})

	plan := generationPlan{
		task:              "fusion",
		models:            []string{cfg.PrimaryModel, cfg.FallbackModel},
		policy:            RetryPolicy{MaxRetries: cfg.MaxRetries, InitialDelay: cfg.FusionDelay},
		fallbackOnFailure: true,
	}
	prompt := buildFusionPrompt(ideas, modeInfo, personaInfo, cfg.FusionTitleLimit, cfg.FusionDetailLimit)
	text, err := o.generate(ctx, plan, prompt)
	if err != nil {
		log.WithError(err).Error("idea fusion failed")
		return FusedIdea{}, false
	}

	fused, ok := interpretFusion(text, cfg.FusionTitleLimit, cfg.FusionDetailLimit)
	if !ok {
		log.WithField("response", truncateRunes(text, 200)).Warn("fusion answer unusable")
		return FusedIdea{}, false
	}
	log.WithFields(logrus.Fields{
		"title":    fused.Title,
		"category": fused.Category,
	}).Info("ideas fused")
	return fused, true
}

func interpretFusion(text string, titleLimit, detailLimit int) (FusedIdea, bool) {
	payload, err := parseStructured[fusionPayload](text)
	if err != nil {
		return FusedIdea{}, false
	}
	fused := FusedIdea{
		Title:    truncateRunes(strings.TrimSpace(payload.Title), titleLimit),
		Detail:   truncateRunes(strings.TrimSpace(payload.Detail), detailLimit),
		Category: strings.TrimSpace(payload.Category),
	}
	if !IsCategory(fused.Category) {
		fused.Category = CategoryOther
	}
	if fused.Title == "" {
		return FusedIdea{}, false
	}
	return fused, true
}
