package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

const (
	reasonTooShort               = "詳細が%d文字未満です。もう少し詳しく説明してください。"
	reasonHeuristicInappropriate = "不適切な内容が検出されました"
	reasonHeuristicThin          = "内容が不十分です"
	reasonParseFailed            = "判定結果の解析に失敗しました"
	reasonUnavailable            = "判定処理でエラーが発生しました: %v"
)

// CheckContent decides whether a submission violates policy or lacks substance.
// It fails open: when the model cannot be reached the verdict never blocks posting.
func (o *Orchestrator) CheckContent(ctx context.Context, title, detail, category string) Verdict {
	cfg := o.Config()
	if utf8.RuneCountInString(detail) < cfg.MinDetailLength {
		logrus.WithField("detail_length", utf8.RuneCountInString(detail)).Info("detail below minimum length, skipping model check")
		return Verdict{ThinContent: true, Reason: fmt.Sprintf(reasonTooShort, cfg.MinDetailLength)}
	}
	if !o.Enabled() {
		logrus.Debug("content moderation disabled")
		return Verdict{}
	}

	plan := generationPlan{
		task:   "moderation",
		models: []string{cfg.PrimaryModel, cfg.FallbackModel},
		policy: RetryPolicy{MaxRetries: cfg.MaxRetries, InitialDelay: cfg.ModerationDelay},
	}
	prompt := buildModerationPrompt(title, detail, category, cfg.ThinCriteriaThreshold)
	text, err := o.generate(ctx, plan, prompt)
	if err != nil {
		logrus.WithError(err).Error("content moderation unavailable, allowing submission")
		if errors.Is(err, ErrDisabled) {
			return Verdict{}
		}
		return Verdict{Reason: fmt.Sprintf(reasonUnavailable, err)}
	}

	verdict := interpretModeration(text)
	logrus.WithFields(logrus.Fields{
		"inappropriate": verdict.Inappropriate,
		"thin":          verdict.ThinContent,
		"reason":        verdict.Reason,
	}).Info("moderation verdict")
	return verdict
}

func interpretModeration(text string) Verdict {
	payload, err := parseStructured[moderationPayload](text)
	if errors.Is(err, errNoJSONObject) {
		logrus.WithError(err).Warn("moderation answer not structured, using keyword fallback")
		return moderationHeuristic(text)
	}
	if err != nil {
		logrus.WithError(err).Warn("moderation answer not decodable, allowing submission")
		return Verdict{Reason: reasonParseFailed}
	}
	verdict := Verdict{
		Inappropriate: bool(payload.Inappropriate),
		ThinContent:   bool(payload.ThinContent),
		Reason:        strings.TrimSpace(payload.Reason),
	}
	if verdict.Reason == "" {
		switch {
		case verdict.Inappropriate:
			verdict.Reason = reasonHeuristicInappropriate
		case verdict.ThinContent:
			verdict.Reason = reasonHeuristicThin
		}
	}
	return verdict
}
