package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

const longDetail = "社内の会議室予約と議事録作成をまとめて自動化するツールです。"

func TestCheckContentShortDetailSkipsModel(t *testing.T) {
	backend := newFakeBackend()
	primary := backend.script(testPrimary, answer(`{"is_inappropriate": false, "is_thin_content": false, "reason": ""}`))
	orch, _ := newTestOrchestrator(testConfig(), backend)

	for _, detail := range []string{"", "短い", "一二三四五六七八九十一二三四五六七八九"} {
		verdict := orch.CheckContent(context.Background(), "タイトル", detail, "教育")
		if !verdict.ThinContent || verdict.Inappropriate {
			t.Fatalf("detail %q: expected thin verdict, got %+v", detail, verdict)
		}
		if verdict.Reason == "" {
			t.Fatalf("detail %q: expected reason", detail)
		}
	}
	if primary.Calls() != 0 {
		t.Fatalf("expected no model calls, got %d", primary.Calls())
	}
}

func TestDisabledOperationsReturnNeutral(t *testing.T) {
	backend := newFakeBackend()
	primary := backend.script(testPrimary, answer(`{"is_inappropriate": true, "is_thin_content": true, "reason": "x", "category": "教育", "title": "t"}`))
	cfg := testConfig()
	cfg.Enabled = false

	for name, orch := range map[string]*Orchestrator{
		"flag off":   NewOrchestrator(cfg, backend),
		"no backend": NewOrchestrator(testConfig(), nil),
	} {
		t.Run(name, func(t *testing.T) {
			verdict := orch.CheckContent(context.Background(), "ひどい投稿", longDetail, "教育")
			if verdict != (Verdict{}) {
				t.Fatalf("expected neutral verdict, got %+v", verdict)
			}
			if got := orch.SuggestCategory(context.Background(), "タイトル", longDetail); got != "" {
				t.Fatalf("expected no category, got %q", got)
			}
			ideas := []IdeaRef{{Title: "a"}, {Title: "b"}}
			if _, ok := orch.FuseIdeas(context.Background(), ideas, "creative", "ceo"); ok {
				t.Fatalf("expected fusion to be empty")
			}
		})
	}
	if primary.Calls() != 0 {
		t.Fatalf("expected no model calls, got %d", primary.Calls())
	}
}

func TestCheckContentMapsVerdict(t *testing.T) {
	tests := []struct {
		name     string
		response string
		expected Verdict
	}{
		{
			name:     "topic mismatch",
			response: "判定しました。\n```json\n{\"is_inappropriate\": false, \"is_thin_content\": true, \"reason\": \"タイトルと詳細に関連がありません\"}\n```",
			expected: Verdict{ThinContent: true, Reason: "タイトルと詳細に関連がありません"},
		},
		{
			name:     "inappropriate",
			response: `{"is_inappropriate": true, "is_thin_content": false, "reason": "個人情報が含まれています"}`,
			expected: Verdict{Inappropriate: true, Reason: "個人情報が含まれています"},
		},
		{
			name:     "string booleans",
			response: `{"is_inappropriate": "false", "is_thin_content": "true", "reason": "抽象的です"}`,
			expected: Verdict{ThinContent: true, Reason: "抽象的です"},
		},
		{
			name:     "missing fields",
			response: `{"reason": "問題ありません"}`,
			expected: Verdict{Reason: "問題ありません"},
		},
		{
			name:     "keyword inappropriate",
			response: "この投稿は不適切です。",
			expected: Verdict{Inappropriate: true, Reason: reasonHeuristicInappropriate},
		},
		{
			name:     "keyword thin",
			response: "The content is too thin.",
			expected: Verdict{ThinContent: true, Reason: reasonHeuristicThin},
		},
		{
			name:     "no signal",
			response: "わかりません",
			expected: Verdict{Reason: reasonParseFailed},
		},
		{
			name:     "trailing comma",
			response: `{"is_inappropriate": false, "is_thin_content": false, "reason": "問題ありません",}`,
			expected: Verdict{Reason: reasonParseFailed},
		},
		{
			name:     "undecodable boolean",
			response: `{"is_inappropriate": "いいえ", "is_thin_content": false, "reason": "不適切ではありません"}`,
			expected: Verdict{Reason: reasonParseFailed},
		},
		{
			name:     "inappropriate without reason",
			response: `{"is_inappropriate": true}`,
			expected: Verdict{Inappropriate: true, Reason: reasonHeuristicInappropriate},
		},
		{
			name:     "thin with blank reason",
			response: `{"is_thin_content": true, "reason": "  "}`,
			expected: Verdict{ThinContent: true, Reason: reasonHeuristicThin},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			backend := newFakeBackend()
			backend.script(testPrimary, answer(tc.response))
			orch, _ := newTestOrchestrator(testConfig(), backend)

			verdict := orch.CheckContent(context.Background(), "会議ツール", "今日は晴れでした。とても気持ちのいい一日になりそうです。", "ビジネス・業務効率化")
			if verdict != tc.expected {
				t.Fatalf("expected %+v got %+v", tc.expected, verdict)
			}
		})
	}
}

func TestCheckContentRateLimitFailsOpen(t *testing.T) {
	backend := newFakeBackend()
	primary := backend.script(testPrimary, rateLimited())
	fallback := backend.script(testFallback, answer(`{"is_inappropriate": true}`))
	orch, rec := newTestOrchestrator(testConfig(), backend)

	verdict := orch.CheckContent(context.Background(), "タイトル", longDetail, "教育")
	if verdict.Rejected() {
		t.Fatalf("expected fail-open verdict, got %+v", verdict)
	}
	if verdict.Reason == "" {
		t.Fatalf("expected explanatory reason")
	}
	if primary.Calls() != 3 {
		t.Fatalf("expected 3 attempts on primary, got %d", primary.Calls())
	}
	if fallback.Calls() != 0 {
		t.Fatalf("expected no fallback attempts, got %d", fallback.Calls())
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(rec.waits) != len(want) {
		t.Fatalf("expected waits %v got %v", want, rec.waits)
	}
	for i := range want {
		if rec.waits[i] != want[i] {
			t.Fatalf("expected waits %v got %v", want, rec.waits)
		}
	}
}

func TestCheckContentInitFailureUsesFallback(t *testing.T) {
	backend := newFakeBackend()
	backend.initErr[testPrimary] = ErrModelUnavailable
	fallback := backend.script(testFallback, answer(`{"is_inappropriate": true, "is_thin_content": false, "reason": "スパム"}`))
	orch, rec := newTestOrchestrator(testConfig(), backend)

	verdict := orch.CheckContent(context.Background(), "タイトル", longDetail, "教育")
	if !verdict.Inappropriate || verdict.Reason != "スパム" {
		t.Fatalf("unexpected verdict %+v", verdict)
	}
	if fallback.Calls() != 1 {
		t.Fatalf("expected exactly one fallback attempt, got %d", fallback.Calls())
	}
	if len(rec.waits) != 0 {
		t.Fatalf("expected no backoff, got %v", rec.waits)
	}
}

func TestCheckContentUnexpectedErrorNotRetried(t *testing.T) {
	backend := newFakeBackend()
	primary := backend.script(testPrimary, reply{err: errors.New("connection reset")})
	fallback := backend.script(testFallback, answer(`{"is_inappropriate": true}`))
	orch, _ := newTestOrchestrator(testConfig(), backend)

	verdict := orch.CheckContent(context.Background(), "タイトル", longDetail, "教育")
	if verdict.Rejected() {
		t.Fatalf("expected fail-open verdict, got %+v", verdict)
	}
	if !strings.Contains(verdict.Reason, "connection reset") {
		t.Fatalf("expected reason to mention cause, got %q", verdict.Reason)
	}
	if primary.Calls() != 1 || fallback.Calls() != 0 {
		t.Fatalf("expected 1/0 calls, got %d/%d", primary.Calls(), fallback.Calls())
	}
}

func TestModerationPromptCarriesThreshold(t *testing.T) {
	backend := newFakeBackend()
	primary := backend.script(testPrimary, answer(`{"is_inappropriate": false, "is_thin_content": false, "reason": "ok"}`))
	cfg := testConfig()
	cfg.ThinCriteriaThreshold = 3
	orch, _ := newTestOrchestrator(cfg, backend)

	orch.CheckContent(context.Background(), "会議ツール", longDetail, "教育")
	if len(primary.prompts) != 1 {
		t.Fatalf("expected one prompt, got %d", len(primary.prompts))
	}
	prompt := primary.prompts[0]
	for _, want := range []string{"会議ツール", longDetail, "3 つ以上"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}
