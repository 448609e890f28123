package ai

import "strings"

// FusionMode selects the stylistic direction of a fusion.
type FusionMode string

const (
	ModeCreative  FusionMode = "creative"
	ModePractical FusionMode = "practical"
)

// ModeInfo describes a fusion mode for prompts and listings.
type ModeInfo struct {
	Key         FusionMode `json:"key"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
}

var modes = []ModeInfo{
	{Key: ModeCreative, Name: "創造モード", Description: "自由な発想で、面白さ重視の融合アイデアが出ます。"},
	{Key: ModePractical, Name: "実現モード", Description: "現実に実行できる、現実的な融合アイデアが出ます。"},
}

// PersonaKey identifies a persona.
type PersonaKey string

const (
	PersonaProfessor  PersonaKey = "professor"
	PersonaGal        PersonaKey = "gal"
	PersonaElementary PersonaKey = "elementary"
	PersonaAlien      PersonaKey = "alien"
	PersonaBoss       PersonaKey = "boss"
	PersonaCEO        PersonaKey = "ceo"
	PersonaFuture     PersonaKey = "future"
)

// Persona carries the thinking and tone directives injected into fusion prompts.
type Persona struct {
	Key      PersonaKey `json:"key"`
	Name     string     `json:"name"`
	Thinking string     `json:"thinking"`
	Tone     string     `json:"tone"`
}

var personas = []Persona{
	{Key: PersonaProfessor, Name: "教授", Thinking: "論理的・理系の視点で考える", Tone: "丁寧で真面目な語調"},
	{Key: PersonaGal, Name: "ギャル", Thinking: "流行・SNSで話題になるかを重視", Tone: "明るく、砕けた口調"},
	{Key: PersonaElementary, Name: "小学生", Thinking: "常識に縛られず、直感で考える", Tone: "やさしく、素直な語調"},
	{Key: PersonaAlien, Name: "宇宙人", Thinking: "人間の価値観にとらわれない視点", Tone: "静かで、不思議な語調"},
	{Key: PersonaBoss, Name: "上司", Thinking: "実務・予算・実行可能性を重視", Tone: "落ち着いて、現実的な語調"},
	{Key: PersonaCEO, Name: "スタートアップCEO", Thinking: "市場性・伸ばし方・ビジネスモデル重視", Tone: "熱量が高い、カジュアル"},
	{Key: PersonaFuture, Name: "未来人", Thinking: "未来の社会と技術を前提に考える", Tone: "落ち着いて、客観的な語調"},
}

// ResolveMode maps a free-form key onto a known mode, defaulting to creative.
func ResolveMode(key string) ModeInfo {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, m := range modes {
		if string(m.Key) == key {
			return m
		}
	}
	return modes[0]
}

// ResolvePersona maps a free-form key onto a known persona, defaulting to professor.
func ResolvePersona(key string) Persona {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, p := range personas {
		if string(p.Key) == key {
			return p
		}
	}
	return personas[0]
}

// Modes lists the fusion modes in display order.
func Modes() []ModeInfo {
	out := make([]ModeInfo, len(modes))
	copy(out, modes)
	return out
}

// Personas lists the personas in display order.
func Personas() []Persona {
	out := make([]Persona, len(personas))
	copy(out, personas)
	return out
}
