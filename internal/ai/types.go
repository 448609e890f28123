package ai

// Verdict captures the moderation outcome for a submitted idea.
type Verdict struct {
	Inappropriate bool   `json:"is_inappropriate"`
	ThinContent   bool   `json:"is_thin_content"`
	Reason        string `json:"reason"`
}

// Rejected reports whether the caller must refuse to persist the submission.
func (v Verdict) Rejected() bool {
	return v.Inappropriate || v.ThinContent
}

// IdeaRef is the projection of a stored idea used as fusion input.
type IdeaRef struct {
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Category string `json:"category"`
}

// FusedIdea is the structured output of a successful fusion.
type FusedIdea struct {
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Category string `json:"category"`
}

// CategoryOther is the bucket used when a model answer falls outside the taxonomy.
const CategoryOther = "その他"

var taxonomy = []string{
	"ビジネス・業務効率化",
	"教育",
	"エンタメ",
	"クリエイティブ・創作支援",
	"生活・ライフスタイル",
	"コミュニケーション",
	"開発者ツール",
	CategoryOther,
}

// Categories returns a copy of the fixed category taxonomy in display order.
func Categories() []string {
	out := make([]string, len(taxonomy))
	copy(out, taxonomy)
	return out
}

// IsCategory reports whether value is a member of the taxonomy.
func IsCategory(value string) bool {
	for _, c := range taxonomy {
		if c == value {
			return true
		}
	}
	return false
}
