package api

import (
	"time"

	"idea-relay/backend/internal/ai"
	"idea-relay/backend/internal/store"
)

// CreateUserRequest registers a poster.
type CreateUserRequest struct {
	Nickname    string `json:"nickname"`
	CompanyCode string `json:"company_code"`
}

// UserDTO is the API representation of a user.
type UserDTO struct {
	ID          string    `json:"id"`
	Nickname    string    `json:"nickname"`
	CompanyCode string    `json:"company_code"`
	Tickets     int       `json:"tickets"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserFromModel converts a store user.
func UserFromModel(u store.User) UserDTO {
	return UserDTO{
		ID:          u.ID,
		Nickname:    u.Nickname,
		CompanyCode: u.CompanyCode,
		Tickets:     u.Tickets,
		CreatedAt:   u.CreatedAt,
	}
}

// PostIdeaRequest submits a new idea.
type PostIdeaRequest struct {
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Category string `json:"category"`
}

// SuggestCategoryRequest asks for a category suggestion.
type SuggestCategoryRequest struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// IdeaDTO is the API representation of an idea.
type IdeaDTO struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Detail          string    `json:"detail"`
	Category        string    `json:"category"`
	UserID          string    `json:"user_id"`
	InheritanceFlag bool      `json:"inheritance_flag"`
	CreatedAt       time.Time `json:"created_at"`
}

// IdeaFromModel converts a store idea.
func IdeaFromModel(i store.Idea) IdeaDTO {
	return IdeaDTO{
		ID:              i.ID,
		Title:           i.Title,
		Detail:          i.Detail,
		Category:        i.Category,
		UserID:          i.UserID,
		InheritanceFlag: i.InheritanceFlag,
		CreatedAt:       i.CreatedAt,
	}
}

// PostIdeaResponse reports a stored idea.
type PostIdeaResponse struct {
	Idea              IdeaDTO `json:"idea"`
	Tickets           int     `json:"tickets"`
	CategorySuggested bool    `json:"category_suggested"`
}

// IdeasResponse is a page of ideas.
type IdeasResponse struct {
	Items []IdeaDTO `json:"items"`
	Total int64     `json:"total"`
}

// RejectionResponse explains why a submission was not stored.
type RejectionResponse struct {
	Error      string     `json:"error"`
	Verdict    ai.Verdict `json:"verdict"`
	DraftSaved bool       `json:"draft_saved,omitempty"`
}

// SpinRequest draws from the gacha.
type SpinRequest struct {
	Category string `json:"category"`
}

// SpinResponse reports the drawn idea.
type SpinResponse struct {
	ResultID string  `json:"result_id"`
	Idea     IdeaDTO `json:"idea"`
	Tickets  int     `json:"tickets"`
}

// InheritRequest remixes an existing idea.
type InheritRequest struct {
	AddPoint  string `json:"add_point"`
	AddDetail string `json:"add_detail"`
}

// InheritResponse reports a stored inheritance.
type InheritResponse struct {
	InheritanceID string  `json:"inheritance_id"`
	Idea          IdeaDTO `json:"idea"`
	Tickets       int     `json:"tickets"`
}

// InheritanceDraftDTO is a saved, unposted inheritance.
type InheritanceDraftDTO struct {
	ID           string    `json:"id"`
	ParentIdeaID string    `json:"parent_idea_id"`
	AddPoint     string    `json:"add_point"`
	AddDetail    string    `json:"add_detail"`
	SavedAt      time.Time `json:"saved_at"`
}

// DraftFromModel converts a store inheritance draft.
func DraftFromModel(i store.Inheritance) InheritanceDraftDTO {
	return InheritanceDraftDTO{
		ID:           i.ID,
		ParentIdeaID: i.ParentIdeaID,
		AddPoint:     i.AddPoint,
		AddDetail:    i.AddDetail,
		SavedAt:      i.CreatedAt,
	}
}

// FusionRequest asks for two or three ideas to be fused.
type FusionRequest struct {
	IdeaIDs []string `json:"idea_ids"`
	Mode    string   `json:"mode"`
	Persona string   `json:"persona"`
}

// PostFusionRequest optionally edits a fused idea before posting it.
type PostFusionRequest struct {
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Category string `json:"category"`
}

// FusionDTO is the API representation of a fusion result.
type FusionDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Detail      string    `json:"detail"`
	Category    string    `json:"category"`
	Mode        string    `json:"mode"`
	Persona     string    `json:"persona"`
	ParentIDs   []string  `json:"parent_idea_ids"`
	FusedIdeaID string    `json:"fused_idea_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// FusionFromModel converts a store fusion.
func FusionFromModel(f store.Fusion) FusionDTO {
	dto := FusionDTO{
		ID:        f.ID,
		Title:     f.FusedTitle,
		Detail:    f.FusedDetail,
		Category:  f.FusedCategory,
		Mode:      f.Mode,
		Persona:   f.Persona,
		ParentIDs: f.ParentIDs(),
		CreatedAt: f.CreatedAt,
	}
	if f.FusedIdeaID != nil {
		dto.FusedIdeaID = *f.FusedIdeaID
	}
	return dto
}

// FusionResponse reports a paid fusion.
type FusionResponse struct {
	Fusion  FusionDTO `json:"fusion"`
	Parents []IdeaDTO `json:"parents"`
	Tickets int       `json:"tickets"`
}

// RankingResponse carries both leaderboards for a period.
type RankingResponse struct {
	Period       store.Period         `json:"period"`
	Posts        []store.RankingEntry `json:"posts"`
	Inheritances []store.RankingEntry `json:"inheritances"`
	PostRank     *int                 `json:"post_rank"`
	InheritRank  *int                 `json:"inheritance_rank"`
}

// NoticeDTO is the API representation of a revival notice.
type NoticeDTO struct {
	ID        string    `json:"id"`
	IdeaID    string    `json:"idea_id"`
	PickerID  string    `json:"picker_id"`
	Seen      bool      `json:"seen"`
	CreatedAt time.Time `json:"created_at"`
}

// NoticeFromModel converts a store notice.
func NoticeFromModel(n store.RevivalNotice) NoticeDTO {
	return NoticeDTO{ID: n.ID, IdeaID: n.IdeaID, PickerID: n.PickerID, Seen: n.Seen, CreatedAt: n.CreatedAt}
}
