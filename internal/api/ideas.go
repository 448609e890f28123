package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"idea-relay/backend/internal/ai"
	"idea-relay/backend/internal/store"
	"idea-relay/backend/internal/util"
)

const (
	rejectInappropriate = "不適切な内容が含まれているため、投稿できませんでした。"
	rejectThin          = "内容が不十分なため、投稿できませんでした。"
	thinHint            = "もう少し詳しく説明してください。"
	fusionFailed        = "アイデアの融合に失敗しました。もう一度お試しください。"
)

func (s *Server) handlePostIdea(c *gin.Context) {
	var req PostIdeaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	title := strings.TrimSpace(req.Title)
	detail := strings.TrimSpace(req.Detail)
	category := strings.TrimSpace(req.Category)
	if err := s.validateIdea(title, detail, category); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	suggested := false
	if category == "" {
		category = s.ai.SuggestCategory(ctx, title, detail)
		suggested = true
	}
	if category == "" {
		category = ai.CategoryOther
	}

	if verdict := s.ai.CheckContent(ctx, title, detail, category); verdict.Rejected() {
		s.renderRejection(c, verdict, false)
		return
	}

	user := currentUser(c)
	idea := &store.Idea{
		Title:       title,
		Detail:      detail,
		Category:    category,
		UserID:      user.ID,
		CompanyCode: user.CompanyCode,
	}
	if err := s.db.PostIdea(idea); err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	tickets := user.Tickets + 1
	if refreshed, err := s.db.GetUser(user.ID); err == nil {
		tickets = refreshed.Tickets
	}
	logrus.WithFields(logrus.Fields{
		"user":      user.ID,
		"idea":      idea.ID,
		"category":  category,
		"suggested": suggested,
	}).Info("idea posted")
	c.JSON(http.StatusCreated, PostIdeaResponse{Idea: IdeaFromModel(*idea), Tickets: tickets, CategorySuggested: suggested})
}

func (s *Server) validateIdea(title, detail, category string) error {
	if title == "" {
		return errors.New("title is required")
	}
	if detail == "" {
		return errors.New("detail is required")
	}
	if util.TextLength(title) > s.limits.MaxTitleLength {
		return fmt.Errorf("title must be %d characters or fewer", s.limits.MaxTitleLength)
	}
	if util.TextLength(detail) > s.limits.MaxDetailLength {
		return fmt.Errorf("detail must be %d characters or fewer", s.limits.MaxDetailLength)
	}
	if category != "" && !ai.IsCategory(category) {
		return fmt.Errorf("unknown category %q", category)
	}
	return nil
}

func (s *Server) renderRejection(c *gin.Context, verdict ai.Verdict, draftSaved bool) {
	message := rejectInappropriate
	if !verdict.Inappropriate {
		message = rejectThin + util.FirstNonEmpty(verdict.Reason, thinHint)
	} else if verdict.Reason != "" {
		message += verdict.Reason
	}
	logrus.WithFields(logrus.Fields{
		"inappropriate": verdict.Inappropriate,
		"thin":          verdict.ThinContent,
		"draft_saved":   draftSaved,
	}).Info("submission rejected")
	c.JSON(http.StatusUnprocessableEntity, RejectionResponse{Error: message, Verdict: verdict, DraftSaved: draftSaved})
}

func (s *Server) handleSuggestCategory(c *gin.Context) {
	var req SuggestCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	title := strings.TrimSpace(req.Title)
	detail := strings.TrimSpace(req.Detail)
	if title == "" && detail == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("title or detail is required"))
		return
	}
	category := s.ai.SuggestCategory(c.Request.Context(), title, detail)
	c.JSON(http.StatusOK, gin.H{"category": category})
}

func (s *Server) validateInheritance(addPoint, addDetail string) error {
	switch {
	case addPoint == "":
		return errors.New("add_point is required")
	case util.TextLength(addPoint) > s.limits.MaxAddPointLength:
		return fmt.Errorf("add_point must be %d characters or fewer", s.limits.MaxAddPointLength)
	case util.TextLength(addDetail) > s.limits.MaxDetailLength:
		return fmt.Errorf("add_detail must be %d characters or fewer", s.limits.MaxDetailLength)
	}
	return nil
}

func (s *Server) handleInherit(c *gin.Context) {
	parent, ok := s.companyIdea(c, c.Param("id"))
	if !ok {
		return
	}
	var req InheritRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	user := currentUser(c)
	addPoint := strings.TrimSpace(req.AddPoint)
	addDetail := strings.TrimSpace(req.AddDetail)
	if addPoint == "" {
		// An empty submission posts the saved draft.
		draft, err := s.db.InheritanceDraft(parent.ID, user.ID)
		switch {
		case err == nil:
			addPoint = draft.AddPoint
			addDetail = util.FirstNonEmpty(addDetail, draft.AddDetail)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			s.renderError(c, http.StatusInternalServerError, err)
			return
		}
	}
	if err := s.validateInheritance(addPoint, addDetail); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	title := parent.Title + " / " + addPoint
	if verdict := s.ai.CheckContent(c.Request.Context(), title, addDetail, parent.Category); verdict.Rejected() {
		saved := true
		if _, err := s.db.SaveInheritanceDraft(parent, user.ID, addPoint, addDetail); err != nil {
			logrus.WithError(err).WithField("parent", parent.ID).Warn("save inheritance draft")
			saved = false
		}
		s.renderRejection(c, verdict, saved)
		return
	}

	child := &store.Idea{
		Title:       parent.Title,
		Detail:      addDetail,
		Category:    parent.Category,
		UserID:      user.ID,
		CompanyCode: user.CompanyCode,
	}
	record, tickets, err := s.db.CreateInheritance(parent, child, addPoint, addDetail)
	if err != nil {
		s.renderStoreError(c, err, errors.New("user not found"))
		return
	}
	logrus.WithFields(logrus.Fields{
		"user":    user.ID,
		"parent":  parent.ID,
		"child":   child.ID,
		"tickets": tickets,
	}).Info("idea inherited")
	c.JSON(http.StatusCreated, InheritResponse{InheritanceID: record.ID, Idea: IdeaFromModel(*child), Tickets: tickets})
}

func (s *Server) handleGetInheritanceDraft(c *gin.Context) {
	parent, ok := s.companyIdea(c, c.Param("id"))
	if !ok {
		return
	}
	draft, err := s.db.InheritanceDraft(parent.ID, currentUser(c).ID)
	if err != nil {
		s.renderStoreError(c, err, errors.New("no saved draft"))
		return
	}
	c.JSON(http.StatusOK, DraftFromModel(*draft))
}

func (s *Server) handleSaveInheritanceDraft(c *gin.Context) {
	parent, ok := s.companyIdea(c, c.Param("id"))
	if !ok {
		return
	}
	var req InheritRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	addPoint := strings.TrimSpace(req.AddPoint)
	addDetail := strings.TrimSpace(req.AddDetail)
	if err := s.validateInheritance(addPoint, addDetail); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	draft, err := s.db.SaveInheritanceDraft(parent, currentUser(c).ID, addPoint, addDetail)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, DraftFromModel(*draft))
}

func (s *Server) handleFusion(c *gin.Context) {
	var req FusionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	ids := dedupe(req.IdeaIDs)
	if len(ids) < ai.MinFusionIdeas || len(ids) > ai.MaxFusionIdeas {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("select between %d and %d ideas", ai.MinFusionIdeas, ai.MaxFusionIdeas))
		return
	}
	user := currentUser(c)
	if user.Tickets < 1 {
		s.renderError(c, http.StatusConflict, store.ErrNoTickets)
		return
	}

	parents, err := s.db.IdeasByID(ids, user.CompanyCode)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	if len(parents) != len(ids) {
		s.renderError(c, http.StatusNotFound, errors.New("one or more ideas not found"))
		return
	}

	refs := make([]ai.IdeaRef, 0, len(parents))
	for _, p := range parents {
		refs = append(refs, ai.IdeaRef{Title: p.Title, Detail: p.Detail, Category: p.Category})
	}
	mode := ai.ResolveMode(req.Mode)
	persona := ai.ResolvePersona(req.Persona)
	fused, ok := s.ai.FuseIdeas(c.Request.Context(), refs, string(mode.Key), string(persona.Key))
	if !ok {
		s.renderError(c, http.StatusBadGateway, errors.New(fusionFailed))
		return
	}

	record := &store.Fusion{
		UserID:        user.ID,
		ParentIdeaID1: parents[0].ID,
		ParentIdeaID2: parents[1].ID,
		Mode:          string(mode.Key),
		Persona:       string(persona.Key),
		FusedTitle:    fused.Title,
		FusedDetail:   fused.Detail,
		FusedCategory: fused.Category,
	}
	if len(parents) > 2 {
		third := parents[2].ID
		record.ParentIdeaID3 = &third
	}
	tickets, err := s.db.RecordFusion(record)
	if err != nil {
		s.renderStoreError(c, err, errors.New("user not found"))
		return
	}

	dtos := make([]IdeaDTO, 0, len(parents))
	for _, p := range parents {
		dtos = append(dtos, IdeaFromModel(p))
	}
	logrus.WithFields(logrus.Fields{
		"user":    user.ID,
		"fusion":  record.ID,
		"mode":    mode.Key,
		"persona": persona.Key,
		"tickets": tickets,
	}).Info("fusion recorded")
	c.JSON(http.StatusCreated, FusionResponse{Fusion: FusionFromModel(*record), Parents: dtos, Tickets: tickets})
}

func (s *Server) handleGetFusion(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	record, err := s.db.GetFusion(id, currentUser(c).ID)
	if err != nil {
		s.renderStoreError(c, err, fmt.Errorf("fusion %s not found", id))
		return
	}
	c.JSON(http.StatusOK, FusionFromModel(*record))
}

func (s *Server) handlePostFusion(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	var req PostFusionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	user := currentUser(c)
	record, err := s.db.GetFusion(id, user.ID)
	if err != nil {
		s.renderStoreError(c, err, fmt.Errorf("fusion %s not found", id))
		return
	}

	edit := store.FusionEdit{
		Title:    util.FirstNonEmpty(strings.TrimSpace(req.Title), record.FusedTitle),
		Detail:   util.FirstNonEmpty(strings.TrimSpace(req.Detail), record.FusedDetail),
		Category: util.FirstNonEmpty(strings.TrimSpace(req.Category), record.FusedCategory),
	}
	if err := s.validateIdea(edit.Title, edit.Detail, edit.Category); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	// Text the model produced was already vetted; only user edits are checked.
	if edit.Title != record.FusedTitle || edit.Detail != record.FusedDetail {
		if verdict := s.ai.CheckContent(c.Request.Context(), edit.Title, edit.Detail, edit.Category); verdict.Rejected() {
			s.renderRejection(c, verdict, false)
			return
		}
	}

	idea, created, err := s.db.PublishFusion(id, user, edit)
	if err != nil {
		s.renderStoreError(c, err, fmt.Errorf("fusion %s not found", id))
		return
	}
	logrus.WithFields(logrus.Fields{"user": user.ID, "fusion": id, "idea": idea.ID, "created": created}).Info("fusion posted")
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, IdeaFromModel(*idea))
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
