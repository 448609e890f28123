package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"idea-relay/backend/internal/ai"
	"idea-relay/backend/internal/store"
	"idea-relay/backend/internal/util"
)

const (
	userHeader = "X-User-ID"
	userKey    = "user"
)

// Config defines server dependencies.
type Config struct {
	DBPath         string
	AllowedOrigins []string
	SilentDB       bool
	AIConfig       ai.Config
	DisableAI      bool

	MaxTitleLength    int
	MaxDetailLength   int
	MaxAddPointLength int
	RankingLimit      int
}

func (c Config) withDefaults() Config {
	if c.MaxTitleLength <= 0 {
		c.MaxTitleLength = 60
	}
	if c.MaxDetailLength <= 0 {
		c.MaxDetailLength = 500
	}
	if c.MaxAddPointLength <= 0 {
		c.MaxAddPointLength = 64
	}
	if c.RankingLimit <= 0 {
		c.RankingLimit = 50
	}
	return c
}

// Server wires HTTP handlers with persistence and the moderation orchestrator.
type Server struct {
	db             *store.Database
	ai             *ai.Orchestrator
	notifier       *NoticeNotifier
	allowedOrigins []string
	limits         Config
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}
	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	aiCfg := cfg.AIConfig
	if cfg.DisableAI {
		aiCfg.Enabled = false
	}
	var backend ai.Backend
	if !aiCfg.Enabled {
		logrus.Info("content moderation disabled via configuration")
	} else if gemini, err := ai.NewGeminiBackend(aiCfg); err == nil {
		backend = gemini
	} else if errors.Is(err, ai.ErrDisabled) {
		logrus.Warn("content moderation disabled - no Gemini API key configured")
	} else {
		_ = db.Close()
		return nil, fmt.Errorf("gemini backend: %w", err)
	}

	orchestrator := ai.NewOrchestrator(aiCfg, backend)
	if orchestrator.Enabled() {
		effective := orchestrator.Config()
		logrus.WithFields(logrus.Fields{
			"primary":  effective.PrimaryModel,
			"fallback": effective.FallbackModel,
		}).Info("content moderation enabled")
	}
	return newServer(db, orchestrator, cfg), nil
}

func newServer(db *store.Database, orchestrator *ai.Orchestrator, cfg Config) *Server {
	return &Server{
		db:             db,
		ai:             orchestrator,
		notifier:       NewNoticeNotifier(),
		allowedOrigins: cfg.AllowedOrigins,
		limits:         cfg.withDefaults(),
	}
}

// Close releases the database handle.
func (s *Server) Close() error {
	return s.db.Close()
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", userHeader}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)
	r.POST("/api/users", s.handleCreateUser)

	api := r.Group("/api", s.requireUser)
	{
		api.GET("/me", s.handleMe)
		api.GET("/ideas", s.handleListIdeas)
		api.GET("/ideas/:id", s.handleGetIdea)
		api.POST("/ideas", s.handlePostIdea)
		api.POST("/ideas/suggest-category", s.handleSuggestCategory)
		api.POST("/ideas/:id/inherit", s.handleInherit)
		api.GET("/ideas/:id/inherit/draft", s.handleGetInheritanceDraft)
		api.POST("/ideas/:id/inherit/draft", s.handleSaveInheritanceDraft)
		api.POST("/gacha/spin", s.handleSpin)
		api.POST("/fusion", s.handleFusion)
		api.GET("/fusion/:id", s.handleGetFusion)
		api.POST("/fusion/:id/post", s.handlePostFusion)
		api.GET("/ranking", s.handleRanking)
		api.GET("/notifications", s.handleNotifications)
		api.POST("/notifications/read", s.handleReadNotifications)
		api.GET("/notifications/stream", s.handleNotificationStream)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	cfg := s.ai.Config()
	c.JSON(http.StatusOK, gin.H{
		"categories":           ai.Categories(),
		"modes":                ai.Modes(),
		"personas":             ai.Personas(),
		"periods":              store.Periods,
		"moderation_enabled":   s.ai.Enabled(),
		"max_title_length":     s.limits.MaxTitleLength,
		"max_detail_length":    s.limits.MaxDetailLength,
		"max_add_point_length": s.limits.MaxAddPointLength,
		"min_detail_length":    cfg.MinDetailLength,
		"fusion_min_ideas":     ai.MinFusionIdeas,
		"fusion_max_ideas":     ai.MaxFusionIdeas,
	})
}

// requireUser resolves the caller from the user header; the query value serves
// websocket clients that cannot set headers.
func (s *Server) requireUser(c *gin.Context) {
	id := util.FirstNonEmpty(c.GetHeader(userHeader), c.Query("user_id"))
	if id == "" {
		s.abortError(c, http.StatusUnauthorized, errors.New("user id is required"))
		return
	}
	user, err := s.db.GetUser(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.abortError(c, http.StatusUnauthorized, fmt.Errorf("user %s not found", id))
			return
		}
		s.abortError(c, http.StatusInternalServerError, err)
		return
	}
	c.Set(userKey, user)
	c.Next()
}

func currentUser(c *gin.Context) *store.User {
	value, _ := c.Get(userKey)
	user, _ := value.(*store.User)
	return user
}

func (s *Server) handleCreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if util.TextLength(strings.TrimSpace(req.Nickname)) > 32 {
		s.renderError(c, http.StatusBadRequest, errors.New("nickname must be 32 characters or fewer"))
		return
	}
	user, err := s.db.CreateUser(req.Nickname, req.CompanyCode)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusCreated, UserFromModel(*user))
}

func (s *Server) handleMe(c *gin.Context) {
	c.JSON(http.StatusOK, UserFromModel(*currentUser(c)))
}

func (s *Server) handleListIdeas(c *gin.Context) {
	user := currentUser(c)
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 {
		pageSize = 25
	}

	query := store.IdeaQuery{
		CompanyCode: user.CompanyCode,
		Category:    strings.TrimSpace(c.Query("category")),
		Offset:      page * pageSize,
		Limit:       pageSize,
	}
	if mine, _ := strconv.ParseBool(c.Query("mine")); mine {
		query.UserID = user.ID
	}
	rows, total, err := s.db.ListIdeas(query)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]IdeaDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, IdeaFromModel(row))
	}
	c.JSON(http.StatusOK, IdeasResponse{Items: dtos, Total: total})
}

func (s *Server) handleGetIdea(c *gin.Context) {
	idea, ok := s.companyIdea(c, c.Param("id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, IdeaFromModel(*idea))
}

// companyIdea loads an idea visible to the caller and renders the error when it is not.
func (s *Server) companyIdea(c *gin.Context, id string) (*store.Idea, bool) {
	idea, err := s.db.GetIdea(strings.TrimSpace(id))
	if err == nil && idea.CompanyCode != currentUser(c).CompanyCode {
		err = gorm.ErrRecordNotFound
	}
	if err != nil {
		s.renderStoreError(c, err, fmt.Errorf("idea %s not found", id))
		return nil, false
	}
	return idea, true
}

func (s *Server) handleSpin(c *gin.Context) {
	var req SpinRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	category := strings.TrimSpace(req.Category)
	if category != "" && !ai.IsCategory(category) {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("unknown category %q", category))
		return
	}

	user := currentUser(c)
	res, err := s.db.Spin(user.ID, category)
	if err != nil {
		s.renderStoreError(c, err, errors.New("no ideas available to draw"))
		return
	}
	idea := IdeaFromModel(res.Idea)
	if res.Notice != nil {
		s.pushNotice(*res.Notice, idea)
	}
	logrus.WithFields(logrus.Fields{
		"user":    user.ID,
		"idea":    res.Idea.ID,
		"tickets": res.Tickets,
	}).Info("gacha spin")
	c.JSON(http.StatusOK, SpinResponse{ResultID: res.Result.ID, Idea: idea, Tickets: res.Tickets})
}

func (s *Server) pushNotice(notice store.RevivalNotice, idea IdeaDTO) {
	unread, err := s.db.UnreadNotices(notice.AuthorID)
	if err != nil {
		logrus.WithError(err).Warn("count unread notices")
	}
	dto := NoticeFromModel(notice)
	delivered := s.notifier.Notify(notice.AuthorID, NoticeEvent{Type: "revival", Notice: &dto, Idea: &idea, Unread: int(unread)})
	logrus.WithFields(logrus.Fields{
		"author":    notice.AuthorID,
		"delivered": delivered,
	}).Debug("revival notice pushed")
}

func (s *Server) handleRanking(c *gin.Context) {
	user := currentUser(c)
	period := store.ParsePeriod(c.Query("period"))

	posts, err := s.db.Ranking(store.RankingPosts, period, user.CompanyCode, s.limits.RankingLimit)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	inheritances, err := s.db.Ranking(store.RankingInheritances, period, user.CompanyCode, s.limits.RankingLimit)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, RankingResponse{
		Period:       period,
		Posts:        posts,
		Inheritances: inheritances,
		PostRank:     rankOf(posts, user.ID),
		InheritRank:  rankOf(inheritances, user.ID),
	})
}

func rankOf(entries []store.RankingEntry, userID string) *int {
	for _, entry := range entries {
		if entry.UserID == userID {
			rank := entry.Rank
			return &rank
		}
	}
	return nil
}

func (s *Server) handleNotifications(c *gin.Context) {
	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))
	rows, err := s.db.Notices(currentUser(c).ID, unreadOnly)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]NoticeDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, NoticeFromModel(row))
	}
	c.JSON(http.StatusOK, gin.H{"items": dtos})
}

func (s *Server) handleReadNotifications(c *gin.Context) {
	marked, err := s.db.MarkNoticesRead(currentUser(c).ID)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": marked})
}

func (s *Server) handleNotificationStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	user := currentUser(c)
	unread, err := s.db.UnreadNotices(user.ID)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(user.ID, conn, int(unread))
	log := logrus.WithFields(logrus.Fields{"remote": conn.RemoteAddr().String(), "user": user.ID})
	log.Info("notification websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Info("notification websocket closed")
			} else {
				log.WithError(err).Warn("notification websocket unexpected close")
			}
			break
		}
	}
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) abortError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// renderStoreError maps repository errors onto status codes. notFound replaces the
// message of a missing record.
func (s *Server) renderStoreError(c *gin.Context, err error, notFound error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		s.renderError(c, http.StatusNotFound, notFound)
	case errors.Is(err, store.ErrNoCandidates):
		s.renderError(c, http.StatusNotFound, err)
	case errors.Is(err, store.ErrNoTickets):
		s.renderError(c, http.StatusConflict, err)
	default:
		s.renderError(c, http.StatusInternalServerError, err)
	}
}

// bindOptionalJSON decodes a JSON body when one was sent.
func bindOptionalJSON(c *gin.Context, dst interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(dst)
}
