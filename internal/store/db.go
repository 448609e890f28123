package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrNoTickets is returned when a ticket-gated action finds an empty balance.
	ErrNoTickets = errors.New("no gacha tickets left")
	// ErrNoCandidates is returned when no idea can be drawn.
	ErrNoCandidates = errors.New("no ideas available to draw")
)

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
	now  func() time.Time
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&User{}, &Idea{}, &GachaResult{}, &RevivalNotice{}, &Inheritance{}, &Fusion{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	return &Database{gorm: db, now: time.Now}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newID() string {
	return uuid.NewString()
}

// CreateUser registers a user with the starting ticket balance.
func (d *Database) CreateUser(nickname, companyCode string) (*User, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, errors.New("nickname is required")
	}
	companyCode = strings.TrimSpace(companyCode)
	if companyCode == "" {
		companyCode = DefaultCompanyCode
	}
	user := &User{ID: newID(), Nickname: nickname, CompanyCode: companyCode, Tickets: 1}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.gorm.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser loads a user by ID.
func (d *Database) GetUser(id string) (*User, error) {
	var user User
	if err := d.gorm.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// PostIdea stores an accepted idea and grants its author one ticket.
func (d *Database) PostIdea(idea *Idea) error {
	if idea == nil {
		return errors.New("idea is nil")
	}
	if idea.ID == "" {
		idea.ID = newID()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(idea).Error; err != nil {
			return err
		}
		_, err := grantTicket(tx, idea.UserID)
		return err
	})
}

// GetIdea loads an idea by ID.
func (d *Database) GetIdea(id string) (*Idea, error) {
	var idea Idea
	if err := d.gorm.First(&idea, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &idea, nil
}

// IdeasByID returns the ideas of companyCode matching ids, in the order of ids.
// Missing or foreign ideas are skipped.
func (d *Database) IdeasByID(ids []string, companyCode string) ([]Idea, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []Idea
	if err := d.gorm.Where("id IN ? AND company_code = ?", ids, companyCode).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]Idea, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	out := make([]Idea, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// IdeaQuery filters idea listings.
type IdeaQuery struct {
	CompanyCode string
	Category    string
	UserID      string
	Offset      int
	Limit       int
}

// ListIdeas returns a page of ideas, newest first.
func (d *Database) ListIdeas(q IdeaQuery) ([]Idea, int64, error) {
	filter := func() *gorm.DB {
		query := d.gorm.Model(&Idea{})
		if q.CompanyCode != "" {
			query = query.Where("company_code = ?", q.CompanyCode)
		}
		if q.Category != "" {
			query = query.Where("category = ?", q.Category)
		}
		if q.UserID != "" {
			query = query.Where("user_id = ?", q.UserID)
		}
		return query
	}
	var total int64
	if err := filter().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query := filter().Order("created_at DESC")
	if q.Limit > 0 {
		query = query.Offset(q.Offset).Limit(q.Limit)
	}
	var rows []Idea
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// SpinResult is the outcome of a gacha draw.
type SpinResult struct {
	Result  GachaResult
	Idea    Idea
	Notice  *RevivalNotice
	Tickets int
}

// Spin draws a random idea written by someone else in the user's company, spending one
// ticket. The ticket, the draw and the author notice are committed together.
func (d *Database) Spin(userID, category string) (*SpinResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out SpinResult
	err := d.gorm.Transaction(func(tx *gorm.DB) error {
		var user User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return err
		}
		if user.Tickets < 1 {
			return ErrNoTickets
		}

		query := tx.Where("company_code = ? AND user_id <> ?", user.CompanyCode, user.ID)
		if category = strings.TrimSpace(category); category != "" {
			query = query.Where("category = ?", category)
		}
		if err := query.Order("RANDOM()").Limit(1).Take(&out.Idea).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoCandidates
			}
			return err
		}

		tickets, err := spendTicket(tx, user.ID)
		if err != nil {
			return err
		}
		out.Tickets = tickets

		now := d.now()
		out.Result = GachaResult{ID: newID(), UserID: user.ID, IdeaID: out.Idea.ID, CreatedAt: now}
		if err := tx.Create(&out.Result).Error; err != nil {
			return err
		}
		if out.Idea.UserID != "" && out.Idea.UserID != user.ID {
			notice := RevivalNotice{ID: newID(), IdeaID: out.Idea.ID, AuthorID: out.Idea.UserID, PickerID: user.ID, CreatedAt: now}
			if err := tx.Create(&notice).Error; err != nil {
				return err
			}
			out.Notice = &notice
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func spendTicket(tx *gorm.DB, userID string) (int, error) {
	res := tx.Model(&User{}).Where("id = ? AND tickets > 0", userID).
		UpdateColumn("tickets", gorm.Expr("tickets - 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNoTickets
	}
	return ticketBalance(tx, userID)
}

func grantTicket(tx *gorm.DB, userID string) (int, error) {
	res := tx.Model(&User{}).Where("id = ?", userID).
		UpdateColumn("tickets", gorm.Expr("tickets + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return ticketBalance(tx, userID)
}

func ticketBalance(tx *gorm.DB, userID string) (int, error) {
	var user User
	if err := tx.Select("tickets").First(&user, "id = ?", userID).Error; err != nil {
		return 0, err
	}
	return user.Tickets, nil
}

func draftQuery(tx *gorm.DB, parentID, userID string) *gorm.DB {
	return tx.Where("parent_idea_id = ? AND child_user_id = ? AND (child_idea_id IS NULL OR child_idea_id = '')", parentID, userID)
}

// InheritanceDraft returns the saved draft of userID for parentID, or
// gorm.ErrRecordNotFound.
func (d *Database) InheritanceDraft(parentID, userID string) (*Inheritance, error) {
	var row Inheritance
	if err := draftQuery(d.gorm, parentID, userID).Order("created_at DESC").First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// SaveInheritanceDraft stores or replaces the draft of userID for parent.
func (d *Database) SaveInheritanceDraft(parent *Idea, userID, addPoint, addDetail string) (*Inheritance, error) {
	if parent == nil {
		return nil, errors.New("parent is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var row Inheritance
	err := d.gorm.Transaction(func(tx *gorm.DB) error {
		err := draftQuery(tx, parent.ID, userID).First(&row).Error
		switch {
		case err == nil:
			row.AddPoint = addPoint
			row.AddDetail = addDetail
			row.CreatedAt = d.now()
			return tx.Save(&row).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = Inheritance{
				ID:           newID(),
				ParentIdeaID: parent.ID,
				ParentUserID: parent.UserID,
				ChildUserID:  userID,
				AddPoint:     addPoint,
				AddDetail:    addDetail,
				CompanyCode:  parent.CompanyCode,
				CreatedAt:    d.now(),
			}
			return tx.Create(&row).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// CreateInheritance stores child as a new idea remixing parent and grants its author one
// ticket. The child carries the inheritance flag so listings can route it to its
// inheritance record. A saved draft for the same parent is completed instead of adding a
// second row. It returns the record and the author's new ticket balance.
func (d *Database) CreateInheritance(parent *Idea, child *Idea, addPoint, addDetail string) (*Inheritance, int, error) {
	if parent == nil || child == nil {
		return nil, 0, errors.New("parent and child are required")
	}
	if child.ID == "" {
		child.ID = newID()
	}
	child.InheritanceFlag = true
	childID := child.ID

	d.mu.Lock()
	defer d.mu.Unlock()
	var record Inheritance
	var tickets int
	err := d.gorm.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(child).Error; err != nil {
			return err
		}
		err := draftQuery(tx, parent.ID, child.UserID).First(&record).Error
		switch {
		case err == nil:
			record.ChildIdeaID = &childID
			record.AddPoint = addPoint
			record.AddDetail = addDetail
			record.CreatedAt = d.now()
			err = tx.Save(&record).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			record = Inheritance{
				ID:           newID(),
				ParentIdeaID: parent.ID,
				ParentUserID: parent.UserID,
				ChildIdeaID:  &childID,
				ChildUserID:  child.UserID,
				AddPoint:     addPoint,
				AddDetail:    addDetail,
				CompanyCode:  child.CompanyCode,
				CreatedAt:    d.now(),
			}
			err = tx.Create(&record).Error
		}
		if err != nil {
			return err
		}
		left, err := grantTicket(tx, child.UserID)
		if err != nil {
			return err
		}
		tickets = left
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return &record, tickets, nil
}

// RecordFusion spends one ticket and stores a fusion result. Call it only after the
// fusion succeeded so a failed fusion costs nothing.
func (d *Database) RecordFusion(f *Fusion) (int, error) {
	if f == nil {
		return 0, errors.New("fusion is nil")
	}
	if f.ID == "" {
		f.ID = newID()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var tickets int
	err := d.gorm.Transaction(func(tx *gorm.DB) error {
		left, err := spendTicket(tx, f.UserID)
		if err != nil {
			return err
		}
		tickets = left
		return tx.Create(f).Error
	})
	if err != nil {
		return 0, err
	}
	return tickets, nil
}

// GetFusion loads a fusion owned by userID.
func (d *Database) GetFusion(id, userID string) (*Fusion, error) {
	var f Fusion
	if err := d.gorm.First(&f, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// FusionEdit carries user changes to a fused idea before it is posted. Blank fields keep
// the fused value.
type FusionEdit struct {
	Title    string
	Detail   string
	Category string
}

// apply fills blank fields from f.
func (e FusionEdit) apply(f *Fusion) FusionEdit {
	if strings.TrimSpace(e.Title) == "" {
		e.Title = f.FusedTitle
	}
	if strings.TrimSpace(e.Detail) == "" {
		e.Detail = f.FusedDetail
	}
	if strings.TrimSpace(e.Category) == "" {
		e.Category = f.FusedCategory
	}
	return e
}

// PublishFusion turns a stored fusion into a regular idea. Posting again updates that
// idea with the edit. The boolean reports whether a new idea was created.
func (d *Database) PublishFusion(fusionID string, user *User, edit FusionEdit) (*Idea, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var idea Idea
	created := false
	err := d.gorm.Transaction(func(tx *gorm.DB) error {
		var f Fusion
		if err := tx.First(&f, "id = ? AND user_id = ?", fusionID, user.ID).Error; err != nil {
			return err
		}
		edit = edit.apply(&f)
		if f.Posted() {
			if err := tx.First(&idea, "id = ?", *f.FusedIdeaID).Error; err != nil {
				return err
			}
			idea.Title = edit.Title
			idea.Detail = edit.Detail
			idea.Category = edit.Category
			return tx.Model(&Idea{}).Where("id = ?", idea.ID).Updates(map[string]interface{}{
				"title":    idea.Title,
				"detail":   idea.Detail,
				"category": idea.Category,
			}).Error
		}
		idea = Idea{
			ID:          newID(),
			Title:       edit.Title,
			Detail:      edit.Detail,
			Category:    edit.Category,
			UserID:      user.ID,
			CompanyCode: user.CompanyCode,
		}
		if err := tx.Create(&idea).Error; err != nil {
			return err
		}
		created = true
		return tx.Model(&Fusion{}).Where("id = ?", f.ID).Update("fused_idea_id", idea.ID).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &idea, created, nil
}

// UnreadNotices counts unseen revival notices of authorID.
func (d *Database) UnreadNotices(authorID string) (int64, error) {
	var count int64
	err := d.gorm.Model(&RevivalNotice{}).Where("author_id = ? AND seen = ?", authorID, false).Count(&count).Error
	return count, err
}

// Notices returns revival notices for an author, newest first.
func (d *Database) Notices(authorID string, unreadOnly bool) ([]RevivalNotice, error) {
	query := d.gorm.Where("author_id = ?", authorID)
	if unreadOnly {
		query = query.Where("seen = ?", false)
	}
	var rows []RevivalNotice
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkNoticesRead flags every notice of authorID as read.
func (d *Database) MarkNoticesRead(authorID string) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	res := d.gorm.Model(&RevivalNotice{}).Where("author_id = ? AND seen = ?", authorID, false).Update("seen", true)
	return res.RowsAffected, res.Error
}
