package store

import (
	"time"
)

// DefaultCompanyCode scopes users that joined without a company.
const DefaultCompanyCode = "test"

// User is a poster with a gacha ticket balance.
type User struct {
	ID          string `gorm:"primaryKey;size:64"`
	Nickname    string `gorm:"size:32"`
	CompanyCode string `gorm:"size:32;index"`
	Tickets     int    `gorm:"not null;default:1"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Idea is a posted idea. Inheritance children are ideas too.
type Idea struct {
	ID              string `gorm:"primaryKey;size:64"`
	Title           string `gorm:"size:128"`
	Detail          string `gorm:"type:text"`
	Category        string `gorm:"size:32;index"`
	UserID          string `gorm:"size:64;index"`
	CompanyCode     string `gorm:"size:32;index"`
	InheritanceFlag bool
	CreatedAt       time.Time `gorm:"index"`
}

// GachaResult records which idea a user drew.
type GachaResult struct {
	ID        string `gorm:"primaryKey;size:64"`
	UserID    string `gorm:"size:64;index"`
	IdeaID    string `gorm:"size:64;index"`
	CreatedAt time.Time
}

// RevivalNotice tells an author that someone drew their idea.
type RevivalNotice struct {
	ID        string `gorm:"primaryKey;size:64"`
	IdeaID    string `gorm:"size:64"`
	AuthorID  string `gorm:"size:64;index"`
	PickerID  string `gorm:"size:64"`
	Seen      bool   `gorm:"index"`
	CreatedAt time.Time
}

// Inheritance links a child idea to the parent it remixes. A row without a child idea is
// the user's saved draft for that parent.
type Inheritance struct {
	ID           string    `gorm:"primaryKey;size:64"`
	ParentIdeaID string    `gorm:"size:64;index"`
	ParentUserID string    `gorm:"size:64"`
	ChildIdeaID  *string   `gorm:"size:64"`
	ChildUserID  string    `gorm:"size:64;index"`
	AddPoint     string    `gorm:"size:64"`
	AddDetail    string    `gorm:"type:text"`
	CompanyCode  string    `gorm:"size:32;index"`
	CreatedAt    time.Time `gorm:"index"`
}

// Draft reports whether the row has not been posted yet.
func (i *Inheritance) Draft() bool {
	return i.ChildIdeaID == nil || *i.ChildIdeaID == ""
}

// Fusion stores a paid fusion result until the user posts it.
type Fusion struct {
	ID            string  `gorm:"primaryKey;size:64"`
	UserID        string  `gorm:"size:64;index"`
	ParentIdeaID1 string  `gorm:"size:64"`
	ParentIdeaID2 string  `gorm:"size:64"`
	ParentIdeaID3 *string `gorm:"size:64"`
	Mode          string  `gorm:"size:16"`
	Persona       string  `gorm:"size:16"`
	FusedTitle    string  `gorm:"size:128"`
	FusedDetail   string  `gorm:"type:text"`
	FusedCategory string  `gorm:"size:32"`
	FusedIdeaID   *string `gorm:"size:64"`
	CreatedAt     time.Time
}

// ParentIDs returns the source idea IDs in selection order.
func (f *Fusion) ParentIDs() []string {
	ids := []string{f.ParentIdeaID1, f.ParentIdeaID2}
	if f.ParentIdeaID3 != nil && *f.ParentIdeaID3 != "" {
		ids = append(ids, *f.ParentIdeaID3)
	}
	return ids
}

// Posted reports whether the fused result has already been published as an idea.
func (f *Fusion) Posted() bool {
	return f.FusedIdeaID != nil && *f.FusedIdeaID != ""
}
