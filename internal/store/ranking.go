package store

import (
	"strings"
	"time"
)

// Period is a leaderboard time window.
type Period string

const (
	PeriodAll     Period = "all"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// Periods lists the supported windows in display order.
var Periods = []Period{PeriodAll, PeriodWeekly, PeriodMonthly, PeriodYearly}

// ParsePeriod maps a query value onto a period, defaulting to all.
func ParsePeriod(value string) Period {
	p := Period(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range Periods {
		if p == known {
			return p
		}
	}
	return PeriodAll
}

// Since returns the window start relative to now; the zero time means unbounded.
func (p Period) Since(now time.Time) time.Time {
	switch p {
	case PeriodWeekly:
		return now.AddDate(0, 0, -7)
	case PeriodMonthly:
		return now.AddDate(0, -1, 0)
	case PeriodYearly:
		return now.AddDate(-1, 0, 0)
	default:
		return time.Time{}
	}
}

// RankingKind selects what a leaderboard counts.
type RankingKind string

const (
	RankingPosts        RankingKind = "posts"
	RankingInheritances RankingKind = "inheritances"
)

// RankingEntry is one leaderboard row. Users with equal counts share a rank.
type RankingEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
	Count    int64  `json:"count"`
}

// Ranking counts original posts or inheritance posts per user of companyCode within the
// period.
func (d *Database) Ranking(kind RankingKind, period Period, companyCode string, limit int) ([]RankingEntry, error) {
	query := d.gorm.Table("ideas").
		Select("ideas.user_id AS user_id, users.nickname AS nickname, COUNT(*) AS count").
		Joins("LEFT JOIN users ON users.id = ideas.user_id").
		Where("ideas.company_code = ?", companyCode).
		Where("ideas.inheritance_flag = ?", kind == RankingInheritances)
	if since := period.Since(d.now()); !since.IsZero() {
		query = query.Where("ideas.created_at >= ?", since)
	}
	query = query.Group("ideas.user_id, users.nickname").Order("count DESC, ideas.user_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []RankingEntry
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	rank := 0
	var prev int64 = -1
	for i := range rows {
		if rows[i].Count != prev {
			rank = i + 1
			prev = rows[i].Count
		}
		rows[i].Rank = rank
	}
	return rows, nil
}
