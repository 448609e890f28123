package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "relay.db"), true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createUser(t *testing.T, db *Database, nickname, company string) *User {
	t.Helper()
	user, err := db.CreateUser(nickname, company)
	require.NoError(t, err)
	return user
}

func postIdea(t *testing.T, db *Database, user *User, title, category string) *Idea {
	t.Helper()
	idea := &Idea{Title: title, Detail: title + "の詳細説明です。", Category: category, UserID: user.ID, CompanyCode: user.CompanyCode}
	require.NoError(t, db.PostIdea(idea))
	return idea
}

func setTickets(t *testing.T, db *Database, userID string, tickets int) {
	t.Helper()
	require.NoError(t, db.GORM().Model(&User{}).Where("id = ?", userID).UpdateColumn("tickets", tickets).Error)
}

func TestCreateUserDefaults(t *testing.T) {
	db := openTestDB(t)
	user := createUser(t, db, "  たろう ", "")
	assert.Equal(t, "たろう", user.Nickname)
	assert.Equal(t, DefaultCompanyCode, user.CompanyCode)
	assert.Equal(t, 1, user.Tickets)

	_, err := db.CreateUser(" ", "acme")
	assert.Error(t, err)
}

func TestPostIdeaGrantsTicket(t *testing.T) {
	db := openTestDB(t)
	user := createUser(t, db, "hanako", "acme")
	postIdea(t, db, user, "朝活アプリ", "生活・ライフスタイル")

	loaded, err := db.GetUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Tickets)

	rows, total, err := db.ListIdeas(IdeaQuery{CompanyCode: "acme"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "朝活アプリ", rows[0].Title)
}

func TestSpin(t *testing.T) {
	db := openTestDB(t)
	author := createUser(t, db, "author", "acme")
	picker := createUser(t, db, "picker", "acme")
	outsider := createUser(t, db, "outsider", "other")

	postIdea(t, db, picker, "自分のアイデア", "教育")
	postIdea(t, db, outsider, "他社のアイデア", "教育")
	idea := postIdea(t, db, author, "議事録AI", "ビジネス・業務効率化")
	setTickets(t, db, picker.ID, 1)

	res, err := db.Spin(picker.ID, "")
	require.NoError(t, err)
	assert.Equal(t, idea.ID, res.Idea.ID)
	assert.Equal(t, 0, res.Tickets)
	require.NotNil(t, res.Notice)
	assert.Equal(t, author.ID, res.Notice.AuthorID)

	unread, err := db.UnreadNotices(author.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	notices, err := db.Notices(author.ID, true)
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, picker.ID, notices[0].PickerID)

	_, err = db.Spin(picker.ID, "")
	assert.ErrorIs(t, err, ErrNoTickets)

	marked, err := db.MarkNoticesRead(author.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, marked)
	notices, err = db.Notices(author.ID, true)
	require.NoError(t, err)
	assert.Empty(t, notices)
}

func TestSpinNoCandidatesKeepsTicket(t *testing.T) {
	db := openTestDB(t)
	author := createUser(t, db, "author", "acme")
	picker := createUser(t, db, "picker", "acme")
	postIdea(t, db, author, "議事録AI", "ビジネス・業務効率化")

	_, err := db.Spin(picker.ID, "教育")
	assert.ErrorIs(t, err, ErrNoCandidates)

	loaded, err := db.GetUser(picker.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Tickets)
}

func TestRecordAndPublishFusion(t *testing.T) {
	db := openTestDB(t)
	user := createUser(t, db, "fuser", "acme")
	a := postIdea(t, db, user, "A", "教育")
	b := postIdea(t, db, user, "B", "エンタメ")

	loaded, err := db.IdeasByID([]string{b.ID, "missing", a.ID}, "acme")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, b.ID, loaded[0].ID)

	fusion := &Fusion{UserID: user.ID, ParentIdeaID1: a.ID, ParentIdeaID2: b.ID, FusedTitle: "AB", FusedDetail: "融合", FusedCategory: "教育"}
	tickets, err := db.RecordFusion(fusion)
	require.NoError(t, err)
	assert.Equal(t, 2, tickets)
	assert.Equal(t, []string{a.ID, b.ID}, fusion.ParentIDs())

	published, created, err := db.PublishFusion(fusion.ID, user, FusionEdit{})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "AB", published.Title)
	assert.Equal(t, "融合", published.Detail)

	edited, created, err := db.PublishFusion(fusion.ID, user, FusionEdit{Title: "AB改", Category: "エンタメ"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, published.ID, edited.ID)
	stored, err := db.GetIdea(published.ID)
	require.NoError(t, err)
	assert.Equal(t, "AB改", stored.Title)
	assert.Equal(t, "融合", stored.Detail)
	assert.Equal(t, "エンタメ", stored.Category)

	_, total, err := db.ListIdeas(IdeaQuery{CompanyCode: "acme"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	other := createUser(t, db, "other", "acme")
	_, err = db.GetFusion(fusion.ID, other.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	setTickets(t, db, user.ID, 0)
	_, err = db.RecordFusion(&Fusion{UserID: user.ID, ParentIdeaID1: a.ID, ParentIdeaID2: b.ID, FusedTitle: "x"})
	assert.ErrorIs(t, err, ErrNoTickets)
}

func TestCreateInheritance(t *testing.T) {
	db := openTestDB(t)
	parentUser := createUser(t, db, "parent", "acme")
	childUser := createUser(t, db, "child", "acme")
	parent := postIdea(t, db, parentUser, "議事録AI", "ビジネス・業務効率化")

	child := &Idea{Title: parent.Title, Detail: "要約を翻訳する機能を追加", Category: parent.Category, UserID: childUser.ID, CompanyCode: "acme"}
	record, tickets, err := db.CreateInheritance(parent, child, "翻訳", child.Detail)
	require.NoError(t, err)
	assert.Equal(t, parent.ID, record.ParentIdeaID)
	require.NotNil(t, record.ChildIdeaID)
	assert.Equal(t, child.ID, *record.ChildIdeaID)
	assert.False(t, record.Draft())
	assert.Equal(t, 2, tickets)

	stored, err := db.GetIdea(child.ID)
	require.NoError(t, err)
	assert.True(t, stored.InheritanceFlag)

	loaded, err := db.GetUser(childUser.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Tickets)
}

func TestInheritanceDraft(t *testing.T) {
	db := openTestDB(t)
	parentUser := createUser(t, db, "parent", "acme")
	childUser := createUser(t, db, "child", "acme")
	parent := postIdea(t, db, parentUser, "議事録AI", "ビジネス・業務効率化")

	_, err := db.InheritanceDraft(parent.ID, childUser.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	first, err := db.SaveInheritanceDraft(parent, childUser.ID, "翻訳", "途中")
	require.NoError(t, err)
	assert.True(t, first.Draft())
	second, err := db.SaveInheritanceDraft(parent, childUser.ID, "多言語翻訳", "書きかけの説明")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	draft, err := db.InheritanceDraft(parent.ID, childUser.ID)
	require.NoError(t, err)
	assert.Equal(t, "多言語翻訳", draft.AddPoint)
	assert.Equal(t, "書きかけの説明", draft.AddDetail)

	child := &Idea{Title: parent.Title, Detail: "要約を多言語に翻訳して共有する", Category: parent.Category, UserID: childUser.ID, CompanyCode: "acme"}
	record, _, err := db.CreateInheritance(parent, child, "多言語翻訳", child.Detail)
	require.NoError(t, err)
	assert.Equal(t, first.ID, record.ID)
	assert.False(t, record.Draft())

	_, err = db.InheritanceDraft(parent.ID, childUser.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var rows int64
	require.NoError(t, db.GORM().Model(&Inheritance{}).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}

func TestRanking(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return now }

	alice := createUser(t, db, "alice", "acme")
	bob := createUser(t, db, "bob", "acme")
	carol := createUser(t, db, "carol", "acme")
	outsider := createUser(t, db, "zed", "other")

	insert := func(user *User, age time.Duration, inherited bool) {
		idea := &Idea{Title: "t", Detail: "d", Category: "教育", UserID: user.ID, CompanyCode: user.CompanyCode, InheritanceFlag: inherited, CreatedAt: now.Add(-age)}
		require.NoError(t, db.GORM().Create(idea).Error)
	}
	day := 24 * time.Hour
	insert(alice, day, false)
	insert(alice, 2*day, false)
	insert(bob, 3*day, false)
	insert(bob, 40*day, false)
	insert(carol, 400*day, false)
	insert(carol, day, true)
	insert(outsider, day, false)

	weekly, err := db.Ranking(RankingPosts, PeriodWeekly, "acme", 0)
	require.NoError(t, err)
	require.Len(t, weekly, 2)
	assert.Equal(t, alice.ID, weekly[0].UserID)
	assert.Equal(t, "alice", weekly[0].Nickname)
	assert.EqualValues(t, 2, weekly[0].Count)
	assert.Equal(t, 2, weekly[1].Rank)

	all, err := db.Ranking(RankingPosts, ParsePeriod("bogus"), "acme", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 1, all[0].Rank)
	assert.Equal(t, 1, all[1].Rank)
	assert.Equal(t, 3, all[2].Rank)

	inherited, err := db.Ranking(RankingInheritances, PeriodMonthly, "acme", 0)
	require.NoError(t, err)
	require.Len(t, inherited, 1)
	assert.Equal(t, carol.ID, inherited[0].UserID)
}
