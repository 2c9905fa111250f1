package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
	"github.com/trezcool/tutora/storage/database"
	"github.com/trezcool/tutora/storage/database/sqlx"
	"github.com/trezcool/tutora/testutil"
)

var tables = []string{
	"users", "assignments", "messages", "conversations", "notifications", "assignment_templates",
	"resources", "goals", "badges", "calendar_events", "exams", "questions",
}

func prepareDB(t *testing.T) (*sqlx.DB, model.Repositories) {
	db := testutil.OpenDB(t)
	require.NoError(t, database.NewProvisioner(db).Setup(context.Background()))
	for _, tbl := range tables {
		if _, err := db.Exec("TRUNCATE " + tbl); err != nil {
			t.Fatalf("prepareDB() failed: %v", err)
		}
	}
	return db, sqlxrepos.NewRepositories(db)
}

func TestAssignmentRepository(t *testing.T) {
	_, repos := prepareDB(t)
	ctx := context.Background()

	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	a := model.Assignment{
		ID:             "a1",
		Title:          "Essay",
		DueDate:        due,
		Status:         model.StatusPending,
		SubmissionType: model.SubmissionText,
		Checklist:      model.Checklist{{ID: "c1", Text: "Outline"}},
		StudentID:      "s1",
		CoachID:        "c1",
	}
	created, err := repos.Assignments.Create(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, a.Checklist, created.Checklist)

	_, err = repos.Assignments.Create(ctx, a)
	assert.Equal(t, core.ErrConflict, errors.Cause(err))

	created.Status = model.StatusGraded
	created.Grade = null.IntFrom(90)
	updated, err := repos.Assignments.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, 90, updated.Grade.Int)

	_, err = repos.Assignments.Update(ctx, model.Assignment{ID: "ghost", DueDate: due})
	assert.Equal(t, core.ErrNotFound, errors.Cause(err))

	require.NoError(t, repos.Assignments.DeleteByIDs(ctx, "a1"))
	_, err = repos.Assignments.Get(ctx, "a1")
	assert.Equal(t, core.ErrNotFound, errors.Cause(err))
}

func TestMessageRepository_Ordering(t *testing.T) {
	_, repos := prepareDB(t)
	ctx := context.Background()

	for _, id := range []string{"m2", "m1", "m3"} {
		_, err := repos.Messages.Create(ctx, model.Message{
			ID:             id,
			SenderID:       "u1",
			ConversationID: model.AnnouncementsConversationID,
			Type:           model.MessageText,
			ReadBy:         model.Strings{"u1"},
			Reactions:      model.Reactions{"👍": {"u2"}},
			Timestamp:      time.Now().UTC(),
		})
		require.NoError(t, err)
	}
	msgs, err := repos.Messages.QueryAll(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "m2", msgs[0].ID)
	assert.Equal(t, "m3", msgs[2].ID)
	assert.Equal(t, model.Strings{"u2"}, msgs[0].Reactions["👍"])
}

func TestUserAndConversationRepositories(t *testing.T) {
	_, repos := prepareDB(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, repos.Users, "Ada", "ada@tutora.test", "Gr8-Kangaroo!", model.RoleStudent)

	got, err := repos.Users.GetByEmail(ctx, "ADA@tutora.test")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	// update leaves the hash alone
	got.PasswordHash = nil
	got.XP = 40
	_, err = repos.Users.Update(ctx, got)
	require.NoError(t, err)
	got, _ = repos.Users.Get(ctx, usr.ID)
	assert.Equal(t, usr.PasswordHash, got.PasswordHash)
	assert.Equal(t, 40, got.XP)

	err = repos.Users.SetPasswordHash(ctx, "ghost", []byte("x"))
	assert.Equal(t, core.ErrNotFound, errors.Cause(err))

	_, err = repos.Conversations.Create(ctx, model.NewDirectConversation("c1", "b", "a"))
	require.NoError(t, err)
	conv, err := repos.Conversations.FindDirect(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "c1", conv.ID)
	_, err = repos.Conversations.FindDirect(ctx, "a", "z")
	assert.Equal(t, core.ErrNotFound, errors.Cause(err))
}
