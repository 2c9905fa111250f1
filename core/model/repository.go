package model

import "context"

type (
	// Repository is the persistence contract shared by every entity collection.
	// Get returns core.ErrNotFound for unknown ids; Create returns core.ErrConflict on duplicate ids.
	Repository[T Entity] interface {
		QueryAll(ctx context.Context) ([]T, error)
		Get(ctx context.Context, id string) (T, error)
		Create(ctx context.Context, e T) (T, error)
		Update(ctx context.Context, e T) (T, error)
		DeleteByIDs(ctx context.Context, ids ...string) error
	}

	UserRepository interface {
		Repository[User]
		GetByEmail(ctx context.Context, email string) (User, error)
		SetPasswordHash(ctx context.Context, id string, hash []byte) error
	}

	ConversationRepository interface {
		Repository[Conversation]
		// FindDirect returns the one-to-one conversation between two users.
		FindDirect(ctx context.Context, userID1, userID2 string) (Conversation, error)
	}

	// Repositories bundles one repository per collection.
	Repositories struct {
		Users         UserRepository
		Assignments   Repository[Assignment]
		Messages      Repository[Message]
		Conversations ConversationRepository
		Notifications Repository[Notification]
		Templates     Repository[AssignmentTemplate]
		Resources     Repository[Resource]
		Goals         Repository[Goal]
		Badges        Repository[Badge]
		Events        Repository[CalendarEvent]
		Exams         Repository[Exam]
		Questions     Repository[Question]
	}

	// Provisioner idempotently prepares the storage: schema and seed catalogs.
	Provisioner interface {
		Setup(ctx context.Context) error
	}
)

// DefaultBadges is the badge catalog seeded at setup.
var DefaultBadges = []Badge{
	{ID: "first-submission", Name: "First Steps", Description: "Submitted a first assignment", Icon: "🚀"},
	{ID: "streak-7", Name: "On Fire", Description: "Submitted work 7 days in a row", Icon: "🔥"},
	{ID: "perfect-score", Name: "Perfectionist", Description: "Scored 100 on an assignment", Icon: "💯"},
	{ID: "goal-getter", Name: "Goal Getter", Description: "Completed a goal", Icon: "🎯"},
	{ID: "bookworm", Name: "Bookworm", Description: "Opened 10 library resources", Icon: "📚"},
	{ID: "xp-1000", Name: "Rising Star", Description: "Earned 1000 XP", Icon: "⭐"},
}
