// Package views derives read models from the store's collections.
// Every function is pure: same input, same output, inputs left untouched.
package views

import (
	"sort"

	"github.com/trezcool/tutora/core/model"
)

type ConversationView struct {
	Conversation model.Conversation
	// Messages are sorted by ascending timestamp.
	Messages    []model.Message
	LastMessage *model.Message
	UnreadCount int
}

type Messaging struct {
	Conversations []ConversationView
	TotalUnread   int
}

// GroupMessages buckets messages by conversation, each bucket sorted by ascending
// timestamp. Messages with equal timestamps keep their input order.
func GroupMessages(msgs []model.Message) map[string][]model.Message {
	groups := make(map[string][]model.Message)
	for _, m := range msgs {
		groups[m.ConversationID] = append(groups[m.ConversationID], m)
	}
	for _, group := range groups {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timestamp.UnixMilli() < group[j].Timestamp.UnixMilli()
		})
	}
	return groups
}

// UnreadCount counts the messages userID has not read, ignoring their own.
func UnreadCount(msgs []model.Message, userID string) int {
	n := 0
	for i := range msgs {
		if !msgs[i].IsReadBy(userID) {
			n++
		}
	}
	return n
}

func participates(c model.Conversation, userID string) bool {
	return c.ID == model.AnnouncementsConversationID || c.HasParticipant(userID)
}

// BuildMessaging returns the conversations userID takes part in, announcements first,
// then the conversations with messages by most recent activity, then the empty ones.
func BuildMessaging(userID string, convs []model.Conversation, msgs []model.Message) Messaging {
	groups := GroupMessages(msgs)

	var out Messaging
	for _, c := range convs {
		if !participates(c, userID) {
			continue
		}
		cv := ConversationView{Conversation: c, Messages: groups[c.ID]}
		if n := len(cv.Messages); n > 0 {
			last := cv.Messages[n-1]
			cv.LastMessage = &last
		}
		cv.UnreadCount = UnreadCount(cv.Messages, userID)
		out.TotalUnread += cv.UnreadCount
		out.Conversations = append(out.Conversations, cv)
	}

	sort.SliceStable(out.Conversations, func(i, j int) bool {
		return conversationLess(out.Conversations[i], out.Conversations[j])
	})
	return out
}

func conversationLess(a, b ConversationView) bool {
	aAnn := a.Conversation.ID == model.AnnouncementsConversationID
	bAnn := b.Conversation.ID == model.AnnouncementsConversationID
	if aAnn != bAnn {
		return aAnn
	}
	if (a.LastMessage == nil) != (b.LastMessage == nil) {
		return a.LastMessage != nil
	}
	if a.LastMessage == nil {
		return false
	}
	return a.LastMessage.Timestamp.UnixMilli() > b.LastMessage.Timestamp.UnixMilli()
}
