package model

import (
	"database/sql/driver"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

// AnnouncementsConversationID is the well-known broadcast conversation every user reads.
const AnnouncementsConversationID = "announcements"

type MessageType string

const (
	MessageText         MessageType = "text"
	MessageFile         MessageType = "file"
	MessageAudio        MessageType = "audio"
	MessageVideo        MessageType = "video"
	MessagePoll         MessageType = "poll"
	MessageAnnouncement MessageType = "announcement"
	MessageSystem       MessageType = "system"
)

var (
	ErrNoPoll        = errors.New("message has no poll")
	ErrUnknownOption = errors.New("unknown poll option")
)

type (
	// Reactions maps an emoji to the ids of the users who reacted with it.
	Reactions map[string]Strings

	PollOption struct {
		ID    string  `json:"id" validate:"required"`
		Text  string  `json:"text" validate:"required"`
		Votes Strings `json:"votes"`
	}

	Poll struct {
		Question string       `json:"question" validate:"required,notblank"`
		Options  []PollOption `json:"options" validate:"min=2,dive"`
	}
)

func (r Reactions) Value() (driver.Value, error) {
	if r == nil {
		return "{}", nil
	}
	return jsonValue(r)
}

func (r *Reactions) Scan(src interface{}) error { return jsonScan(src, r) }

func (p Poll) Value() (driver.Value, error) { return jsonValue(p) }
func (p *Poll) Scan(src interface{}) error  { return jsonScan(src, p) }

type Message struct {
	ID             string      `json:"id" db:"id" validate:"required"`
	SenderID       string      `json:"senderId" db:"sender_id" validate:"required"`
	ConversationID string      `json:"conversationId" db:"conversation_id" validate:"required"`
	Text           string      `json:"text" db:"text"`
	Timestamp      time.Time   `json:"timestamp" db:"timestamp" validate:"required"`
	Type           MessageType `json:"type" db:"type" validate:"required,oneof=text file audio video poll announcement system"`
	ReadBy         Strings     `json:"readBy" db:"read_by"`
	Reactions      Reactions   `json:"reactions" db:"reactions"`
	ReplyTo        null.String `json:"replyTo" db:"reply_to"`
	Poll           *Poll       `json:"poll" db:"poll"`
	FileURL        null.String `json:"fileUrl" db:"file_url"`
	FileName       null.String `json:"fileName" db:"file_name"`
	AudioURL       null.String `json:"audioUrl" db:"audio_url"`
	VideoURL       null.String `json:"videoUrl" db:"video_url"`
}

func (m Message) EntityID() string { return m.ID }

func (m *Message) IsReadBy(userID string) bool {
	return m.SenderID == userID || m.ReadBy.Contains(userID)
}

// MarkReadBy adds userID to the readers, reporting whether anything changed.
func (m *Message) MarkReadBy(userID string) bool {
	if m.ReadBy.Contains(userID) {
		return false
	}
	m.ReadBy = m.ReadBy.With(userID)
	return true
}

// ToggleReaction removes the user's emoji reaction if present, otherwise adds it.
// Emptied emoji keys are deleted.
func (m *Message) ToggleReaction(emoji, userID string) {
	reactions := make(Reactions, len(m.Reactions)+1)
	for k, v := range m.Reactions {
		reactions[k] = v
	}

	users := reactions[emoji]
	if users.Contains(userID) {
		users = users.Without(userID)
	} else {
		users = users.With(userID)
	}
	if len(users) == 0 {
		delete(reactions, emoji)
	} else {
		reactions[emoji] = users
	}
	m.Reactions = reactions
}

// VoteOnPoll casts the user's single vote for optionID, withdrawing any earlier vote.
func (m *Message) VoteOnPoll(optionID, userID string) error {
	if m.Poll == nil {
		return ErrNoPoll
	}

	found := false
	options := make([]PollOption, len(m.Poll.Options))
	for i, opt := range m.Poll.Options {
		opt.Votes = opt.Votes.Without(userID)
		if opt.ID == optionID {
			opt.Votes = append(opt.Votes, userID)
			found = true
		}
		options[i] = opt
	}
	if !found {
		return ErrUnknownOption
	}
	m.Poll = &Poll{Question: m.Poll.Question, Options: options}
	return nil
}

type Conversation struct {
	ID             string      `json:"id" db:"id" validate:"required"`
	ParticipantIDs Strings     `json:"participantIds" db:"participant_ids"`
	IsGroup        bool        `json:"isGroup" db:"is_group"`
	GroupName      null.String `json:"groupName" db:"group_name"`
	GroupImage     null.String `json:"groupImage" db:"group_image"`
	AdminID        null.String `json:"adminId" db:"admin_id"`
	IsArchived     bool        `json:"isArchived" db:"is_archived"`
}

func (c Conversation) EntityID() string { return c.ID }

func (c *Conversation) HasParticipant(userID string) bool {
	return c.ParticipantIDs.Contains(userID)
}

// IsDirectBetween reports whether c is the one-to-one conversation of the two users.
func (c *Conversation) IsDirectBetween(userID1, userID2 string) bool {
	return !c.IsGroup && len(c.ParticipantIDs) == 2 &&
		c.HasParticipant(userID1) && c.HasParticipant(userID2)
}

// NewDirectConversation returns a one-to-one conversation with a stable participant order.
func NewDirectConversation(id, userID1, userID2 string) Conversation {
	ids := Strings{userID1, userID2}
	sort.Strings(ids)
	return Conversation{ID: id, ParticipantIDs: ids}
}
