package model

import (
	"database/sql/driver"
	"time"
)

type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
)

// Rank orders priorities, Critical being the highest.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// NotificationLink points the UI at a page, optionally pre-filtered.
type NotificationLink struct {
	Page   string            `json:"page" validate:"required"`
	Filter map[string]string `json:"filter,omitempty"`
}

func (l NotificationLink) Value() (driver.Value, error) { return jsonValue(l) }
func (l *NotificationLink) Scan(src interface{}) error  { return jsonScan(src, l) }

type Notification struct {
	ID        string            `json:"id" db:"id" validate:"required"`
	UserID    string            `json:"userId" db:"user_id" validate:"required"`
	Message   string            `json:"message" db:"message" validate:"required,notblank"`
	Timestamp time.Time         `json:"timestamp" db:"timestamp" validate:"required"`
	IsRead    bool              `json:"isRead" db:"is_read"`
	Priority  Priority          `json:"priority" db:"priority" validate:"required,oneof=Critical High Medium Low"`
	Link      *NotificationLink `json:"link" db:"link"`
}

func (n Notification) EntityID() string { return n.ID }

// Badge is an entry of the static catalog seeded at setup.
type Badge struct {
	ID          string `json:"id" db:"id" validate:"required"`
	Name        string `json:"name" db:"name" validate:"required"`
	Description string `json:"description" db:"description"`
	Icon        string `json:"icon" db:"icon"`
}

func (b Badge) EntityID() string { return b.ID }
