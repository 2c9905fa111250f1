package model

import (
	"time"

	"github.com/volatiletech/null/v8"
)

type CalendarEvent struct {
	ID        string      `json:"id" db:"id" validate:"required"`
	UserID    string      `json:"userId" db:"user_id" validate:"required"`
	Title     string      `json:"title" db:"title" validate:"required,notblank"`
	Date      time.Time   `json:"date" db:"date" validate:"required"`
	Type      string      `json:"type" db:"type"`
	Color     string      `json:"color" db:"color"`
	StartTime null.String `json:"startTime" db:"start_time"`
	EndTime   null.String `json:"endTime" db:"end_time"`
}

func (e CalendarEvent) EntityID() string { return e.ID }
