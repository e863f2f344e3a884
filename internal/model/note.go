package model

import "time"

// DailyNote is free text a user attaches to a calendar day.
type DailyNote struct {
	UserID    int64     `json:"user_id"`
	Day       string    `json:"day"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}
