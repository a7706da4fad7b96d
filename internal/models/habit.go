package models

import (
	"fmt"
	"strings"
	"time"
)

// Frequency is how often a habit recurs
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Frequencies lists the accepted frequencies in display order
var Frequencies = []Frequency{FrequencyDaily, FrequencyWeekly, FrequencyMonthly}

// ParseFrequency parses a frequency name, case-insensitively
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Frequencies {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("invalid frequency %q (expected daily, weekly or monthly)", s)
}

// Label returns the capitalized frequency for display
func (f Frequency) Label() string {
	if f == "" {
		return ""
	}
	return strings.ToUpper(string(f[:1])) + string(f[1:])
}

// Habit is a user-defined recurring task with a streak counter
type Habit struct {
	Meta
	UserID        string    `json:"user_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Frequency     Frequency `json:"frequency"`
	StreakCount   int       `json:"streak_count"`
	LastCompleted Datetime  `json:"last_completed"`
	CreatedAt     Datetime  `json:"created_at"`
}

// HabitFields is the writable attribute set of a habit document
type HabitFields struct {
	UserID        string    `json:"user_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Frequency     Frequency `json:"frequency"`
	StreakCount   int       `json:"streak_count"`
	LastCompleted Datetime  `json:"last_completed"`
	CreatedAt     Datetime  `json:"created_at"`
}

// StreakUpdate is the partial update applied when a habit is completed
type StreakUpdate struct {
	StreakCount   int      `json:"streak_count"`
	LastCompleted Datetime `json:"last_completed"`
}

// Completion is evidence that a habit was marked done on a given day.
// HabitID is a weak reference; deleting the habit leaves the record in place.
type Completion struct {
	Meta
	UserID      string   `json:"user_id"`
	HabitID     string   `json:"habit_id"`
	CompletedAt Datetime `json:"completed_at"`
}

// CompletionFields is the writable attribute set of a completion document
type CompletionFields struct {
	UserID      string   `json:"user_id"`
	HabitID     string   `json:"habit_id"`
	CompletedAt Datetime `json:"completed_at"`
}

// CompletedOn reports whether the completion falls on the local calendar day of day.
func (c Completion) CompletedOn(day time.Time) bool {
	start := StartOfDay(day)
	end := start.AddDate(0, 0, 1)
	at := c.CompletedAt.In(day.Location())
	return !at.Before(start) && at.Before(end)
}
