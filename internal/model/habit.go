package model

import "time"

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

var validDifficulties = map[string]bool{
	DifficultyEasy:   true,
	DifficultyMedium: true,
	DifficultyHard:   true,
}

// ValidDifficulty reports whether d is a known difficulty label.
func ValidDifficulty(d string) bool {
	return validDifficulties[d]
}

type Habit struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Name       string    `json:"name"`
	Difficulty string    `json:"difficulty"`
	CreatedAt  time.Time `json:"created_at"`
}

// CompletionEvent is a single (habit, day) completion fact.
type CompletionEvent struct {
	ID        int64     `json:"id"`
	HabitID   int64     `json:"habit_id"`
	Day       string    `json:"day"`
	Status    bool      `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// HabitWithStatus is a habit annotated with whether it was completed on a given day.
type HabitWithStatus struct {
	Habit
	Completed bool `json:"completed"`
}
