package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/habitual/internal/model"
)

// HabitStore owns habits and their completion log. Every query is scoped by
// the owning user id.
type HabitStore struct {
	db *sql.DB
}

func NewHabitStore(db *sql.DB) *HabitStore {
	return &HabitStore{db: db}
}

func scanHabit(scanner interface{ Scan(...any) error }) (*model.Habit, error) {
	var h model.Habit
	err := scanner.Scan(&h.ID, &h.UserID, &h.Name, &h.Difficulty, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

const habitCols = `id, user_id, name, difficulty, created_at`

func (s *HabitStore) Create(userID int64, name, difficulty string) (*model.Habit, error) {
	result, err := s.db.Exec(
		`INSERT INTO habits (user_id, name, difficulty) VALUES (?, ?, ?)`,
		userID, name, difficulty,
	)
	if err != nil {
		return nil, fmt.Errorf("insert habit: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(userID, id)
}

func (s *HabitStore) GetByID(userID, id int64) (*model.Habit, error) {
	row := s.db.QueryRow(`SELECT `+habitCols+` FROM habits WHERE id = ? AND user_id = ?`, id, userID)
	h, err := scanHabit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return h, nil
}

func (s *HabitStore) List(userID int64) ([]model.Habit, error) {
	rows, err := s.db.Query(`SELECT `+habitCols+` FROM habits WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	defer rows.Close()

	var habits []model.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan habit: %w", err)
		}
		habits = append(habits, *h)
	}
	return habits, rows.Err()
}

// ListWithStatus returns the user's habits flagged with whether each was
// completed on day.
func (s *HabitStore) ListWithStatus(userID int64, day time.Time) ([]model.HabitWithStatus, error) {
	rows, err := s.db.Query(
		`SELECT h.id, h.user_id, h.name, h.difficulty, h.created_at, COALESCE(l.status, 0)
		 FROM habits h
		 LEFT JOIN habit_logs l ON l.habit_id = h.id AND l.day = ?
		 WHERE h.user_id = ?
		 ORDER BY h.id ASC`,
		model.FormatDate(day), userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list habits with status: %w", err)
	}
	defer rows.Close()

	var habits []model.HabitWithStatus
	for rows.Next() {
		var h model.HabitWithStatus
		var status int
		if err := rows.Scan(&h.ID, &h.UserID, &h.Name, &h.Difficulty, &h.CreatedAt, &status); err != nil {
			return nil, fmt.Errorf("scan habit: %w", err)
		}
		h.Completed = status != 0
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

// Delete removes a habit and, through the foreign key cascade, its log.
// It reports whether a habit owned by userID was removed.
func (s *HabitStore) Delete(userID, id int64) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM habits WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete habit: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// --- Completion log ---

// ToggleResult is the state of a (habit, day) pair after a toggle.
type ToggleResult struct {
	HabitID   int64  `json:"habit_id"`
	Day       string `json:"day"`
	Completed bool   `json:"completed"`
}

// ToggleCompletion flips the completion of habit on day inside a single
// transaction. The delete runs first so the write lock is held before the
// insert-or-delete decision is made; concurrent toggles of the same pair
// serialize instead of racing. Returns nil if the habit is not the user's.
func (s *HabitStore) ToggleCompletion(userID, habitID int64, day time.Time) (*ToggleResult, error) {
	dayStr := model.FormatDate(day)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`DELETE FROM habit_logs
		 WHERE habit_id = ? AND day = ? AND status = 1
		   AND habit_id IN (SELECT id FROM habits WHERE user_id = ?)`,
		habitID, dayStr, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("delete completion: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}

	if removed == 0 {
		var owned int
		err := tx.QueryRow(`SELECT COUNT(*) FROM habits WHERE id = ? AND user_id = ?`, habitID, userID).Scan(&owned)
		if err != nil {
			return nil, fmt.Errorf("check habit owner: %w", err)
		}
		if owned == 0 {
			return nil, nil
		}
		if _, err := tx.Exec(
			`INSERT INTO habit_logs (habit_id, day, status) VALUES (?, ?, 1)
			 ON CONFLICT (habit_id, day) DO UPDATE SET status = 1`,
			habitID, dayStr,
		); err != nil {
			return nil, fmt.Errorf("insert completion: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit toggle: %w", err)
	}
	return &ToggleResult{HabitID: habitID, Day: dayStr, Completed: removed == 0}, nil
}

// SetCompletion records an explicit done/not-done status for habit on day.
// Returns nil if the habit is not the user's.
func (s *HabitStore) SetCompletion(userID, habitID int64, day time.Time, done bool) (*model.CompletionEvent, error) {
	h, err := s.GetByID(userID, habitID)
	if err != nil || h == nil {
		return nil, err
	}

	var status int
	if done {
		status = 1
	}
	dayStr := model.FormatDate(day)
	if _, err := s.db.Exec(
		`INSERT INTO habit_logs (habit_id, day, status) VALUES (?, ?, ?)
		 ON CONFLICT (habit_id, day) DO UPDATE SET status = excluded.status`,
		habitID, dayStr, status,
	); err != nil {
		return nil, fmt.Errorf("set completion: %w", err)
	}
	return s.GetCompletion(userID, habitID, day)
}

// GetCompletion returns the log entry for (habit, day), or nil if none exists.
func (s *HabitStore) GetCompletion(userID, habitID int64, day time.Time) (*model.CompletionEvent, error) {
	var e model.CompletionEvent
	var status int
	err := s.db.QueryRow(
		`SELECT l.id, l.habit_id, l.day, l.status, l.created_at
		 FROM habit_logs l JOIN habits h ON h.id = l.habit_id
		 WHERE l.habit_id = ? AND l.day = ? AND h.user_id = ?`,
		habitID, model.FormatDate(day), userID,
	).Scan(&e.ID, &e.HabitID, &e.Day, &status, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	e.Status = status != 0
	return &e, nil
}

// CompletionCount returns how many of the user's habits are marked done on day.
func (s *HabitStore) CompletionCount(userID int64, day time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*)
		 FROM habit_logs l JOIN habits h ON h.id = l.habit_id
		 WHERE h.user_id = ? AND l.day = ? AND l.status = 1`,
		userID, model.FormatDate(day),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count completions: %w", err)
	}
	return n, nil
}

// SuccessDays returns, in ascending order and without duplicates, every day
// on which the user completed at least threshold habits.
func (s *HabitStore) SuccessDays(userID int64, threshold int) ([]time.Time, error) {
	rows, err := s.db.Query(
		`SELECT l.day
		 FROM habit_logs l JOIN habits h ON h.id = l.habit_id
		 WHERE h.user_id = ? AND l.status = 1
		 GROUP BY l.day
		 HAVING COUNT(*) >= ?
		 ORDER BY l.day ASC`,
		userID, threshold,
	)
	if err != nil {
		return nil, fmt.Errorf("list success days: %w", err)
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var dayStr string
		if err := rows.Scan(&dayStr); err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		d, err := model.ParseDate(dayStr)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}
