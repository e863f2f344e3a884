package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/habitual/internal/model"
)

type NoteStore struct {
	db *sql.DB
}

func NewNoteStore(db *sql.DB) *NoteStore {
	return &NoteStore{db: db}
}

// Save upserts the user's note for day.
func (s *NoteStore) Save(userID int64, day time.Time, content string) (*model.DailyNote, error) {
	_, err := s.db.Exec(
		`INSERT INTO notes (user_id, day, content) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, day) DO UPDATE SET content = excluded.content, updated_at = CURRENT_TIMESTAMP`,
		userID, model.FormatDate(day), content,
	)
	if err != nil {
		return nil, fmt.Errorf("save note: %w", err)
	}
	return s.Get(userID, day)
}

// Get returns the note for day, or nil if none was saved.
func (s *NoteStore) Get(userID int64, day time.Time) (*model.DailyNote, error) {
	var n model.DailyNote
	err := s.db.QueryRow(
		`SELECT user_id, day, content, updated_at FROM notes WHERE user_id = ? AND day = ?`,
		userID, model.FormatDate(day),
	).Scan(&n.UserID, &n.Day, &n.Content, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return &n, nil
}

// Note returns the note text for day, empty if none.
func (s *NoteStore) Note(userID int64, day time.Time) (string, error) {
	n, err := s.Get(userID, day)
	if err != nil || n == nil {
		return "", err
	}
	return n.Content, nil
}

// ListRange returns notes for days in [from, to], keyed by YYYY-MM-DD.
func (s *NoteStore) ListRange(userID int64, from, to time.Time) (map[string]string, error) {
	rows, err := s.db.Query(
		`SELECT day, content FROM notes WHERE user_id = ? AND day >= ? AND day <= ?`,
		userID, model.FormatDate(from), model.FormatDate(to),
	)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := make(map[string]string)
	for rows.Next() {
		var day, content string
		if err := rows.Scan(&day, &content); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes[day] = content
	}
	return notes, rows.Err()
}
