package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/habitual/internal/model"
	"golang.org/x/crypto/bcrypt"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var threshold sql.NullInt64
	err := scanner.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &threshold, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if threshold.Valid {
		v := int(threshold.Int64)
		u.SuccessThreshold = &v
	}
	return &u, nil
}

const userCols = `id, email, name, password_hash, success_threshold, created_at, updated_at`

// Create stores a new user with a bcrypt hash of password.
func (s *UserStore) Create(email, name, password string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO users (email, name, password_hash) VALUES (?, ?, ?)`,
		email, name, string(hash),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// Authenticate returns the user matching email and password, or nil if
// either is wrong.
func (s *UserStore) Authenticate(email, password string) (*model.User, error) {
	u, err := s.GetByEmail(email)
	if err != nil || u == nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, nil
	}
	return u, nil
}

// SetSuccessThreshold sets the per-user success threshold. A nil value
// reverts the user to the system default.
func (s *UserStore) SetSuccessThreshold(id int64, threshold *int) (*model.User, error) {
	var v sql.NullInt64
	if threshold != nil {
		v = sql.NullInt64{Int64: int64(*threshold), Valid: true}
	}
	_, err := s.db.Exec(
		`UPDATE users SET success_threshold = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		v, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update threshold: %w", err)
	}
	return s.GetByID(id)
}

// SuccessThreshold returns the user's override, if any.
func (s *UserStore) SuccessThreshold(id int64) (int, bool, error) {
	var v sql.NullInt64
	err := s.db.QueryRow(`SELECT success_threshold FROM users WHERE id = ?`, id).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get threshold: %w", err)
	}
	if !v.Valid {
		return 0, false, nil
	}
	return int(v.Int64), true, nil
}

func (s *UserStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
