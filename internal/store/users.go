package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"nutriflow/internal/auth"
)

type userRow struct {
	ID                  string    `db:"id"`
	Name                string    `db:"name"`
	Email               string    `db:"email"`
	PasswordHash        string    `db:"password_hash"`
	FitnessGoal         string    `db:"fitness_goal"`
	CalorieTarget       float64   `db:"calorie_target"`
	ProteinTarget       float64   `db:"protein_target"`
	CarbsTarget         float64   `db:"carbs_target"`
	FatTarget           float64   `db:"fat_target"`
	DietaryRestrictions string    `db:"dietary_restrictions"`
	Allergies           string    `db:"allergies"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

const userColumns = `id, name, email, password_hash, fitness_goal, calorie_target, protein_target,
	carbs_target, fat_target, dietary_restrictions, allergies, created_at, updated_at`

func (r userRow) user() (*auth.User, error) {
	u := &auth.User{
		ID:            r.ID,
		Name:          r.Name,
		Email:         r.Email,
		PasswordHash:  r.PasswordHash,
		FitnessGoal:   r.FitnessGoal,
		CalorieTarget: r.CalorieTarget,
		MacroTargets: auth.MacroTargets{
			Protein: r.ProteinTarget,
			Carbs:   r.CarbsTarget,
			Fat:     r.FatTarget,
		},
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(r.DietaryRestrictions), &u.DietaryRestrictions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dietary restrictions: %w", err)
	}
	if err := json.Unmarshal([]byte(r.Allergies), &u.Allergies); err != nil {
		return nil, fmt.Errorf("failed to unmarshal allergies: %w", err)
	}
	return u, nil
}

func jsonList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// isUniqueViolation recognizes duplicate-key errors from both drivers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateUser inserts u and fills in its id and timestamps. A taken email yields
// auth.ErrEmailTaken.
func (s *Store) CreateUser(ctx context.Context, u *auth.User) error {
	restrictions, err := jsonList(u.DietaryRestrictions)
	if err != nil {
		return fmt.Errorf("failed to marshal dietary restrictions: %w", err)
	}
	allergies, err := jsonList(u.Allergies)
	if err != nil {
		return fmt.Errorf("failed to marshal allergies: %w", err)
	}

	now := s.timestamp()
	id := newID()
	_, err = s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		id, u.Name, u.Email, u.PasswordHash, u.FitnessGoal, u.CalorieTarget,
		u.MacroTargets.Protein, u.MacroTargets.Carbs, u.MacroTargets.Fat,
		restrictions, allergies, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*auth.User, error) {
	var r userRow
	err := s.db.GetContext(ctx, &r, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE `+where+` = ?`), arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return r.user()
}

// GetUserByEmail returns nil, nil when no account uses email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.getUser(ctx, "email", email)
}

// GetUserByID returns nil, nil for an unknown id.
func (s *Store) GetUserByID(ctx context.Context, id string) (*auth.User, error) {
	return s.getUser(ctx, "id", id)
}

// UpdateUser stores the profile fields of u.
func (s *Store) UpdateUser(ctx context.Context, u *auth.User) error {
	restrictions, err := jsonList(u.DietaryRestrictions)
	if err != nil {
		return fmt.Errorf("failed to marshal dietary restrictions: %w", err)
	}
	allergies, err := jsonList(u.Allergies)
	if err != nil {
		return fmt.Errorf("failed to marshal allergies: %w", err)
	}

	now := s.timestamp()
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE users SET name = ?, fitness_goal = ?,
		calorie_target = ?, protein_target = ?, carbs_target = ?, fat_target = ?,
		dietary_restrictions = ?, allergies = ?, updated_at = ? WHERE id = ?`),
		u.Name, u.FitnessGoal, u.CalorieTarget,
		u.MacroTargets.Protein, u.MacroTargets.Carbs, u.MacroTargets.Fat,
		restrictions, allergies, now, u.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	u.UpdatedAt = now
	return nil
}

// CreateSession inserts sess and fills in its id.
func (s *Store) CreateSession(ctx context.Context, sess *auth.Session) error {
	id := newID()
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`),
		id, sess.UserID, sess.ExpiresAt.UTC(), sess.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	sess.ID = id
	return nil
}

// GetSession returns nil, nil for an unknown or deleted session.
func (s *Store) GetSession(ctx context.Context, id string) (*auth.Session, error) {
	var sess auth.Session
	err := s.db.QueryRowContext(ctx,
		s.db.Rebind(`SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = ?`), id,
	).Scan(&sess.ID, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	sess.ExpiresAt = sess.ExpiresAt.UTC()
	sess.CreatedAt = sess.CreatedAt.UTC()
	return &sess, nil
}

// DeleteSession removes a session. Deleting a missing session is not an error.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM sessions WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired before now and reports
// how many were removed.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM sessions WHERE expires_at < ?`), s.timestamp())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
