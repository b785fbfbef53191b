// Package account manages user records, password checks and session tokens.
package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/llehouerou/vibeflow/internal/db"
	"github.com/llehouerou/vibeflow/internal/errmsg"
)

var (
	ErrEmailTaken         = fmt.Errorf("email already registered: %w", errmsg.ErrValidation)
	ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", errmsg.ErrNotAuthenticated)
	ErrAccountNotFound    = fmt.Errorf("account %w", errmsg.ErrNotFound)
)

// Account is a registered user.
type Account struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"displayName"`
	CreatedAt    time.Time `json:"-"`
}

// Service stores accounts and issues session tokens for them.
type Service struct {
	db     *sql.DB
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates an account service. Tokens are signed with secret and
// expire after ttl.
func NewService(conn *sql.DB, secret string, ttl time.Duration) *Service {
	return &Service{
		db:     conn,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Signup creates an account. All fields are required.
func (s *Service) Signup(ctx context.Context, email, password, displayName string) (Account, error) {
	email = normalizeEmail(email)
	displayName = strings.TrimSpace(displayName)
	if email == "" || password == "" || displayName == "" {
		return Account{}, fmt.Errorf("email, password and display name are required: %w", errmsg.ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return Account{}, fmt.Errorf("invalid email address: %w", errmsg.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}

	acc := Account{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		CreatedAt:    s.now(),
	}

	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM users WHERE email = ?`, email,
		).Scan(&exists); err != nil {
			return err
		}
		if exists > 0 {
			return ErrEmailTaken
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO users (email, password_hash, display_name, created_at)
			VALUES (?, ?, ?, ?)
		`, acc.Email, acc.PasswordHash, acc.DisplayName, acc.CreatedAt.UnixNano())
		if err != nil {
			return err
		}
		acc.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return Account{}, err
	}
	return acc, nil
}

// Login checks credentials and returns the matching account.
func (s *Service) Login(ctx context.Context, email, password string) (Account, error) {
	acc, err := s.query(ctx, `WHERE email = ?`, normalizeEmail(email))
	if errors.Is(err, ErrAccountNotFound) {
		return Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return acc, nil
}

// Get returns the account with the given id.
func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.query(ctx, `WHERE id = ?`, id)
}

func (s *Service) query(ctx context.Context, where string, arg any) (Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, display_name, created_at
		FROM users `+where, arg)

	var acc Account
	var created int64
	err := row.Scan(&acc.ID, &acc.Email, &acc.PasswordHash, &acc.DisplayName, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, err
	}
	acc.CreatedAt = time.Unix(0, created)
	return acc, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
