// Package auth issues bearer tokens to users and checks them on requests.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/notexe/companion/internal/database"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrNameRequired = errors.New("username is required")
)

// User is an account that owns devices.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Token     string    `json:"token,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateUser registers a user and issues a fresh token.
func (s *Store) CreateUser(ctx context.Context, username string, now time.Time) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrNameRequired
	}

	u := &User{Username: username, Token: uuid.NewString(), CreatedAt: now}
	res, err := s.db.ExecContext(ctx, `INSERT INTO users (username, token, created_at) VALUES (?, ?, ?)`,
		u.Username, u.Token, database.FormatTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to get user ID: %w", err)
	}
	return u, nil
}

// Verify returns the user holding token.
func (s *Store) Verify(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	var (
		u         User
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, username, created_at FROM users WHERE token = ?`, token).
		Scan(&u.ID, &u.Username, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	u.CreatedAt = database.ParseTime(createdAt)
	return &u, nil
}

const userKey = "auth.user"

// Middleware rejects requests without a valid "Authorization: Bearer" token
// and stores the user on the gin context.
func Middleware(s *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))

		user, err := s.Verify(c.Request.Context(), token)
		if err != nil {
			status := http.StatusUnauthorized
			if !errors.Is(err, ErrMissingToken) && !errors.Is(err, ErrInvalidToken) {
				status = http.StatusInternalServerError
			}
			c.AbortWithStatusJSON(status, gin.H{"success": false, "error": err.Error()})
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// CurrentUser returns the user set by Middleware.
func CurrentUser(c *gin.Context) (*User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*User)
	return u, ok
}
