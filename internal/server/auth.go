package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/griotlabs/griot/internal/store"
)

// contextKey is a private type for request context values.
type contextKey string

// userIDKey carries the authenticated user's ID in the request context.
const userIDKey contextKey = "userID"

// defaultTokenTTL applies when the config leaves token_ttl unset.
const defaultTokenTTL = 72 * time.Hour

// minPasswordLength is the shortest accepted password.
const minPasswordLength = 8

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Auth issues and verifies JWT bearer tokens backed by bcrypt password
// hashes.
type Auth struct {
	secret []byte
	ttl    time.Duration
	users  store.UserStore
}

// NewAuth creates an Auth manager. A zero ttl falls back to defaultTokenTTL.
func NewAuth(secret string, ttl time.Duration, users store.UserStore) *Auth {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Auth{secret: []byte(secret), ttl: ttl, users: users}
}

// credentials is the request body for register and login.
type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleRegister creates a new learner account.
//
//	POST /api/v1/auth/register  {"username": ..., "password": ...}
func (a *Auth) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" {
		respondError(w, http.StatusBadRequest, "username is required")
		return
	}
	if len(creds.Password) < minPasswordLength {
		respondError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	u, err := a.users.CreateUser(r.Context(), creds.Username, string(hash))
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			respondError(w, http.StatusConflict, "username already taken")
			return
		}
		slog.Error("create user", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"id":       u.ID,
		"username": u.Username,
	})
}

// handleLogin verifies credentials and issues a signed token.
//
//	POST /api/v1/auth/login  {"username": ..., "password": ...}
func (a *Auth) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := a.users.UserByName(r.Context(), creds.Username)
	if err != nil {
		// Same response for unknown user and wrong password.
		respondError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(creds.Password)); err != nil {
		respondError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	token, expiresAt, err := a.issueToken(u.ID)
	if err != nil {
		slog.Error("sign token", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}

// issueToken signs a fresh HS256 token for userID.
func (a *Auth) issueToken(userID string) (string, time.Time, error) {
	expiresAt := time.Now().Add(a.ttl)
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// authenticated user ID in the request context.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			respondError(w, http.StatusUnauthorized, "authorization header required")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			respondError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(*jwt.Token) (any, error) {
			return a.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				respondError(w, http.StatusUnauthorized, "token expired")
			} else {
				respondError(w, http.StatusUnauthorized, "invalid token")
			}
			return
		}
		if !token.Valid || claims.UserID == "" {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userID extracts the authenticated user's ID from ctx. The empty string
// means the request did not pass the auth middleware.
func userID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
