package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/campus-events/backend/internal/middleware"
	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/pkg/apperrors"
)

// RevocationStore remembers revoked token IDs until their tokens expire.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// UserLookup loads the current state of a session's user.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// Sessions issues, verifies and revokes bearer tokens. Verification reloads
// the user so a role change or deletion takes effect on the next request.
type Sessions struct {
	jwt     *JWTService
	revoked RevocationStore
	users   UserLookup
}

// NewSessions creates a session manager.
func NewSessions(jwt *JWTService, revoked RevocationStore, users UserLookup) *Sessions {
	return &Sessions{jwt: jwt, revoked: revoked, users: users}
}

// Issue creates a token for the user.
func (s *Sessions) Issue(u *models.User) (string, error) {
	token, _, err := s.jwt.Generate(u.ID, u.Email, u.Role)
	if err != nil {
		return "", apperrors.Internal("failed to generate token", err)
	}
	return token, nil
}

// Verify implements middleware.SessionVerifier.
func (s *Sessions) Verify(ctx context.Context, token string) (middleware.Identity, error) {
	claims, err := s.jwt.Validate(token)
	if err != nil {
		return middleware.Identity{}, err
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return middleware.Identity{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return middleware.Identity{}, ErrInvalidToken
	}

	identity := middleware.Identity{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if s.users != nil {
		u, err := s.users.GetByID(ctx, claims.UserID)
		if errors.Is(err, apperrors.ErrNotFound) {
			return middleware.Identity{}, ErrInvalidToken
		}
		if err != nil {
			return middleware.Identity{}, err
		}
		identity.Email = u.Email
		identity.Role = u.Role
	}
	return identity, nil
}

// Revoke invalidates the identity's token until it would have expired.
func (s *Sessions) Revoke(ctx context.Context, identity middleware.Identity) error {
	ttl := time.Until(identity.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.revoked.Revoke(ctx, identity.TokenID, ttl); err != nil {
		return apperrors.Internal("failed to revoke session", err)
	}
	return nil
}

const revokedKeyPrefix = "session:revoked:"

// RedisRevocationStore keeps revoked token IDs in Redis with a TTL.
type RedisRevocationStore struct {
	client goredis.UniversalClient
}

func NewRedisRevocationStore(client goredis.UniversalClient) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return s.client.Set(ctx, revokedKeyPrefix+tokenID, 1, ttl).Err()
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryRevocationStore keeps revoked token IDs in process memory. It is used
// when Redis is not configured and does not survive restarts.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{revoked: map[string]time.Time{}, now: time.Now}
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, until := range s.revoked {
		if !now.Before(until) {
			delete(s.revoked, id)
		}
	}
	s.revoked[tokenID] = now.Add(ttl)
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.revoked[tokenID]
	return ok && s.now().Before(until), nil
}
