package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Profile is the serialized user profile held by a session.
type Profile struct {
	UserID      int64       `json:"user_id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Designation Designation `json:"designation"`
	CityIDs     []int64     `json:"city_ids,omitempty"`
	CategoryIDs []int64     `json:"category_ids,omitempty"`
}

// Session is the explicit authentication state for one bearer token.
// It is populated at login, consumed by every protected handler and torn down at logout.
type Session struct {
	Token     string    `json:"-"`
	Profile   Profile   `json:"profile"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionManager stores bearer sessions in Redis.
type SessionManager struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{client: client, ttl: ttl, now: time.Now}
}

// Create issues a new token for profile.
func (sm *SessionManager) Create(ctx context.Context, profile Profile) (*Session, error) {
	if profile.UserID == 0 {
		return nil, errors.New("session: profile without user id")
	}
	token, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("session: token: %w", err)
	}
	sess := &Session{
		Token:     token.String(),
		Profile:   profile,
		ExpiresAt: sm.now().Add(sm.ttl).UTC(),
	}
	if err := sm.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Load resolves the bearer token on r. A request without a token yields (nil, nil);
// an unknown or expired token yields ErrUnauthorized.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	token := BearerToken(r)
	if token == "" {
		return nil, nil
	}
	payload, err := sm.client.Get(ctx, sm.redisKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, err
	}
	sess.Token = token
	return &sess, nil
}

// UpdateProfile rewrites the stored profile, keeping the remaining TTL.
func (sm *SessionManager) UpdateProfile(ctx context.Context, sess *Session, profile Profile) error {
	if sess == nil {
		return ErrUnauthorized
	}
	sess.Profile = profile
	return sm.save(ctx, sess)
}

// Destroy deletes the session.
func (sm *SessionManager) Destroy(ctx context.Context, sess *Session) error {
	if sess == nil || sess.Token == "" {
		return nil
	}
	if err := sm.client.Del(ctx, sm.redisKey(sess.Token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

func (sm *SessionManager) save(ctx context.Context, sess *Session) error {
	ttl := sess.ExpiresAt.Sub(sm.now())
	if ttl <= 0 {
		return ErrUnauthorized
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return sm.client.Set(ctx, sm.redisKey(sess.Token), data, ttl).Err()
}

func (sm *SessionManager) redisKey(token string) string {
	return "session:" + token
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) < 7 || !strings.EqualFold(raw[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(raw[7:])
}
