package shared

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(t *testing.T, ttl time.Duration) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, ttl), mr
}

func TestSessionLifecycle(t *testing.T) {
	sm, mr := newTestSessions(t, time.Hour)
	ctx := context.Background()
	profile := Profile{UserID: 9, Name: "Tara", Designation: DesignationTelecaller, CityIDs: []int64{1}}

	sess, err := sm.Create(ctx, profile)
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	assert.True(t, mr.Exists("session:"+sess.Token))

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, profile, loaded.Profile)
	assert.Equal(t, sess.Token, loaded.Token)

	profile.Name = "Tara S"
	require.NoError(t, sm.UpdateProfile(ctx, loaded, profile))
	loaded, err = sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Tara S", loaded.Profile.Name)

	require.NoError(t, sm.Destroy(ctx, loaded))
	_, err = sm.Load(ctx, req)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSessionLoadWithoutToken(t *testing.T) {
	sm, _ := newTestSessions(t, time.Hour)
	sess, err := sm.Load(context.Background(), httptest.NewRequest("GET", "/", nil))
	assert.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSessionExpires(t *testing.T) {
	sm, mr := newTestSessions(t, time.Minute)
	ctx := context.Background()
	sess, err := sm.Create(ctx, Profile{UserID: 1, Designation: DesignationAdmin})
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "bearer "+sess.Token)
	_, err = sm.Load(ctx, req)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSessionRequiresUser(t *testing.T) {
	sm, _ := newTestSessions(t, time.Hour)
	_, err := sm.Create(context.Background(), Profile{Designation: DesignationAdmin})
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":              "",
		"Basic abc":     "",
		"Bearer abc":    "abc",
		"bearer  xyz  ": "xyz",
	}
	for header, want := range cases {
		req := httptest.NewRequest("GET", "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, BearerToken(req), header)
	}
}

func TestProfileFromContext(t *testing.T) {
	_, ok := ProfileFromContext(context.Background())
	assert.False(t, ok)

	ctx := ContextWithSession(context.Background(), &Session{Profile: Profile{UserID: 3}})
	p, ok := ProfileFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(3), p.UserID)
}
