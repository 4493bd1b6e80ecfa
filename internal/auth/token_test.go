package auth_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaleido-biosciences/cabinet-client/internal/auth"
	"github.com/kaleido-biosciences/cabinet-client/pkg/cabinet"
)

func mintToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "svc-user",
		"auth": "ROLE_USER",
		"exp":  expiresAt.Unix(),
	})

	signed, err := token.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	return signed
}

func TestToken_Expired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	buffer := 5 * time.Minute

	tests := []struct {
		name     string
		token    *auth.Token
		expected bool
	}{
		{
			name:     "nil token",
			token:    nil,
			expected: true,
		},
		{
			name:     "empty access token",
			token:    &auth.Token{ExpiresAt: now.Add(time.Hour)},
			expected: true,
		},
		{
			name:     "no expiry",
			token:    &auth.Token{AccessToken: "test-token"},
			expected: true,
		},
		{
			name:     "future expiry",
			token:    &auth.Token{AccessToken: "test-token", ExpiresAt: now.Add(time.Hour)},
			expected: false,
		},
		{
			name:     "past expiry",
			token:    &auth.Token{AccessToken: "test-token", ExpiresAt: now.Add(-time.Hour)},
			expected: true,
		},
		{
			name:     "expiring within buffer",
			token:    &auth.Token{AccessToken: "test-token", ExpiresAt: now.Add(4 * time.Minute)},
			expected: true,
		},
		{
			name:     "expiring exactly at buffer",
			token:    &auth.Token{AccessToken: "test-token", ExpiresAt: now.Add(buffer)},
			expected: true,
		},
		{
			name:     "expiring just outside buffer",
			token:    &auth.Token{AccessToken: "test-token", ExpiresAt: now.Add(buffer + time.Second)},
			expected: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.token.Expired(now, buffer))
		})
	}
}

func TestTokenStore(t *testing.T) {
	t.Parallel()

	store := auth.NewTokenStore()
	assert.Nil(t, store.Get())

	store.Set(&auth.Token{AccessToken: "test-token"})
	require.NotNil(t, store.Get())
	assert.Equal(t, "test-token", store.Get().AccessToken)

	store.Clear()
	assert.Nil(t, store.Get())
}

func TestTokenStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := auth.NewTokenStore()
	done := make(chan bool)

	for _, value := range []string{"token-1", "token-2"} {
		value := value
		go func() {
			for i := 0; i < 100; i++ {
				store.Set(&auth.Token{AccessToken: value})
			}

			done <- true
		}()
	}

	for i := 0; i < 2; i++ {
		go func() {
			for i := 0; i < 100; i++ {
				_ = store.Get()
			}

			done <- true
		}()
	}

	for i := 0; i < 4; i++ {
		<-done
	}

	final := store.Get()
	require.NotNil(t, final)
	assert.True(t, final.AccessToken == "token-1" || final.AccessToken == "token-2")
}

func TestExpiryFromToken(t *testing.T) {
	t.Parallel()

	t.Run("signed JWT", func(t *testing.T) {
		t.Parallel()

		exp := time.Now().Add(time.Hour).Truncate(time.Second)

		got, err := auth.ExpiryFromToken(mintToken(t, exp))
		require.NoError(t, err)
		assert.True(t, exp.Equal(got), "want %v got %v", exp, got)
	})

	t.Run("standard alphabet with padding", func(t *testing.T) {
		t.Parallel()

		payload := base64.StdEncoding.EncodeToString([]byte(`{"sub":"a?>","exp":1700000000}`))
		got, err := auth.ExpiryFromToken("fake." + payload + ".token")

		require.NoError(t, err)
		assert.Equal(t, int64(1700000000), got.Unix())
	})

	t.Run("url alphabet without padding", func(t *testing.T) {
		t.Parallel()

		payload := base64.RawURLEncoding.EncodeToString([]byte(`{"exp":1700000000}`))
		got, err := auth.ExpiryFromToken("fake." + payload + ".token")

		require.NoError(t, err)
		assert.Equal(t, int64(1700000000), got.Unix())
	})

	invalid := map[string]string{
		"two segments":   "only.two",
		"four segments":  "a.b.c.d",
		"not base64":     "fake.!!!!.token",
		"not json":       "fake." + base64.RawURLEncoding.EncodeToString([]byte("plain")) + ".token",
		"missing exp":    "fake." + base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"x"}`)) + ".token",
		"non-number exp": "fake." + base64.RawURLEncoding.EncodeToString([]byte(`{"exp":"soon"}`)) + ".token",
	}

	for name, raw := range invalid {
		name, raw := name, raw
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := auth.ExpiryFromToken(raw)
			require.Error(t, err)
			require.ErrorIs(t, err, cabinet.ErrTokenFormat)
			assert.True(t, cabinet.IsAuthenticationFailure(err))
		})
	}
}

func TestNewToken(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	raw := mintToken(t, exp)

	token, err := auth.NewToken(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, token.AccessToken)
	assert.True(t, exp.Equal(token.ExpiresAt))
}
