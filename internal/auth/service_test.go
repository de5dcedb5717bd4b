package auth

import (
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-test-secret-test-secret"

func newTestService(t *testing.T) *Service {
	t.Helper()
	hash, err := argon2id.CreateHash("letmein99", argon2id.DefaultParams)
	require.NoError(t, err)
	svc, err := NewService(Config{
		Username:       "admin",
		PasswordHash:   hash,
		Secret:         testSecret,
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func TestLoginAndParse(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.Login("admin", "letmein99")
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)

	subject, err := svc.ParseAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "admin", subject)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Login("admin", "wrong-password")
	require.Error(t, err)

	_, err = svc.Login("somebody", "letmein99")
	require.Error(t, err)

	_, err = svc.Login("", "")
	require.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	svc := newTestService(t)
	svc.WithNow(func() time.Time { return time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC) })

	result, err := svc.Login("admin", "letmein99")
	require.NoError(t, err)

	svc.WithNow(func() time.Time { return time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC) })
	_, err = svc.ParseAccessToken(result.AccessToken)
	require.Error(t, err)
}

func TestParseRejectsForeignAlgorithm(t *testing.T) {
	svc := newTestService(t)

	tok, err := jwt.NewBuilder().
		Subject("admin").
		Issuer("backend-tindahan").
		Audience([]string{"tindahan-register"}).
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(time.Hour)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS384, []byte(testSecret)))
	require.NoError(t, err)

	_, err = svc.ParseAccessToken(string(signed))
	require.Error(t, err)
}

func TestParseRejectsTamperedToken(t *testing.T) {
	svc := newTestService(t)
	result, err := svc.Login("admin", "letmein99")
	require.NoError(t, err)

	tampered := result.AccessToken[:len(result.AccessToken)-2] + "xx"
	_, err = svc.ParseAccessToken(tampered)
	require.Error(t, err)
}
