package room

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signCredential(t *testing.T, secret string, claims CredentialClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuthenticateCredential(t *testing.T) {
	svc, _ := newTestService(t, testConfig())
	ctx := context.Background()

	credential := signCredential(t, "test-secret", CredentialClaims{
		UserId:    "user-42",
		Username:  "Rin",
		AvatarUrl: "https://cdn.example/rin.png",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	resp, err := svc.Authenticate(ctx, &AuthenticateParams{Credential: credential})
	require.NoError(t, err)
	assert.Equal(t, Identity{Id: "user-42", Name: "Rin", AvatarUrl: "https://cdn.example/rin.png"}, resp.Identity)
	assert.NotEmpty(t, resp.SessionToken)

	resumed, err := svc.Authenticate(ctx, &AuthenticateParams{SessionToken: resp.SessionToken})
	require.NoError(t, err)
	assert.Equal(t, resp, resumed)
}

func TestAuthenticateRejects(t *testing.T) {
	svc, _ := newTestService(t, testConfig())
	ctx := context.Background()

	cases := map[string]*AuthenticateParams{
		"wrong secret": {Credential: signCredential(t, "other", CredentialClaims{UserId: "u"})},
		"expired": {Credential: signCredential(t, "test-secret", CredentialClaims{
			UserId: "u",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
		})},
		"missing user id": {Credential: signCredential(t, "test-secret", CredentialClaims{Username: "x"})},
		"guest user id":   {Credential: signCredential(t, "test-secret", CredentialClaims{UserId: "guest-1"})},
		"garbage":         {Credential: "not.a.jwt"},
		"unknown session": {SessionToken: "nope"},
		"guest no name":   {Username: "   "},
		"guest long name": {Username: strings.Repeat("a", 33)},
	}

	for name, params := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Authenticate(ctx, params)
			assert.ErrorIs(t, err, ErrNotAuthenticated)
		})
	}
}

func TestAuthenticateGuest(t *testing.T) {
	svc, s := newTestService(t, testConfig())
	ctx := context.Background()

	resp, err := svc.Authenticate(ctx, &AuthenticateParams{Username: "  Mika ", AvatarUrl: "a.png"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.Identity.Id, "guest-"))
	assert.Equal(t, "Mika", resp.Identity.Name)
	assert.True(t, resp.Identity.IsGuest)
	assert.Equal(t, time.Hour, s.TTL("session:"+resp.SessionToken))

	// a dropped guest keeps its identity only for the grace window
	c := &testClient{identity: resp.Identity, token: resp.SessionToken, conn: newRecorder()}
	require.NoError(t, svc.ConnectMember(ctx, &ConnectMemberParams{Identity: c.identity, SessionToken: c.token, Conn: c.conn}))
	require.NoError(t, svc.DisconnectMember(ctx, &DisconnectMemberParams{MemberId: c.id(), ConnId: c.conn.Id(), SessionToken: c.token}))
	assert.Equal(t, 30*time.Second, s.TTL("session:"+resp.SessionToken))

	s.FastForward(31 * time.Second)
	_, err = svc.Authenticate(ctx, &AuthenticateParams{SessionToken: resp.SessionToken})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}
