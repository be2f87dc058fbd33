package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier_IssueAndVerify(t *testing.T) {
	v := NewVerifier("secret")
	token, err := v.Issue(Identity{ID: "user-1", Attributes: map[string]string{"email": "a@b.c", "custom:nickname": "Ann"}}, time.Hour)
	require.NoError(t, err)

	id, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.ID)
	assert.Equal(t, "Ann", id.Nickname())
	assert.Equal(t, "a@b.c", id.LoginID())
}

func TestVerifier_Rejects(t *testing.T) {
	v := NewVerifier("secret")

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewVerifier("other").Issue(Identity{ID: "u"}, time.Hour)
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := v.Issue(Identity{ID: "u"}, -time.Minute)
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "u", Issuer: issuer}).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		_, err := v.Issue(Identity{}, time.Hour)
		assert.ErrorIs(t, err, ErrNoIdentity)
	})
}

func TestIdentity_AttributeFallbacks(t *testing.T) {
	id := Identity{ID: "u", Attributes: map[string]string{"nickname": "nick", "login_id": "login"}}
	assert.Equal(t, "nick", id.Nickname())
	assert.Equal(t, "login", id.LoginID())
	assert.Equal(t, "", Identity{ID: "u"}.Nickname())
}

func TestEvents_EmitInOrder(t *testing.T) {
	hub := NewEvents()
	var got []string
	hub.Listen(func(ctx context.Context, ev Event) { got = append(got, "first:"+string(ev.Type)) })
	hub.Listen(func(ctx context.Context, ev Event) { got = append(got, "second:"+ev.Identity.ID) })

	hub.Emit(context.Background(), Event{Type: SignedIn, Identity: Identity{ID: "u1"}})
	assert.Equal(t, []string{"first:signedIn", "second:u1"}, got)
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{ID: "u1"})
	id, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", id.ID)
}
