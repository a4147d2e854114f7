package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def", "abc.def", false},
		{"bearer   abc ", "abc", false},
		{"", "", true},
		{"Basic abc", "", true},
		{"Bearer ", "", true},
		{"abc", "", true},
	}
	for _, tt := range tests {
		got, err := ExtractToken(tt.header)
		if tt.wantErr {
			assert.Error(t, err, tt.header)
			continue
		}
		require.NoError(t, err, tt.header)
		assert.Equal(t, tt.want, got)
	}
}

func TestIssueAndVerify(t *testing.T) {
	a, err := NewTokenAuth("secret", time.Minute)
	require.NoError(t, err)

	token, err := a.IssueAccessToken("seller-1", "seller@example.com", "user")
	require.NoError(t, err)

	user, err := a.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, &User{ID: "seller-1", Email: "seller@example.com", Role: "user"}, user)

	_, err = a.IssueAccessToken("", "x@y.z", "user")
	assert.Error(t, err)
}

func TestVerify_Rejects(t *testing.T) {
	a, err := NewTokenAuth("secret", time.Minute)
	require.NoError(t, err)
	other, err := NewTokenAuth("different", time.Minute)
	require.NoError(t, err)

	forged, err := other.IssueAccessToken("seller-1", "", "user")
	require.NoError(t, err)
	_, err = a.VerifyAccessToken(forged)
	assert.Error(t, err, "wrong key")

	token, err := a.IssueAccessToken("seller-1", "", "user")
	require.NoError(t, err)
	a.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = a.VerifyAccessToken(token)
	assert.Error(t, err, "expired")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "seller-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = a.VerifyAccessToken(unsigned)
	assert.Error(t, err, "alg none")
}

func TestNewTokenAuth_RequiresSecret(t *testing.T) {
	_, err := NewTokenAuth("", 0)
	assert.Error(t, err)
}
