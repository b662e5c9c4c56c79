package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathima-sithara/quickads/internal/apperr"
)

func keyPair(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	return priv, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

func sign(t *testing.T, priv *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(priv)
	require.NoError(t, err)
	return s
}

func TestVerifyExtractsPrincipal(t *testing.T) {
	priv, pub := keyPair(t)
	v, err := NewVerifierFromPEM(pub)
	require.NoError(t, err)

	tok := sign(t, priv, jwt.MapClaims{
		"sub":   "u-7",
		"role":  "admin",
		"phone": "+94715297881",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	p, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-7", p.UserID)
	assert.True(t, p.HasRole("admin"))
	assert.NoError(t, p.RequireRole("admin"))
}

func TestVerifyRejectsExpiredAndForeignTokens(t *testing.T) {
	priv, pub := keyPair(t)
	other, _ := keyPair(t)
	v, err := NewVerifierFromPEM(pub)
	require.NoError(t, err)

	expired := sign(t, priv, jwt.MapClaims{"user_id": "u", "exp": time.Now().Add(-time.Minute).Unix()})
	_, err = v.Verify(expired)
	assert.Error(t, err)

	foreign := sign(t, other, jwt.MapClaims{"user_id": "u"})
	_, err = v.Verify(foreign)
	assert.Error(t, err)

	noUser := sign(t, priv, jwt.MapClaims{"role": "admin"})
	_, err = v.Verify(noUser)
	assert.Error(t, err)
}

func TestDevVerifierSkipsSignature(t *testing.T) {
	v, err := NewVerifier("")
	require.NoError(t, err)

	priv, _ := keyPair(t)
	p, err := v.Verify(sign(t, priv, jwt.MapClaims{"user_uuid": "abc", "roles": []string{"seller"}}))
	require.NoError(t, err)
	assert.Equal(t, "abc", p.UserID)
	assert.True(t, p.HasRole("seller"))
}

func TestPrincipalChecks(t *testing.T) {
	assert.ErrorIs(t, Anonymous.RequireUser(), apperr.ErrUnauthorized)
	assert.ErrorIs(t, Principal{UserID: "u"}.RequireRole("admin"), apperr.ErrForbidden)
	assert.ErrorIs(t, Anonymous.RequireRole("admin"), apperr.ErrUnauthorized)
}
