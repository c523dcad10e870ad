package auth

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ecdsaKeyPair(t *testing.T) (publicKey string, sign func(challenge string) string) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)

	return base64.StdEncoding.EncodeToString(der), func(challenge string) string {
		digest := sha256.Sum256([]byte(challenge))
		sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
		require.NoError(t, err)
		return base64.StdEncoding.EncodeToString(sig)
	}
}

func ed25519KeyPair(t *testing.T) (publicKey string, sign func(challenge string) string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)

	return base64.StdEncoding.EncodeToString(der), func(challenge string) string {
		return base64.StdEncoding.EncodeToString(ed25519.Sign(priv, []byte(challenge)))
	}
}

func TestVerifySignature_ECDSA(t *testing.T) {
	publicKey, sign := ecdsaKeyPair(t)

	assert.NoError(t, VerifySignature(publicKey, sign("challenge-123"), "challenge-123"))
	assert.Error(t, VerifySignature(publicKey, sign("challenge-123"), "different-challenge"))
}

func TestVerifySignature_Ed25519(t *testing.T) {
	publicKey, sign := ed25519KeyPair(t)

	assert.NoError(t, VerifySignature(publicKey, sign("challenge-123"), "challenge-123"))
	assert.Error(t, VerifySignature(publicKey, sign("challenge-123"), "different-challenge"))
}

func TestVerifySignature_WrongKey(t *testing.T) {
	publicKey, _ := ecdsaKeyPair(t)
	_, signOther := ecdsaKeyPair(t)

	assert.Error(t, VerifySignature(publicKey, signOther("challenge-123"), "challenge-123"))
}

func TestVerifySignature_GarbageInputs(t *testing.T) {
	publicKey, sign := ecdsaKeyPair(t)

	assert.Error(t, VerifySignature("not base64!!", sign("c"), "c"))
	assert.Error(t, VerifySignature(publicKey, "not base64!!", "c"))
	assert.Error(t, VerifySignature(base64.StdEncoding.EncodeToString([]byte("junk")), sign("c"), "c"))
}

func TestValidatePublicKey(t *testing.T) {
	ecKey, _ := ecdsaKeyPair(t)
	edKey, _ := ed25519KeyPair(t)

	assert.NoError(t, ValidatePublicKey(ecKey))
	assert.NoError(t, ValidatePublicKey(edKey))
	assert.Error(t, ValidatePublicKey("not a key"))
	assert.Error(t, ValidatePublicKey(base64.StdEncoding.EncodeToString([]byte("junk"))))
}
