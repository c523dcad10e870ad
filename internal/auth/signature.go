package auth

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
)

// VerifySignature checks that signature is a valid signature over the
// challenge string, produced by the private key matching publicKey.
//
// publicKey is a base64-encoded PKIX (SubjectPublicKeyInfo) blob, the
// format mobile keystores export. Two key types are accepted:
//   - ECDSA P-256: signature is ASN.1 DER over SHA-256(challenge)
//     (Android Keystore, iOS Secure Enclave)
//   - Ed25519: signature is the raw 64-byte form over the challenge
//
// This is genuine asymmetric verification: the public key can confirm
// the signature but can never produce one, so knowing the challenge and
// the stored key is not enough to forge a login.
func VerifySignature(publicKey, signature, challenge string) error {
	keyDER, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil {
		return fmt.Errorf("auth: decoding public key: %w", err)
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("auth: decoding signature: %w", err)
	}

	parsed, err := x509.ParsePKIXPublicKey(keyDER)
	if err != nil {
		return fmt.Errorf("auth: parsing public key: %w", err)
	}

	switch key := parsed.(type) {
	case *ecdsa.PublicKey:
		digest := sha256.Sum256([]byte(challenge))
		if !ecdsa.VerifyASN1(key, digest[:], sig) {
			return errors.New("auth: signature does not match challenge")
		}
	case ed25519.PublicKey:
		if !ed25519.Verify(key, []byte(challenge), sig) {
			return errors.New("auth: signature does not match challenge")
		}
	default:
		return fmt.Errorf("auth: unsupported public key type %T", parsed)
	}

	return nil
}

// ValidatePublicKey reports whether publicKey parses as a key that
// VerifySignature can later use. Called at enrollment so a broken key is
// rejected up front instead of locking the user out at login.
func ValidatePublicKey(publicKey string) error {
	keyDER, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil {
		return fmt.Errorf("auth: decoding public key: %w", err)
	}
	parsed, err := x509.ParsePKIXPublicKey(keyDER)
	if err != nil {
		return fmt.Errorf("auth: parsing public key: %w", err)
	}
	switch parsed.(type) {
	case *ecdsa.PublicKey, ed25519.PublicKey:
		return nil
	}
	return fmt.Errorf("auth: unsupported public key type %T", parsed)
}
