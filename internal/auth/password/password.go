// Package password wraps bcrypt and guards the credential write path against
// double hashing.
package password

import "golang.org/x/crypto/bcrypt"

// Credential carries a password value together with an explicit marker of
// whether it is still plaintext. The write path asks for Digest, which hashes
// at most once: a value loaded from storage is already a digest and passes
// through unchanged.
type Credential struct {
	value  string
	hashed bool
}

func FromPlaintext(v string) Credential {
	return Credential{value: v}
}

func FromHash(v string) Credential {
	return Credential{value: v, hashed: true}
}

func (c Credential) Digest() (string, error) {
	if c.hashed {
		return c.value, nil
	}
	b, err := bcrypt.GenerateFromPassword([]byte(c.value), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plain matches the stored bcrypt digest.
func Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
