package pwdauth

import "golang.org/x/crypto/bcrypt"

// Hasher is used to hash passwords and compare hashes against candidate
// passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) bool
}

// BcryptHasher hashes passwords with bcrypt at the default cost.
type BcryptHasher struct{}

func (h BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h BcryptHasher) Compare(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// TestHasher is an insecure hasher for tests. The hash is the password
// itself, so fixtures can be written inline.
type TestHasher struct{}

func (h TestHasher) Hash(password string) (string, error) {
	return password, nil
}

func (h TestHasher) Compare(hash string, password string) bool {
	return hash == password
}
