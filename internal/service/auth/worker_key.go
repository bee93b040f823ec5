package auth

import "golang.org/x/crypto/bcrypt"

// WorkerKeyVerifier checks the static key a worker presents on the result
// callback endpoint against a configured hash.
type WorkerKeyVerifier interface {
	// Verify compares the presented key with the stored hash.
	// Returns ErrInvalidWorkerKey on mismatch.
	Verify(key string) error
}

// BcryptWorkerKeyVerifier implements WorkerKeyVerifier using bcrypt.
type BcryptWorkerKeyVerifier struct {
	keyHash string
}

// NewBcryptWorkerKeyVerifier creates a verifier for the given bcrypt hash.
func NewBcryptWorkerKeyVerifier(keyHash string) *BcryptWorkerKeyVerifier {
	return &BcryptWorkerKeyVerifier{keyHash: keyHash}
}

// Verify implements the WorkerKeyVerifier interface using bcrypt.
func (v *BcryptWorkerKeyVerifier) Verify(key string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(v.keyHash), []byte(key)); err != nil {
		return ErrInvalidWorkerKey
	}
	return nil
}

// HashWorkerKey produces the bcrypt hash to put in configuration for a
// chosen worker key.
func HashWorkerKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
