package auth

import (
	"os"
	"strings"
	"time"
)

const (
	envBearerToken = "TWITSENT_BEARER_TOKEN"
	envElevated    = "TWITSENT_ELEVATED"

	// EnvironmentName is the name the environment credential is listed under.
	EnvironmentName = "environment"
)

// EnvironmentStore exposes TWITSENT_BEARER_TOKEN as a read-only credential
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(*Credential) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment token for an empty name or EnvironmentName.
func (e *EnvironmentStore) Retrieve(name string) (*Credential, error) {
	token := os.Getenv(envBearerToken)
	if token == "" || (name != "" && name != EnvironmentName) {
		return nil, ErrCredentialsNotFound
	}

	return &Credential{
		Name:         EnvironmentName,
		BearerToken:  token,
		Elevated:     strings.EqualFold(os.Getenv(envElevated), "true"),
		LastModified: time.Now(),
	}, nil
}

// List returns a single credential if the token is set
func (e *EnvironmentStore) List() ([]*Credential, error) {
	cred, err := e.Retrieve("")
	if err != nil {
		return []*Credential{}, nil
	}
	return []*Credential{cred}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(string) error {
	return ErrStoreUnavailable
}

// Exists checks if the environment token is set
func (e *EnvironmentStore) Exists(string) bool {
	return os.Getenv(envBearerToken) != ""
}
