package http

import (
	"fmt"
	"net/http"

	"github.com/fixora/spaceships/pkg/apperror"
)

// Roles of the API principals
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// dummyPassword is verified for unknown usernames so a miss costs as much
// as a wrong password
const dummyPassword = "spaceships-unknown-principal"

// PasswordService hashes and verifies principal passwords
type PasswordService interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, hash string) (bool, error)
}

// Credential is a principal as configured, with a plain password
type Credential struct {
	Username string
	Password string
	Role     string
}

// Principal is the authenticated caller of a request
type Principal struct {
	Username string
	Role     string
}

type principalRecord struct {
	hash string
	role string
}

// BasicAuth authenticates requests with HTTP Basic against a fixed set of
// principals whose passwords are hashed once at start-up.
type BasicAuth struct {
	passwords  PasswordService
	principals map[string]principalRecord
	dummyHash  string
	realm      string
}

// NewBasicAuth hashes every credential and fails on a duplicate username
func NewBasicAuth(passwords PasswordService, credentials ...Credential) (*BasicAuth, error) {
	principals := make(map[string]principalRecord, len(credentials))
	for _, cred := range credentials {
		if _, exists := principals[cred.Username]; exists {
			return nil, fmt.Errorf("duplicate principal %q", cred.Username)
		}

		hash, err := passwords.HashPassword(cred.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password for %q: %w", cred.Username, err)
		}
		principals[cred.Username] = principalRecord{hash: hash, role: cred.Role}
	}

	dummyHash, err := passwords.HashPassword(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return &BasicAuth{
		passwords:  passwords,
		principals: principals,
		dummyHash:  dummyHash,
		realm:      "spaceships",
	}, nil
}

// Authenticate checks a username and password pair
func (a *BasicAuth) Authenticate(username, password string) (*Principal, bool) {
	record, ok := a.principals[username]
	if !ok {
		_, _ = a.passwords.VerifyPassword(password, a.dummyHash)
		return nil, false
	}

	valid, err := a.passwords.VerifyPassword(password, record.hash)
	if err != nil || !valid {
		return nil, false
	}

	return &Principal{Username: username, Role: record.role}, true
}

// Middleware rejects requests without valid Basic credentials
func (a *BasicAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			a.unauthorized(w)
			return
		}

		principal, ok := a.Authenticate(username, password)
		if !ok {
			a.unauthorized(w)
			return
		}

		if state := stateFromContext(r.Context()); state != nil {
			state.principal = principal
		}
		next.ServeHTTP(w, r)
	})
}

func (a *BasicAuth) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Basic realm=%q`, a.realm))
	writeErrorResponse(w, apperror.ErrUnauthorized)
}
