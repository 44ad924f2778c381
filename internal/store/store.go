package store

import "resumelens/pkg/domain"

// CredentialStore persists user accounts. Insert-if-absent plus lookup is
// the whole contract; accounts are never mutated after creation.
type CredentialStore interface {
	CreateUser(domain.User) error
	GetUserByUsername(username string) (domain.User, bool, error)
}

// SessionStore persists per-client session records keyed by session id.
type SessionStore interface {
	Get(id string) (domain.Session, bool, error)
	Save(domain.Session) error
	Delete(id string) error
}
