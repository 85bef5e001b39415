package types

import (
	"regexp"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// OrgID identifies a tenant organization
type OrgID string

var orgIDPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Validate checks if the OrgID is valid
func (o OrgID) Validate() error {
	if o == "" {
		return goerr.New("organization ID cannot be empty")
	}
	if !orgIDPattern.MatchString(string(o)) {
		return goerr.New("organization ID must be lowercase alphanumeric with hyphens", goerr.V("id", o))
	}
	return nil
}

// String returns the string representation of OrgID
func (o OrgID) String() string {
	return string(o)
}

// UserID identifies an end user within an organization
type UserID string

// String returns the string representation of UserID
func (u UserID) String() string {
	return string(u)
}

// SessionID identifies a chat session
type SessionID string

// NewSessionID generates a new time-ordered SessionID
func NewSessionID() SessionID {
	return SessionID(uuid.Must(uuid.NewV7()).String())
}

// String returns the string representation of SessionID
func (s SessionID) String() string {
	return string(s)
}

// EntryID identifies a knowledge entry
type EntryID string

// NewEntryID generates a new random EntryID
func NewEntryID() EntryID {
	return EntryID(uuid.New().String())
}

// String returns the string representation of EntryID
func (e EntryID) String() string {
	return string(e)
}
