// Package model contains simple struct definitions shared across packages.
package model

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by stores when a document or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnknownOwner is returned when a document references a user the store
	// does not know about.
	ErrUnknownOwner = errors.New("unknown owner")
)

// Status describes where a document is in the review workflow. A type declared
// via "type X string" keeps string as the underlying representation while
// stopping arbitrary strings from being passed where a Status is expected.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is one of the three review states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// CanTransition reports whether an administrator may move a document from s
// to target. Only pending documents move; re-applying the current terminal
// state is allowed so the owner is notified again.
func (s Status) CanTransition(target Status) bool {
	if target == StatusPending || !target.Valid() {
		return false
	}
	return s == StatusPending || s == target
}

// Label is the human readable name of the status.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Awaiting review"
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	}
	return string(s)
}

// ParseStatus converts user input into a Status.
func ParseStatus(v string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	return s, s.Valid()
}

// Document is an uploaded file awaiting or past review. Struct tags such as
// `json:"user"` keep the wire names stable regardless of Go field names.
type Document struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user"`
	File   string `json:"file"`
	Status Status `json:"status"`
	// CreatedAt never changes after insert; UpdatedAt moves forward on every
	// status change.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReviewItem is a document joined with its owner for the admin listing.
type ReviewItem struct {
	Document
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ListFilter narrows the admin listing. Zero values mean "no filter".
type ListFilter struct {
	Status Status
	// Search matches username or email, case-insensitively.
	Search string
	Limit  int
	Offset int
}
