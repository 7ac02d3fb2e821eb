package model

import (
	"strconv"
	"time"
)

// User is the local mirror of an account managed by the wider application.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsStaff   bool      `json:"is_staff"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName is what notification bodies call the user.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	return "user #" + strconv.FormatInt(u.ID, 10)
}
