package model

import (
	"github.com/lib/pq"
)

// User role constants
const (
	RoleAdmin      = "admin"
	RoleSubAdmin   = "sub_admin"
	RoleSupervisor = "supervisor"
	RoleClient     = "client"
)

// User represents a system user. Notification preference columns are
// nullable: an unset preference means the user is opted in.
type User struct {
	Base
	Email             string         `json:"email" db:"email"`
	Name              string         `json:"name" db:"name"`
	Role              string         `json:"role" db:"role"`
	NotifyEmail       *bool          `json:"notify_email" db:"notify_email"`
	NotifyPush        *bool          `json:"notify_push" db:"notify_push"`
	PushToken         *string        `json:"-" db:"push_token"`
	AssignedLocations pq.StringArray `json:"assigned_locations" db:"assigned_locations"`
}

// Recipient returns the user flattened into a notification recipient.
func (u *User) Recipient() Recipient {
	r := Recipient{
		UserID:     u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       u.Role,
		EmailOptIn: u.NotifyEmail,
		PushOptIn:  u.NotifyPush,
	}
	if u.PushToken != nil {
		r.PushToken = *u.PushToken
	}
	return r
}
