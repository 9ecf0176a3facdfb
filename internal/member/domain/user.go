package domain

import "time"

// User is a directory mirror of an identity in the external auth system.
// memberd never stores credentials; the auth service pushes these records.
type User struct {
	ID        string
	Email     string // normalized to lower case on write
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
