package auth

import (
	"time"

	"github.com/leaddesk/leaddesk/internal/shared"
)

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	Name         string
	Designation  shared.Designation
	CityIDs      []int64
	CategoryIDs  []int64
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile converts the account into the session profile.
func (u User) Profile() shared.Profile {
	return shared.Profile{
		UserID:      u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Designation: u.Designation,
		CityIDs:     u.CityIDs,
		CategoryIDs: u.CategoryIDs,
	}
}
