package users

import (
	"time"

	"github.com/leaddesk/leaddesk/internal/shared"
)

// Status is the employment state of a user.
type Status string

const (
	StatusActive   Status = "Active"
	StatusDeactive Status = "Deactive"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusDeactive
}

// User represents an employee account.
type User struct {
	ID           int64              `json:"id"`
	Name         string             `json:"name"`
	Email        string             `json:"email"`
	Mobile       string             `json:"mobile"`
	Designation  shared.Designation `json:"designation"`
	Status       Status             `json:"status"`
	CityIDs      []int64            `json:"city_ids"`
	CategoryIDs  []int64            `json:"category_ids"`
	PasswordHash string             `json:"-"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	Targets      []Target           `json:"targets,omitempty"`
}

// Profile converts the user into the session profile.
func (u User) Profile() shared.Profile {
	return shared.Profile{
		UserID:      u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Designation: u.Designation,
		CityIDs:     append([]int64(nil), u.CityIDs...),
		CategoryIDs: append([]int64(nil), u.CategoryIDs...),
	}
}

// Target is a monthly sales target for one employee. Reporting only.
type Target struct {
	UserID      int64 `json:"user_id"`
	Month       int   `json:"month"`
	Year        int   `json:"year"`
	Target      int   `json:"target"`
	Achievement int   `json:"achievement"`
}

// ListFilter narrows ListUsers. Zero values match everything.
type ListFilter struct {
	Designation shared.Designation
	Status      Status
}

// CreateUserRequest is the payload for POST /api/users.
type CreateUserRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Email       string  `json:"email" validate:"required,email"`
	Mobile      string  `json:"mobile" validate:"required,mobile"`
	Password    string  `json:"password" validate:"required,min=8"`
	Designation string  `json:"designation" validate:"required,designation"`
	Status      string  `json:"status" validate:"omitempty,oneof=Active Deactive"`
	CityIDs     []int64 `json:"city_ids"`
	CategoryIDs []int64 `json:"category_ids"`
}

// UpdateUserRequest is the payload for PUT /api/users/{id}. Nil fields are left unchanged.
type UpdateUserRequest struct {
	Name        *string  `json:"name" validate:"omitempty,max=120"`
	Mobile      *string  `json:"mobile" validate:"omitempty,mobile"`
	Password    *string  `json:"password" validate:"omitempty,min=8"`
	Designation *string  `json:"designation" validate:"omitempty,designation"`
	Status      *string  `json:"status" validate:"omitempty,oneof=Active Deactive"`
	CityIDs     *[]int64 `json:"city_ids"`
	CategoryIDs *[]int64 `json:"category_ids"`
}

// TargetRequest is one entry of PUT /api/users/{id}/targets.
type TargetRequest struct {
	Month       int `json:"month" validate:"required,min=1,max=12"`
	Year        int `json:"year" validate:"required,min=2000,max=2100"`
	Target      int `json:"target" validate:"min=0"`
	Achievement int `json:"achievement" validate:"min=0"`
}
