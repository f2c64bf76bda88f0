package leads

import (
	"errors"

	"github.com/leaddesk/leaddesk/internal/shared"
)

var (
	// ErrNotFound indicates the lead does not exist or is outside the caller's scope.
	ErrNotFound = shared.ErrNotFound
	// ErrDuplicateMobile is returned by the store when the mobile is already taken.
	ErrDuplicateMobile = errors.New("leads: mobile number already exists")
)

// FieldErrors maps a request field to its message.
type FieldErrors = shared.FieldErrors

const duplicateMobileMessage = "Mobile number already exists"
