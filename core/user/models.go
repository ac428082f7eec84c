package user

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gnarlyhq/gnarly/core"
)

type User struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,max=200"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Name = core.CleanString(nu.Name)
	return validate.Struct(nu)
}

// UpdateUser defines what information must be provided to replace an existing
// User. Updates are full replacements of email and name, same shape as creation.
type UpdateUser struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,max=200"`
}

func (uu *UpdateUser) Validate(validate *validator.Validate) error {
	uu.Email = core.CleanString(uu.Email, true /* lower */)
	uu.Name = core.CleanString(uu.Name)
	return validate.Struct(uu)
}
