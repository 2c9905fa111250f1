package user

import (
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
)

func HashPassword(pwd string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
}

func CheckPassword(usr model.User, pwd string) error {
	return bcrypt.CompareHashAndPassword(usr.PasswordHash, []byte(pwd))
}

// NewUser contains information needed to register a new User.
// ID is optional: clients may send their own UUID.
type NewUser struct {
	ID              string     `json:"id"`
	Name            string     `json:"name" validate:"required,notblank"`
	Email           string     `json:"email" validate:"required,email"`
	Role            model.Role `json:"role" validate:"omitempty,oneof=Student Coach SuperAdmin Parent"`
	Password        string     `json:"password" validate:"required"`
	PasswordConfirm string     `json:"passwordConfirm" validate:"omitempty,eqfield=Password"`
	GradeLevel      string     `json:"gradeLevel"`
	AcademicTrack   string     `json:"academicTrack"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	return validate.Struct(nu)
}

type Credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (c *Credentials) Validate(validate *validator.Validate) error {
	c.Email = core.CleanString(c.Email, true /* lower */)
	return validate.Struct(c)
}

type RequestPasswordReset struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp *ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}
