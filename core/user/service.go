package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
)

var (
	// errors
	ErrAuthenticationFailed = errors.New("invalid email or password")
	ErrEmailExists          = errors.New("a user with this email already exists")
)

type (
	Service interface {
		Register(ctx context.Context, nu NewUser) (model.User, error)
		Authenticate(ctx context.Context, creds Credentials) (model.User, error)
		GetByID(ctx context.Context, id string) (model.User, error)
		GetByEmail(ctx context.Context, email string) (model.User, error)
		// SetPassword hashes and stores pwd without applying the password policy.
		SetPassword(ctx context.Context, id, pwd string) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
	}

	service struct {
		conf     *core.Config
		repo     model.UserRepository
		mailSvc  core.EmailService
		validate *validator.Validate
		tokens   tokenGenerator
	}
)

var _ Service = (*service)(nil)

func NewService(conf *core.Config, repo model.UserRepository, mailSvc core.EmailService, validate *validator.Validate) Service {
	return &service{
		conf:     conf,
		repo:     repo,
		mailSvc:  mailSvc,
		validate: validate,
		tokens: tokenGenerator{
			secretKey: []byte(conf.SecretKey),
			timeout:   conf.PasswordResetTimeoutDelta,
			now:       time.Now,
		},
	}
}

func (svc *service) checkUniqueness(ctx context.Context, email string) error {
	_, err := svc.repo.GetByEmail(ctx, email)
	switch errors.Cause(err) {
	case nil:
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	case core.ErrNotFound:
		return nil
	default:
		return err
	}
}

func (svc *service) Register(ctx context.Context, nu NewUser) (model.User, error) {
	if err := nu.Validate(svc.validate); err != nil {
		return model.User{}, err
	}
	if err := svc.checkUniqueness(ctx, nu.Email); err != nil {
		return model.User{}, err
	}

	usr := model.User{
		ID:             nu.ID,
		Name:           nu.Name,
		Email:          nu.Email,
		Role:           nu.Role,
		ChildIDs:       model.Strings{},
		ParentIDs:      model.Strings{},
		EarnedBadgeIDs: model.Strings{},
	}
	if usr.ID == "" {
		usr.ID = model.NewID()
	}
	if usr.Role == "" {
		usr.Role = model.RoleStudent
	}
	if nu.GradeLevel != "" {
		usr.GradeLevel.SetValid(nu.GradeLevel)
	}
	if nu.AcademicTrack != "" {
		usr.AcademicTrack.SetValid(nu.AcademicTrack)
	}

	hash, err := HashPassword(nu.Password)
	if err != nil {
		return model.User{}, errors.Wrap(err, "hashing password")
	}
	usr.PasswordHash = hash

	usr, err = svc.repo.Create(ctx, usr)
	if err != nil {
		return model.User{}, err
	}
	svc.sendWelcomeMail(usr)
	return usr, nil
}

func (svc *service) Authenticate(ctx context.Context, creds Credentials) (model.User, error) {
	if err := creds.Validate(svc.validate); err != nil {
		return model.User{}, err
	}
	usr, err := svc.repo.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return model.User{}, ErrAuthenticationFailed
		}
		return model.User{}, err
	}
	if err := CheckPassword(usr, creds.Password); err != nil {
		return model.User{}, ErrAuthenticationFailed
	}
	return usr, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (model.User, error) {
	return svc.repo.Get(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return svc.repo.GetByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) SetPassword(ctx context.Context, id, pwd string) error {
	hash, err := HashPassword(pwd)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}
	return svc.repo.SetPasswordHash(ctx, id, hash)
}

// RequestPasswordReset mails a reset link. Unknown emails are ignored so the
// endpoint cannot be used to probe accounts.
func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return nil
		}
		return err
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	if err := rp.Validate(svc.validate); err != nil {
		return err
	}

	invalidLink := core.NewValidationError(nil, core.FieldError{Field: "token", Error: "invalid or expired reset link"})
	id, err := decodeUID(rp.UID)
	if err != nil {
		return invalidLink
	}
	usr, err := svc.repo.Get(ctx, id)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return invalidLink
		}
		return err
	}
	if err := svc.tokens.verifyToken(usr, rp.Token); err != nil {
		return invalidLink
	}
	if err := passwordError(rp.Password, usr.Name, usr.Email); err != nil {
		return err
	}
	return svc.SetPassword(ctx, usr.ID, rp.Password)
}

func (svc *service) sendWelcomeMail(usr model.User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Welcome!",
		TemplateName: "welcome",
		TemplateData: map[string]interface{}{"Name": usr.Name, "Role": string(usr.Role)},
	})
}

func (svc *service) sendPasswordResetMail(usr model.User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":  usr.Name,
			"UID":   encodeUID(usr),
			"Token": svc.tokens.makeToken(usr),
		},
	})
}
