package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
	"github.com/trezcool/tutora/core/user"
)

type authApi struct {
	conf        *core.Config
	logger      core.Logger
	svc         user.Service
	provisioner model.Provisioner
	validate    *validator.Validate
}

func registerAuthAPI(g *echo.Group, deps ServerDeps) {
	api := authApi{
		conf:        deps.Conf,
		logger:      deps.Logger,
		svc:         deps.UserSvc,
		provisioner: deps.Provisioner,
		validate:    deps.Validate,
	}

	// un-authed endpoints
	// TODO: rate limit `/login` & `/password/*`
	g.POST("/setup", api.setup)
	g.POST("/login", api.login)
	g.POST("/register", api.register)
	g.POST("/password/reset-request", api.requestPasswordReset)
	g.POST("/password/reset", api.resetPassword)
}

func (api *authApi) loginResponse(ctx echo.Context, code int, usr model.User) error {
	token, err := GenerateToken(GetUserClaims(usr, api.conf), api.conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(code, LoginResponse{User: usr, Token: token})
}

func (api *authApi) setup(ctx echo.Context) error {
	if err := api.provisioner.Setup(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "provisioning storage")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Storage is ready."})
}

func (api *authApi) login(ctx echo.Context) error {
	var data user.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data)
	if err != nil {
		if err == user.ErrAuthenticationFailed {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "authenticating")
	}
	return api.loginResponse(ctx, http.StatusOK, usr)
}

func (api *authApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}

	// privileged accounts are created by coaches and admins
	if data.Role != "" && !data.Role.CanSelfRegister() {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: "must be Student or Parent"})
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return api.loginResponse(ctx, http.StatusCreated, usr)
}

func (api *authApi) requestPasswordReset(ctx echo.Context) error {
	var data user.RequestPasswordReset
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RequestPasswordReset")
	}
	data.Email = core.CleanString(data.Email, true /* lower */)
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil {
		// do not return errors to attackers
		api.logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := newCollectionAPI[model.User](deps.Repos.Users, deps.Validate)
	api.beforeDelete = func(ctx echo.Context, ids []string) error {
		// Say No to Suicide! ctxUser cannot delete themselves
		ctxUsr, err := getContextUser(ctx, deps.UserSvc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		for _, id := range ids {
			if id == ctxUsr.ID {
				return errHttpForbidden
			}
			// nor a user ranked above them
			usr, err := deps.Repos.Users.Get(ctx.Request().Context(), id)
			if err != nil {
				if errors.Cause(err) == core.ErrNotFound {
					continue
				}
				return errors.Wrap(err, "getting user")
			}
			if usr.Role.Priority() > ctxUsr.Role.Priority() {
				return errHttpForbidden
			}
		}
		return nil
	}
	api.beforeSave = func(ctx echo.Context, stored *model.User, usr model.User) error {
		ctxUsr, err := getContextUser(ctx, deps.UserSvc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		return checkUserWrite(ctxUsr, stored, usr)
	}
	api.register(g.Group("/users"), jwt, roleMiddleware(model.RoleCoach, model.RoleSuperAdmin))
}

// checkUserWrite vetoes ctxUsr saving usr over stored (nil on create).
// Only coaches and admins create users or edit others, nobody edits a user ranked above
// them, and ctxUser cannot set a role > their own.
func checkUserWrite(ctxUsr model.User, stored *model.User, usr model.User) error {
	if stored == nil || stored.ID != ctxUsr.ID {
		if !ctxUsr.CanManageStudents() {
			return errHttpForbidden
		}
		if stored != nil && stored.Role.Priority() > ctxUsr.Role.Priority() {
			return errHttpForbidden
		}
	}
	if stored != nil && stored.Role == usr.Role {
		return nil
	}
	if !ctxUsr.CanManageStudents() || usr.Role.Priority() > ctxUsr.Role.Priority() {
		return errHttpForbidden
	}
	return nil
}

type conversationApi struct {
	*collectionAPI[model.Conversation]
	repo model.ConversationRepository
}

func registerConversationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := conversationApi{
		collectionAPI: newCollectionAPI[model.Conversation](deps.Repos.Conversations, deps.Validate),
		repo:          deps.Repos.Conversations,
	}

	cg := g.Group("/conversations")
	cg.POST("/findOrCreate", api.findOrCreate, jwt)
	api.register(cg, jwt)
}

// findOrCreate returns the one-to-one conversation between two users, creating it if needed.
func (api *conversationApi) findOrCreate(ctx echo.Context) error {
	var data FindOrCreateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FindOrCreateRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	conv, err := api.repo.FindDirect(rctx, data.UserID1, data.UserID2)
	if err == nil {
		return ctx.JSON(http.StatusOK, conv)
	}
	if errors.Cause(err) != core.ErrNotFound {
		return errors.Wrap(err, "finding direct conversation")
	}

	conv = model.NewDirectConversation(model.NewID(), data.UserID1, data.UserID2)
	if conv, err = api.repo.Create(rctx, conv); err != nil {
		return errors.Wrap(err, "creating direct conversation")
	}
	return ctx.JSON(http.StatusCreated, conv)
}
