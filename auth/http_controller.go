package auth

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

// SessionKey is the locals key the bearer middleware stores the
// resolved session under.
const SessionKey = "auth:session"

// AuthController wires the account flows to their HTTP routes.
type AuthController struct {
	Debug          bool
	Logger         Logger
	Auther         *Auther
	Register       *RegisterUserHandler
	Activate       *ActivateAccountHandler
	ResetInit      *InitializePasswordResetHandler
	ResetFinalize  *FinalizePasswordResetHandler
	ChangePassword *ChangePasswordHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Auther in auth controller...")
	}

	if c.Register == nil || c.Activate == nil || c.ResetInit == nil || c.ResetFinalize == nil || c.ChangePassword == nil {
		panic("Missing command handlers in auth controller...")
	}

	return c
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithHandlers(auther *Auther, register *RegisterUserHandler, activate *ActivateAccountHandler, resetInit *InitializePasswordResetHandler, resetFinalize *FinalizePasswordResetHandler, change *ChangePasswordHandler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		c.Register = register
		c.Activate = activate
		c.ResetInit = resetInit
		c.ResetFinalize = resetFinalize
		c.ChangePassword = change
		return c
	}
}

// RegisterAuthRoutes mounts the account routes. The trailing-slash-less
// patterns also match their slashed variants under fiber's default
// routing.
func RegisterAuthRoutes(app fiber.Router, controller *AuthController) {
	app.Post("/register", controller.RegisterPost)
	app.Get("/activate/:uid/:token", controller.ActivateGet)

	app.Post("/login", controller.LoginPost)
	app.Post("/token/refresh", controller.RefreshPost)
	app.Get("/protected", controller.RequireAuth, controller.ProtectedGet)

	app.Post("/reset-password", controller.ResetRequestPost)
	app.Post("/reset-password-confirm/:uid/:token", controller.ResetConfirmPost)
	app.Post("/change-password", controller.RequireAuth, controller.ChangePasswordPost)
}

// RegisterRequest payload
type RegisterRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) RegisterPost(c *fiber.Ctx) error {
	payload := new(RegisterRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.respondError(c, badBodyError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.respondError(c, fieldErrors(err))
	}

	resp, err := a.Register.Execute(c.Context(), RegisterUserMessage{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		return a.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"msg": resp.Msg})
}

func (a *AuthController) ActivateGet(c *fiber.Ctx) error {
	err := a.Activate.Execute(c.Context(), ActivateAccountMessage{
		EncodedID: c.Params("uid"),
		Token:     c.Params("token"),
	})
	if err != nil {
		return a.respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"msg": activationConfirmation})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.respondError(c, badBodyError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.respondError(c, fieldErrors(err))
	}

	pair, err := a.Auther.Login(c.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(pair)
}

// RefreshRequest payload
type RefreshRequest struct {
	Refresh string `form:"refresh" json:"refresh"`
}

// Validate will run validation rules
func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Refresh,
			validation.Required,
		),
	)
}

func (a *AuthController) RefreshPost(c *fiber.Ctx) error {
	payload := new(RefreshRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.respondError(c, badBodyError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.respondError(c, fieldErrors(err))
	}

	access, err := a.Auther.Refresh(payload.Refresh)
	if err != nil {
		return a.respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"access": access})
}

func (a *AuthController) ProtectedGet(c *fiber.Ctx) error {
	claims, err := SessionFromContext(c)
	if err != nil {
		return a.respondError(c, err)
	}

	user, err := a.Auther.ResolveUser(c.Context(), claims)
	if err != nil {
		return a.respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"msg": fmt.Sprintf("%s, you have access to this protected view.", user.Email),
	})
}

// ResetRequestRequest payload
type ResetRequestRequest struct {
	Email string `form:"email" json:"email"`
}

func (a *AuthController) ResetRequestPost(c *fiber.Ctx) error {
	payload := new(ResetRequestRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.respondError(c, badBodyError(err))
	}

	resp, err := a.ResetInit.Execute(c.Context(), InitializePasswordResetMessage{
		Email:      payload.Email,
		SourceAddr: c.IP(),
	})
	if err != nil {
		return a.respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"msg": resp.Msg})
}

// ResetConfirmRequest payload
type ResetConfirmRequest struct {
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r ResetConfirmRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) ResetConfirmPost(c *fiber.Ctx) error {
	payload := new(ResetConfirmRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.respondError(c, badBodyError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.respondError(c, fieldErrors(err))
	}

	err := a.ResetFinalize.Execute(c.Context(), FinalizePasswordResetMessage{
		EncodedID:  c.Params("uid"),
		Token:      c.Params("token"),
		Password:   payload.Password,
		SourceAddr: c.IP(),
	})
	if err != nil {
		return a.respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"msg": resetConfirmation})
}

// ChangePasswordRequest payload
type ChangePasswordRequest struct {
	OldPassword string `form:"old_password" json:"old_password"`
	NewPassword string `form:"new_password" json:"new_password"`
}

// Validate will run validation rules
func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.OldPassword,
			validation.Required,
		),
		validation.Field(
			&r.NewPassword,
			validation.Required,
		),
	)
}

func (a *AuthController) ChangePasswordPost(c *fiber.Ctx) error {
	payload := new(ChangePasswordRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.respondError(c, badBodyError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.respondError(c, fieldErrors(err))
	}

	claims, err := SessionFromContext(c)
	if err != nil {
		return a.respondError(c, err)
	}

	userID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return a.respondError(c, ErrUnauthenticated)
	}

	err = a.ChangePassword.Execute(c.Context(), ChangePasswordMessage{
		UserID:      userID,
		OldPassword: payload.OldPassword,
		NewPassword: payload.NewPassword,
	})
	if err != nil {
		return a.respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"msg": changeConfirmation})
}

// RequireAuth resolves the bearer access credential and stores the
// session in locals. Missing, malformed, expired, and badly signed
// credentials all fail closed with the same 401 shape.
func (a *AuthController) RequireAuth(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)

	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return a.respondError(c, ErrUnauthenticated)
	}

	claims, err := a.Auther.SessionFromToken(raw)
	if err != nil {
		return a.respondError(c, err)
	}

	c.Locals(SessionKey, claims)

	return c.Next()
}

// SessionFromContext returns the session stored by RequireAuth.
func SessionFromContext(c *fiber.Ctx) (*SessionClaims, error) {
	claims, ok := c.Locals(SessionKey).(*SessionClaims)
	if !ok || claims == nil {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

// respondError translates every failure into its contractual response
// shape. Nothing internal leaks: unknown errors become a bare 500.
func (a *AuthController) respondError(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	if a.Debug {
		a.Logger.Debug(
			"request error category=%s text_code=%s metadata=%s",
			richErr.Category,
			richErr.TextCode,
			print.MaybePrettyJSON(richErr.Metadata),
		)
	}

	if fields, ok := richErr.Metadata["fields"].(map[string][]string); ok {
		return c.Status(fiber.StatusBadRequest).JSON(fields)
	}

	if messages, ok := richErr.Metadata["messages"].([]string); ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": messages})
	}

	switch richErr.Category {
	case goerrors.CategoryAuth:
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": richErr.Message})
	case goerrors.CategoryNotFound:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"msg": richErr.Message})
	case goerrors.CategoryRateLimit:
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"detail": richErr.Message})
	case goerrors.CategoryConflict, goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": richErr.Message})
	default:
		a.Logger.Error("unhandled error in auth controller: %s", richErr.Message)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}

func badBodyError(err error) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "Invalid request body").
		WithCode(goerrors.CodeBadRequest)
}

// fieldErrors converts ozzo validation output into the field-level 400
// body, one message list per offending field.
func fieldErrors(err error) error {
	verrs, ok := err.(validation.Errors)
	if !ok {
		return badBodyError(err)
	}

	fields := make(map[string][]string, len(verrs))
	for field, ferr := range verrs {
		fields[field] = []string{ferr.Error()}
	}

	return NewFieldErrors(fields)
}
