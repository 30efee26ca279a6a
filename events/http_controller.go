package events

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/planora/planora/auth"
)

// Controller serves the calendar resources for the authenticated user.
type Controller struct {
	Logger auth.Logger
	Repo   *Repository
}

func NewController(repo *Repository, logger auth.Logger) *Controller {
	if repo == nil {
		panic("Missing repository in events controller...")
	}

	if logger == nil {
		logger = auth.DefaultLogger()
	}

	return &Controller{
		Logger: logger,
		Repo:   repo,
	}
}

// RegisterRoutes mounts the calendar routes behind the given auth
// middleware.
func RegisterRoutes(app fiber.Router, controller *Controller, requireAuth fiber.Handler) {
	categories := app.Group("/categories", requireAuth)
	categories.Get("/", controller.CategoryList)
	categories.Post("/", controller.CategoryCreate)
	categories.Get("/:id", controller.CategoryGet)
	categories.Put("/:id", controller.CategoryUpdate)
	categories.Delete("/:id", controller.CategoryDelete)

	evts := app.Group("/events", requireAuth)
	evts.Get("/", controller.EventList)
	evts.Post("/", controller.EventCreate)
	evts.Get("/:id", controller.EventGet)
	evts.Put("/:id", controller.EventUpdate)
	evts.Delete("/:id", controller.EventDelete)
}

// CategoryRequest payload
type CategoryRequest struct {
	Name  string `form:"name" json:"name"`
	Color string `form:"color" json:"color"`
}

// Validate will run validation rules
func (r CategoryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Name,
			validation.Required,
			validation.Length(1, 100),
		),
		validation.Field(
			&r.Color,
			is.HexColor,
		),
	)
}

func (e *Controller) CategoryList(c *fiber.Ctx) error {
	userID, err := ownerID(c)
	if err != nil {
		return e.respondError(c, err)
	}

	categories, err := e.Repo.ListCategories(c.Context(), userID)
	if err != nil {
		return e.respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(categories)
}

func (e *Controller) CategoryCreate(c *fiber.Ctx) error {
	userID, err := ownerID(c)
	if err != nil {
		return e.respondError(c, err)
	}

	payload := new(CategoryRequest)
	if err := c.BodyParser(payload); err != nil {
		return e.respondError(c, badBodyError(err))
	}

	if err := payload.Validate(); err != nil {
		return e.respondError(c, fieldErrors(err))
	}

	category, err := e.Repo.CreateCategory(c.Context(), &Category{
		Name:   payload.Name,
		Color:  payload.Color,
		UserID: userID,
	})
	if err != nil {
		return e.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(category)
}

func (e *Controller) CategoryGet(c *fiber.Ctx) error {
	userID, err := ownerID(c)
	if err != nil {
		return e.respondError(c, err)
	}

	id, err := resourceID(c)
	if err != nil {
		return e.respondError(c, err)
	}

	category, err := e.Repo.GetCategory(c.Context(), userID, id)
	if err != nil {
		return e.respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(category)
}

func (e *Controller) CategoryUpdate(c *fiber.Ctx) error {
	userID, err := ownerID(c)
	if err != nil {
		return e.respondError(c, err)
	}

	id, err := resourceID(c)
	if err != nil {
		return e.respondError(c, err)
	}

	payload := new(CategoryRequest)
	if err := c.BodyParser(payload); err != nil {
		return e.respondError(c, badBodyError(err))
	}

	if err := payload.Validate(); err != nil {
		return e.respondError(c, fieldErrors(err))
	}

	color := payload.Color
	if color == "" {
		color = DefaultColor
	}

	category, err := e.Repo.UpdateCategory(c.Context(), userID, &Category{
		ID:    id,
		Name:  payload.Name,
		Color: color,
	})
	if err != nil {
		return e.respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(category)
}

func (e *Controller) CategoryDelete(c *fiber.Ctx) error {
	userID, err := ownerID(c)
	if err != nil {
		return e.respondError(c, err)
	}

	id, err := resourceID(c)
	if err != nil {
		return e.respondError(c, err)
	}

	if err := e.Repo.DeleteCategory(c.Context(), userID, id); err != nil {
		return e.respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// EventRequest payload
type EventRequest struct {
	Title       string    `form:"title" json:"title"`
	Description string    `form:"description" json:"description"`
	StartDate   time.Time `form:"start_date" json:"start_date"`
	EndDate     time.Time `form:"end_date" json:"end_date"`
	Category    string    `form:"category" json:"category"`
}

// Validate will run validation rules
func (r EventRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Title,
			validation.Required,
			validation.Length(1, 255),
		),
		validation.Field(
			&r.StartDate,
			validation.Required,
		),
		validation.Field(
			&r.EndDate,
			validation.Required,
		),
		validation.Field(
			&r.Category,
			is.UUIDv4,
		),
	)
}

func (e *Controller) EventList(c *fiber.Ctx) error {
	userID, err := ownerID(c)
	if err != nil {
		return e.respondError(c, err)
	}

	evts, err := e.Repo.ListEvents(c.Context(), userID)
	if err != nil {
		return e.respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(evts)
}

func (e *Controller) EventCreate(c *fiber.Ctx) error {
	userID, err := ownerID(c)
	if err != nil {
		return e.respondError(c, err)
	}

	event, err := e.eventFromRequest(c, userID, uuid.Nil)
	if err != nil {
		return e.respondError(c, err)
	}

	event, err = e.Repo.CreateEvent(c.Context(), event)
	if err != nil {
		return e.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(event)
}

func (e *Controller) EventGet(c *fiber.Ctx) error {
	userID, err := ownerID(c)
	if err != nil {
		return e.respondError(c, err)
	}

	id, err := resourceID(c)
	if err != nil {
		return e.respondError(c, err)
	}

	event, err := e.Repo.GetEvent(c.Context(), userID, id)
	if err != nil {
		return e.respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(event)
}

func (e *Controller) EventUpdate(c *fiber.Ctx) error {
	userID, err := ownerID(c)
	if err != nil {
		return e.respondError(c, err)
	}

	id, err := resourceID(c)
	if err != nil {
		return e.respondError(c, err)
	}

	event, err := e.eventFromRequest(c, userID, id)
	if err != nil {
		return e.respondError(c, err)
	}

	event, err = e.Repo.UpdateEvent(c.Context(), userID, event)
	if err != nil {
		return e.respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(event)
}

func (e *Controller) EventDelete(c *fiber.Ctx) error {
	userID, err := ownerID(c)
	if err != nil {
		return e.respondError(c, err)
	}

	id, err := resourceID(c)
	if err != nil {
		return e.respondError(c, err)
	}

	if err := e.Repo.DeleteEvent(c.Context(), userID, id); err != nil {
		return e.respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (e *Controller) eventFromRequest(c *fiber.Ctx, userID, id uuid.UUID) (*Event, error) {
	payload := new(EventRequest)
	if err := c.BodyParser(payload); err != nil {
		return nil, badBodyError(err)
	}

	if err := payload.Validate(); err != nil {
		return nil, fieldErrors(err)
	}

	if payload.EndDate.Before(payload.StartDate) {
		return nil, auth.NewFieldErrors(map[string][]string{
			"end_date": {"End date must not be before start date."},
		})
	}

	var categoryID *uuid.UUID
	if payload.Category != "" {
		parsed, err := uuid.Parse(payload.Category)
		if err != nil {
			return nil, auth.NewFieldErrors(map[string][]string{
				"category": {"Category must be a valid id."},
			})
		}

		if _, err := e.Repo.GetCategory(c.Context(), userID, parsed); err != nil {
			return nil, err
		}
		categoryID = &parsed
	}

	return &Event{
		ID:          id,
		Title:       payload.Title,
		Description: payload.Description,
		StartDate:   payload.StartDate,
		EndDate:     payload.EndDate,
		CategoryID:  categoryID,
		UserID:      userID,
	}, nil
}

func ownerID(c *fiber.Ctx) (uuid.UUID, error) {
	claims, err := auth.SessionFromContext(c)
	if err != nil {
		return uuid.Nil, err
	}

	userID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return uuid.Nil, auth.ErrUnauthenticated
	}

	return userID, nil
}

func resourceID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, ErrNotFound
	}
	return id, nil
}

func (e *Controller) respondError(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	if fields, ok := richErr.Metadata["fields"].(map[string][]string); ok {
		return c.Status(fiber.StatusBadRequest).JSON(fields)
	}

	switch richErr.Category {
	case goerrors.CategoryAuth:
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": richErr.Message})
	case goerrors.CategoryNotFound:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"detail": richErr.Message})
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": richErr.Message})
	default:
		e.Logger.Error("unhandled error in events controller: %s", richErr.Message)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}

func badBodyError(err error) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "Invalid request body").
		WithCode(goerrors.CodeBadRequest)
}

func fieldErrors(err error) error {
	verrs, ok := err.(validation.Errors)
	if !ok {
		return badBodyError(err)
	}

	fields := make(map[string][]string, len(verrs))
	for field, ferr := range verrs {
		fields[field] = []string{ferr.Error()}
	}

	return auth.NewFieldErrors(fields)
}
