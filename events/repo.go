package events

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrNotFound covers both rows that do not exist and rows owned by a
// different user. Callers cannot tell the two apart.
var ErrNotFound = goerrors.New("Not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode("NOT_FOUND")

// Repository gives owner-scoped access to events and categories. Every
// query carries the owner's user id, so one user's rows are invisible
// to every other user.
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListCategories(ctx context.Context, userID uuid.UUID) ([]*Category, error) {
	categories := []*Category{}
	err := r.db.NewSelect().
		Model(&categories).
		Where(`?TableAlias."user_id" = ?`, userID).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *Repository) GetCategory(ctx context.Context, userID, id uuid.UUID) (*Category, error) {
	category := new(Category)
	err := r.db.NewSelect().
		Model(category).
		Where(`?TableAlias."id" = ? AND ?TableAlias."user_id" = ?`, id, userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return category, nil
}

func (r *Repository) CreateCategory(ctx context.Context, category *Category) (*Category, error) {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	if category.Color == "" {
		category.Color = DefaultColor
	}

	_, err := r.db.NewInsert().
		Model(category).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (r *Repository) UpdateCategory(ctx context.Context, userID uuid.UUID, category *Category) (*Category, error) {
	res, err := r.db.NewUpdate().
		Model(category).
		Set("name = ?", category.Name).
		Set("color = ?", category.Color).
		Where(`?TableAlias."id" = ? AND ?TableAlias."user_id" = ?`, category.ID, userID).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrNotFound
	}
	return r.GetCategory(ctx, userID, category.ID)
}

func (r *Repository) DeleteCategory(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*Category)(nil)).
		Where(`?TableAlias."id" = ? AND ?TableAlias."user_id" = ?`, id, userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListEvents(ctx context.Context, userID uuid.UUID) ([]*Event, error) {
	evts := []*Event{}
	err := r.db.NewSelect().
		Model(&evts).
		Where(`?TableAlias."user_id" = ?`, userID).
		Order("start_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return evts, nil
}

func (r *Repository) GetEvent(ctx context.Context, userID, id uuid.UUID) (*Event, error) {
	event := new(Event)
	err := r.db.NewSelect().
		Model(event).
		Where(`?TableAlias."id" = ? AND ?TableAlias."user_id" = ?`, id, userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return event, nil
}

func (r *Repository) CreateEvent(ctx context.Context, event *Event) (*Event, error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	_, err := r.db.NewInsert().
		Model(event).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (r *Repository) UpdateEvent(ctx context.Context, userID uuid.UUID, event *Event) (*Event, error) {
	res, err := r.db.NewUpdate().
		Model(event).
		Set("title = ?", event.Title).
		Set("description = ?", event.Description).
		Set("start_date = ?", event.StartDate).
		Set("end_date = ?", event.EndDate).
		Set("category_id = ?", event.CategoryID).
		Where(`?TableAlias."id" = ? AND ?TableAlias."user_id" = ?`, event.ID, userID).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrNotFound
	}
	return r.GetEvent(ctx, userID, event.ID)
}

func (r *Repository) DeleteEvent(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*Event)(nil)).
		Where(`?TableAlias."id" = ? AND ?TableAlias."user_id" = ?`, id, userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}
