package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutora/core/model"
)

// collectionAPI serves the list/create/update/delete endpoints of one entity collection.
type collectionAPI[T model.Entity] struct {
	repo     model.Repository[T]
	validate *validator.Validate

	// prepare derives computed fields before validation
	prepare func(*T)
	// beforeSave may veto a create (stored is nil) or an update
	beforeSave func(ctx echo.Context, stored *T, e T) error
	// beforeDelete may veto a delete
	beforeDelete func(ctx echo.Context, ids []string) error
}

func newCollectionAPI[T model.Entity](repo model.Repository[T], validate *validator.Validate) *collectionAPI[T] {
	return &collectionAPI[T]{repo: repo, validate: validate}
}

func (api *collectionAPI[T]) register(g *echo.Group, jwt echo.MiddlewareFunc, deleteMw ...echo.MiddlewareFunc) {
	// lists are public: clients bootstrap before logging in
	g.GET("", api.query)

	g.POST("", api.create, jwt)
	g.PUT("/:id", api.update, jwt)
	g.DELETE("", api.destroyMultiple, append([]echo.MiddlewareFunc{jwt}, deleteMw...)...)
}

func (api *collectionAPI[T]) clean(e *T) error {
	if api.prepare != nil {
		api.prepare(e)
	}
	return api.validate.Struct(*e)
}

// Handlers

func (api *collectionAPI[T]) query(ctx echo.Context) error {
	rows, err := api.repo.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying collection")
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *collectionAPI[T]) create(ctx echo.Context) error {
	var data T
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding entity")
	}
	if err := api.clean(&data); err != nil {
		return err
	}
	if api.beforeSave != nil {
		if err := api.beforeSave(ctx, nil, data); err != nil {
			return err
		}
	}

	created, err := api.repo.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating entity")
	}
	return ctx.JSON(http.StatusCreated, created)
}

func (api *collectionAPI[T]) update(ctx echo.Context) error {
	stored, err := api.repo.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting entity")
	}
	patch, err := bindPatch(ctx)
	if err != nil {
		return err
	}
	merged, err := merge(stored, patch)
	if err != nil {
		return err
	}
	if err = api.clean(&merged); err != nil {
		return err
	}
	if api.beforeSave != nil {
		if err = api.beforeSave(ctx, &stored, merged); err != nil {
			return err
		}
	}

	updated, err := api.repo.Update(ctx.Request().Context(), merged)
	if err != nil {
		return errors.Wrap(err, "updating entity")
	}
	return ctx.JSON(http.StatusOK, updated)
}

func (api *collectionAPI[T]) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	if api.beforeDelete != nil {
		if err := api.beforeDelete(ctx, query.IDs); err != nil {
			return err
		}
	}

	if err := api.repo.DeleteByIDs(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting entities")
	}
	return ctx.NoContent(http.StatusNoContent)
}
