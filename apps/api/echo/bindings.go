package echoapi

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
)

type (
	LoginResponse struct {
		User  model.User `json:"user"`
		Token string     `json:"token"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	DestroyMultipleRequest struct {
		IDs []string `json:"ids"`
	}

	FindOrCreateRequest struct {
		UserID1 string `json:"userId1" validate:"required,nefield=UserID2"`
		UserID2 string `json:"userId2" validate:"required"`
	}
)

func (fr *FindOrCreateRequest) Validate(validate *validator.Validate) error {
	fr.UserID1 = core.CleanString(fr.UserID1)
	fr.UserID2 = core.CleanString(fr.UserID2)
	return validate.Struct(fr)
}

// bindPatch decodes a JSON object body keeping its top-level keys raw.
func bindPatch(ctx echo.Context) (map[string]json.RawMessage, error) {
	var patch map[string]json.RawMessage
	if err := json.NewDecoder(ctx.Request().Body).Decode(&patch); err != nil {
		return nil, core.NewValidationError(errors.Wrap(err, "invalid JSON object"))
	}
	return patch, nil
}

// merge overlays the patch's top-level keys onto the stored entity.
func merge[T model.Entity](stored T, patch map[string]json.RawMessage) (T, error) {
	var merged T
	data, err := json.Marshal(stored)
	if err != nil {
		return merged, errors.Wrap(err, "marshalling stored entity")
	}
	fields := make(map[string]json.RawMessage)
	if err = json.Unmarshal(data, &fields); err != nil {
		return merged, errors.Wrap(err, "unmarshalling stored entity")
	}
	for k, v := range patch {
		fields[k] = v
	}
	// the path decides which entity is updated
	fields["id"], _ = json.Marshal(stored.EntityID())

	if data, err = json.Marshal(fields); err != nil {
		return merged, errors.Wrap(err, "marshalling merged entity")
	}
	if err = json.Unmarshal(data, &merged); err != nil {
		return merged, core.NewValidationError(errors.Wrap(err, "invalid field value"))
	}
	return merged, nil
}
