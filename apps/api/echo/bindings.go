package echoapi

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/angeraphael/parrainage/core"
)

var depthParam = "profondeur"

// bindDepth reads the optional `profondeur` query param. 0 means the default depth.
func bindDepth(ctx echo.Context) (int, error) {
	val := strings.TrimSpace(ctx.QueryParam(depthParam))
	if val == "" {
		return 0, nil
	}
	depth, err := strconv.Atoi(val)
	if err != nil || depth < 0 {
		return 0, core.NewValidationError(nil, core.FieldError{Field: depthParam, Error: "must be a positive integer"})
	}
	return depth, nil
}

// bindSessionID reads the `:session` path param. Malformed IDs are unknown sessions.
func bindSessionID(ctx echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Param("session"))
	if err != nil {
		return uuid.Nil, errors.Wrap(errHttpNotFound, "parsing session id")
	}
	return id, nil
}

func bindNodeID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, errors.Wrap(errHttpNotFound, "parsing node id")
	}
	return id, nil
}
