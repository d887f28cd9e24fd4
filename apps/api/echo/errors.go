package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/angeraphael/parrainage/core"
	"github.com/angeraphael/parrainage/core/referral"
	"github.com/angeraphael/parrainage/services/upstream"
	inmemdb "github.com/angeraphael/parrainage/storage/inmem"
)

// nginx convention: the client went away before the response
const statusClientClosedRequest = 499

var (
	errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed token")
	errHttpNotFound = echo.NewHTTPError(http.StatusNotFound, "not found")

	msgTreeUnavailable = "unable to load referral tree"
	msgSuperseded      = "superseded by a newer request"
	msgNoShareMessage  = "no share message available"
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
func newAppHTTPErrorHandler(logger core.Logger) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			if vErr, ok := core.AsValidationError(origErr).(*core.ValidationError); ok {
				message = fieldsMap(vErr.Fields)
			}
		case *core.ValidationError:
			if origErr.Fields != nil {
				message = fieldsMap(origErr.Fields)
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *referral.CycleDetectedError:
			code = http.StatusUnprocessableEntity
			message = msgTreeUnavailable
			logger.Warn(msgTreeUnavailable, err, map[string]interface{}{"node_id": origErr.ID})
		case *referral.InvalidTreeError:
			code = http.StatusUnprocessableEntity
			message = msgTreeUnavailable
			logger.Warn(msgTreeUnavailable, err, map[string]interface{}{"fields": fieldsMap(origErr.Err.Fields)})
		case *upstream.APIError:
			code = origErr.Status
			if code < http.StatusBadRequest { // unreachable, or unusable answer
				code = http.StatusBadGateway
			}
			if origErr.Errors != nil {
				message = echo.Map{"error": origErr.Message, "errors": origErr.Errors}
			} else {
				message = origErr.Message
			}
		default:
			switch {
			case errors.Is(err, referral.ErrNodeNotFound), errors.Is(err, inmemdb.ErrSessionNotFound):
				code = errHttpNotFound.Code
				message = errHttpNotFound.Message
			case errors.Is(err, referral.ErrNoMessage):
				code = http.StatusBadGateway
				message = msgNoShareMessage
				logger.Warn(msgNoShareMessage, err)
			case errors.Is(err, referral.ErrSuperseded):
				code = http.StatusConflict
				message = msgSuperseded
			case errors.Is(err, context.Canceled):
				code = statusClientClosedRequest
				message = "request cancelled"
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				logger.Error(msg, errors.Wrap(err, msg), map[string]interface{}{
					"method": ctx.Request().Method,
					"path":   ctx.Path(),
				})
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func fieldsMap(fields []core.FieldError) map[string]string {
	fldErrs := make(map[string]string, len(fields))
	for _, fErr := range fields {
		fldErrs[fErr.Field] = fErr.Error
	}
	return fldErrs
}
