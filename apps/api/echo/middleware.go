package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
)

var (
	contextTokenKey = "userToken"

	errTokenNotFoundInCtx = errors.New("user token not found in echo.Context")
)

// bearerTokenMiddleware requires an `Authorization: Bearer <token>` header. The token is opaque
// here: it is forwarded as is to the driving-school API, which authenticates it.
func bearerTokenMiddleware() echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(key string, ctx echo.Context) (bool, error) {
			key = strings.TrimSpace(key)
			if key == "" {
				return false, nil
			}
			ctx.Set(contextTokenKey, key)
			return true, nil
		},
		ErrorHandler: func(error, echo.Context) error {
			return errUnauthorized
		},
	})
}

func getContextToken(ctx echo.Context) (string, error) {
	if token, ok := ctx.Get(contextTokenKey).(string); ok && token != "" {
		return token, nil
	}
	return "", errTokenNotFoundInCtx
}
