package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/place-reservation/internal/logging"
    "github.com/iliyamo/place-reservation/internal/model"
    "github.com/iliyamo/place-reservation/internal/utils"
)

// Context keys set by JWTAuth.
const (
    ctxUser   = "user"
    ctxUserID = "user_id"
    ctxRole   = "role"
)

// TokenResolver validates an access token and loads the user it names.
// service.IdentityService implements it.
type TokenResolver interface {
    UserForToken(ctx context.Context, raw string) (*model.User, error)
}

// JWTAuth returns an Echo middleware that requires a valid Bearer access
// token whose subject is an existing user.  Every failure is answered with
// 401 before the handler runs.  On success the user is stored under "user",
// its numeric id under "user_id" and its role under "role".
func JWTAuth(users TokenResolver) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get(echo.HeaderAuthorization)
            scheme, raw, found := strings.Cut(auth, " ")
            if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
                return unauthorized(c, "missing bearer token")
            }

            u, err := users.UserForToken(c.Request().Context(), strings.TrimSpace(raw))
            switch {
            case errors.Is(err, utils.ErrTokenExpired):
                return unauthorized(c, "token expired")
            case errors.Is(err, utils.ErrTokenInvalid):
                return unauthorized(c, "invalid token")
            case err != nil:
                logging.FromContext(c.Request().Context()).Error().Err(err).Msg("resolve token subject")
                return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
            }

            c.Set(ctxUser, u)
            c.Set(ctxUserID, strconv.FormatUint(u.ID, 10))
            c.Set(ctxRole, u.Role)
            return next(c)
        }
    }
}

func unauthorized(c echo.Context, msg string) error {
    c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
    return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
}
