package handler // handler defines http handlers

import (
    "errors"
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/place-reservation/internal/logging"
    "github.com/iliyamo/place-reservation/internal/middleware"
    "github.com/iliyamo/place-reservation/internal/model"
    "github.com/iliyamo/place-reservation/internal/service"
)

// requestTimeout bounds the storage work of a single request.
const requestTimeout = 5 * time.Second

var errNoUser = errors.New("no authenticated user in context")

// currentUser returns the user JWTAuth resolved for this request.
func currentUser(c echo.Context) (*model.User, error) {
    u, ok := middleware.CurrentUser(c)
    if !ok {
        return nil, errNoUser
    }
    return u, nil
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, fmt.Errorf("invalid %s", name)
    }
    return id, nil
}

// parseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp
// and returns it in UTC.
func parseDate(s string) (time.Time, error) {
    s = strings.TrimSpace(s)
    if d, err := time.Parse(time.DateOnly, s); err == nil {
        return d, nil
    }
    t, err := time.Parse(time.RFC3339, s)
    if err != nil {
        return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC 3339", s)
    }
    return t.UTC(), nil
}

// respondError maps service errors to status codes.  Anything unrecognised is
// logged and answered with a generic 500.
func respondError(c echo.Context, err error, op string) error {
    switch {
    case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidState):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": service.Message(err, "bad request")})
    case errors.Is(err, service.ErrInvalidCredentials):
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": service.Message(err, "invalid credentials")})
    case errors.Is(err, service.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": service.Message(err, "not found")})
    case errors.Is(err, service.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": service.Message(err, "conflict")})
    case errors.Is(err, errNoUser):
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    logging.FromContext(c.Request().Context()).Error().Err(err).Str("op", op).Msg("request failed")
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": op + " failed"})
}
