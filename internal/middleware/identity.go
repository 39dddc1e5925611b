package middleware

// identity.go holds the accessors for the user JWTAuth stores in the Echo
// context.  Rate-limit keys and access logs use userID; handlers use
// CurrentUser.

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/place-reservation/internal/model"
)

// CurrentUser returns the authenticated user, if any.
func CurrentUser(c echo.Context) (*model.User, bool) {
    u, ok := c.Get(ctxUser).(*model.User)
    return u, ok && u != nil
}

// userID returns the authenticated user's id as a string, or "guest".
func userID(c echo.Context) string {
    if v, ok := c.Get(ctxUserID).(string); ok && v != "" {
        return v
    }
    return "guest"
}
