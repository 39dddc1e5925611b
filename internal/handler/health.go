package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// Pinger reports whether a backing store is reachable.  *sql.DB and
// *sqlx.DB satisfy it.
type Pinger interface {
    PingContext(ctx context.Context) error
}

// Health returns a liveness handler.  When db is non-nil the database is
// pinged and an unreachable database yields 503.
func Health(db Pinger) echo.HandlerFunc {
    return func(c echo.Context) error {
        if db != nil {
            ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
            defer cancel()
            if err := db.PingContext(ctx); err != nil {
                return c.String(http.StatusServiceUnavailable, "database unavailable")
            }
        }
        return c.String(http.StatusOK, "ok")
    }
}
