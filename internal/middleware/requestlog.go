package middleware

import (
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"

    "github.com/iliyamo/place-reservation/internal/logging"
)

// RequestLogger assigns every request an id (reusing a client-supplied
// X-Request-ID), attaches a logger carrying it to the request context and
// writes one access log line when the handler returns.
func RequestLogger() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            id := req.Header.Get(echo.HeaderXRequestID)
            if id == "" {
                id = uuid.NewString()
            }
            c.Response().Header().Set(echo.HeaderXRequestID, id)

            l := log.Logger.With().Str("request_id", id).Logger()
            c.SetRequest(req.WithContext(logging.WithContext(req.Context(), l)))

            start := time.Now()
            err := next(c)
            if err != nil {
                // Let Echo render the error so the logged status is final.
                c.Error(err)
            }

            status := c.Response().Status
            var ev *zerolog.Event
            switch {
            case status >= 500:
                ev = l.Error().Err(err)
            case status >= 400:
                ev = l.Warn()
            default:
                ev = l.Info()
            }
            ev.Str("method", req.Method).
                Str("path", req.URL.Path).
                Str("route", c.Path()).
                Int("status", status).
                Dur("latency", time.Since(start)).
                Str("remote_ip", c.RealIP()).
                Str("user_id", userID(c)).
                Msg("request")
            return nil
        }
    }
}
