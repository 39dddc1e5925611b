package middleware

import (
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/place-reservation/internal/metrics"
)

// Metrics records request count, latency and in-flight requests.  Paths are
// reported as route templates (e.g. /places/:id) to keep label cardinality
// bounded; unmatched requests are grouped under "unmatched".
func Metrics(m *metrics.Metrics) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            m.IncInFlight()
            defer m.DecInFlight()

            err := next(c)

            status := c.Response().Status
            if err != nil {
                if he, ok := err.(*echo.HTTPError); ok {
                    status = he.Code
                } else if !c.Response().Committed {
                    status = 500
                }
            }
            path := c.Path()
            if path == "" {
                path = "unmatched"
            }
            m.RecordHTTPRequest(c.Request().Method, path, strconv.Itoa(status), time.Since(start))
            return err
        }
    }
}
