package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/place-reservation/internal/config"
	"github.com/iliyamo/place-reservation/internal/handler"
	"github.com/iliyamo/place-reservation/internal/metrics"
	"github.com/iliyamo/place-reservation/internal/middleware"
	"github.com/iliyamo/place-reservation/internal/model"
)

// Deps is everything the HTTP layer needs.  DB and Redis may be nil.
type Deps struct {
	DB        handler.Pinger
	Redis     *redis.Client
	Metrics   *metrics.Metrics
	Tokens    middleware.TokenResolver
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig

	Auth     *handler.AuthHandler
	Bookings *handler.BookingHandler
	Reviews  *handler.ReviewHandler
	Places   *handler.PlaceHandler
}

// New builds the Echo instance with the global middleware chain and every
// route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// /places/ and /places resolve to the same route.
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Metrics(d.Metrics))

	// The limiter keys on the authenticated user, so it runs per route after
	// JWTAuth rather than as global middleware.
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis)

	RegisterRoutes(e, d.DB, d.Metrics)
	protected := authChain(d.Tokens, limit)
	RegisterAuth(e, d.Auth, limit, protected)
	RegisterBookings(e, d.Bookings, d.Reviews, protected)
	RegisterPublic(e, d.Places, d.Reviews, limit, middleware.NewRedisCache(d.Cache, d.Redis))
	return e
}

// authChain is applied per route rather than through a group so unknown
// paths still answer 404 instead of 401.
func authChain(tokens middleware.TokenResolver, limit echo.MiddlewareFunc) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.JWTAuth(tokens),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
		limit,
	}
}

// RegisterRoutes registers the operational endpoints: health and metrics.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, m *metrics.Metrics) {
	e.GET("/healthz", handler.Health(db))
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}

// RegisterAuth registers registration and login, which need no session, and
// the current-user probe, which does.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limit echo.MiddlewareFunc, protected []echo.MiddlewareFunc) {
	e.POST("/register", a.Register, limit)
	e.POST("/login", a.Login, limit)
	e.GET("/me", a.Me, protected...)
	// Older clients call /protected.
	e.GET("/protected", a.Me, protected...)
}

// RegisterBookings registers the authenticated booking, payment and review
// submission endpoints.
func RegisterBookings(e *echo.Echo, b *handler.BookingHandler, r *handler.ReviewHandler, protected []echo.MiddlewareFunc) {
	e.POST("/book", b.Book, protected...)
	e.GET("/my_bookings", b.MyBookings, protected...)
	e.GET("/bookings/:id", b.GetBooking, protected...)
	e.POST("/cancel_booking/:id", b.Cancel, protected...)
	e.POST("/pay", b.Pay, protected...)
	e.POST("/review", r.Submit, protected...)
}

// RegisterPublic registers the unauthenticated catalogue and review listing.
// Only the place catalogue goes through the response cache; reviews change
// with every submission.
func RegisterPublic(e *echo.Echo, p *handler.PlaceHandler, r *handler.ReviewHandler, limit, cache echo.MiddlewareFunc) {
	e.GET("/places", p.List, limit, cache)
	e.GET("/places/:id", p.Get, limit, cache)
	e.GET("/reviews/:place_id", r.ListByPlace, limit)
}
