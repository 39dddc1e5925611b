package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/place-reservation/internal/service"
)

// PlaceHandler serves the public, read-only place catalogue.
type PlaceHandler struct {
    Lifecycle *service.LifecycleService
}

func NewPlaceHandler(lc *service.LifecycleService) *PlaceHandler {
    return &PlaceHandler{Lifecycle: lc}
}

// List returns every place.
func (h *PlaceHandler) List(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    out, err := h.Lifecycle.ListPlaces(ctx)
    if err != nil {
        return respondError(c, err, "list places")
    }
    return c.JSON(http.StatusOK, out)
}

// Get returns a single place, or JSON null with 200 when the id is unknown.
func (h *PlaceHandler) Get(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    p, err := h.Lifecycle.GetPlace(ctx, id)
    if err != nil {
        return respondError(c, err, "get place")
    }
    return c.JSON(http.StatusOK, p)
}
