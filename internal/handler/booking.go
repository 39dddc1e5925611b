package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/place-reservation/internal/service"
)

// BookingHandler serves the booking and payment endpoints.  Every route it
// exposes requires an authenticated user.
type BookingHandler struct {
    Lifecycle *service.LifecycleService
}

func NewBookingHandler(lc *service.LifecycleService) *BookingHandler {
    return &BookingHandler{Lifecycle: lc}
}

type bookReq struct {
    PlaceID   uint64 `json:"place_id"`
    StartDate string `json:"start_date"`
    EndDate   string `json:"end_date"`
}

type payReq struct {
    BookingID uint64   `json:"booking_id"`
    Amount    *float64 `json:"amount"`
}

// Book creates a pending booking.
func (h *BookingHandler) Book(c echo.Context) error {
    u, err := currentUser(c)
    if err != nil {
        return respondError(c, err, "book")
    }
    var req bookReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.PlaceID == 0 || req.StartDate == "" || req.EndDate == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "place_id, start_date and end_date are required"})
    }
    start, err := parseDate(req.StartDate)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    end, err := parseDate(req.EndDate)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    b, err := h.Lifecycle.CreateBooking(ctx, u, req.PlaceID, start, end)
    if err != nil {
        return respondError(c, err, "book")
    }
    return c.JSON(http.StatusOK, echo.Map{
        "message":    "Booking request sent",
        "booking_id": b.ID,
        "status":     b.Status,
    })
}

// MyBookings lists the caller's bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error {
    u, err := currentUser(c)
    if err != nil {
        return respondError(c, err, "list bookings")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    out, err := h.Lifecycle.ListMyBookings(ctx, u)
    if err != nil {
        return respondError(c, err, "list bookings")
    }
    return c.JSON(http.StatusOK, out)
}

// GetBooking returns one of the caller's bookings with its payment.
func (h *BookingHandler) GetBooking(c echo.Context) error {
    u, err := currentUser(c)
    if err != nil {
        return respondError(c, err, "get booking")
    }
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    detail, err := h.Lifecycle.GetBooking(ctx, u, id)
    if err != nil {
        return respondError(c, err, "get booking")
    }
    return c.JSON(http.StatusOK, detail)
}

// Cancel cancels one of the caller's bookings from any status.
func (h *BookingHandler) Cancel(c echo.Context) error {
    u, err := currentUser(c)
    if err != nil {
        return respondError(c, err, "cancel booking")
    }
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    b, err := h.Lifecycle.CancelBooking(ctx, u, id)
    if err != nil {
        return respondError(c, err, "cancel booking")
    }
    return c.JSON(http.StatusOK, echo.Map{
        "message":    "Booking cancelled",
        "booking_id": b.ID,
        "status":     b.Status,
    })
}

// Pay records a payment for a pending booking and confirms it.
func (h *BookingHandler) Pay(c echo.Context) error {
    u, err := currentUser(c)
    if err != nil {
        return respondError(c, err, "pay")
    }
    var req payReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.BookingID == 0 || req.Amount == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_id and amount are required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    p, err := h.Lifecycle.PayBooking(ctx, u, req.BookingID, *req.Amount)
    if err != nil {
        return respondError(c, err, "pay")
    }
    return c.JSON(http.StatusOK, echo.Map{
        "message":    "Payment successful",
        "payment_id": p.ID,
    })
}
