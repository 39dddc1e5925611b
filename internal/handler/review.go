package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/place-reservation/internal/service"
)

// ReviewHandler serves review submission and listing.
type ReviewHandler struct {
    Lifecycle *service.LifecycleService
}

func NewReviewHandler(lc *service.LifecycleService) *ReviewHandler {
    return &ReviewHandler{Lifecycle: lc}
}

type reviewReq struct {
    PlaceID uint64 `json:"place_id"`
    Rating  *int   `json:"rating"`
    Comment string `json:"comment"`
}

// Submit stores a review by the caller.
func (h *ReviewHandler) Submit(c echo.Context) error {
    u, err := currentUser(c)
    if err != nil {
        return respondError(c, err, "submit review")
    }
    var req reviewReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.PlaceID == 0 || req.Rating == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "place_id and rating are required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    rv, err := h.Lifecycle.SubmitReview(ctx, u, req.PlaceID, *req.Rating, req.Comment)
    if err != nil {
        return respondError(c, err, "submit review")
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Review submitted", "review_id": rv.ID})
}

// ListByPlace is public.
func (h *ReviewHandler) ListByPlace(c echo.Context) error {
    id, err := parseID(c, "place_id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    out, err := h.Lifecycle.ListReviews(ctx, id)
    if err != nil {
        return respondError(c, err, "list reviews")
    }
    return c.JSON(http.StatusOK, out)
}
