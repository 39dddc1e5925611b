package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/place-reservation/internal/service"
)

// AuthHandler serves registration, login and the current-user probe.
type AuthHandler struct {
    Identity *service.IdentityService
}

func NewAuthHandler(identity *service.IdentityService) *AuthHandler {
    return &AuthHandler{Identity: identity}
}

// ----- DTOs -----

type registerReq struct {
    Username string `json:"username"`
    Email    string `json:"email"`
    Password string `json:"password"`
}

type loginReq struct {
    Username string `json:"username"`
    Password string `json:"password"`
}

type tokenResp struct {
    AccessToken string `json:"access_token"`
    TokenType   string `json:"token_type"`
    ExpiresAt   string `json:"expires_at"`
}

// Register creates a user.  A taken username is a 400.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u, err := h.Identity.Register(ctx, req.Username, req.Email, req.Password)
    if err != nil {
        return respondError(c, err, "register")
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "message": "User registered successfully",
        "user_id": u.ID,
    })
}

// Login exchanges a username and password for a bearer token.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if strings.TrimSpace(req.Username) == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    tok, err := h.Identity.Login(ctx, req.Username, req.Password)
    if err != nil {
        return respondError(c, err, "login")
    }
    return c.JSON(http.StatusOK, tokenResp{
        AccessToken: tok.Token,
        TokenType:   "bearer",
        ExpiresAt:   tok.Exp.Format(time.RFC3339),
    })
}

// Me greets the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
    u, err := currentUser(c)
    if err != nil {
        return respondError(c, err, "me")
    }
    return c.JSON(http.StatusOK, echo.Map{
        "message": "Hello, " + u.Username,
        "user":    u,
    })
}
