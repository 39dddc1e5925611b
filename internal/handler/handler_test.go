package handler

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/place-reservation/internal/service"
)

func TestParseDate(t *testing.T) {
    d, err := parseDate("2024-01-04")
    require.NoError(t, err)
    assert.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), d)

    d, err = parseDate("2024-01-04T10:00:00+02:00")
    require.NoError(t, err)
    assert.Equal(t, time.Date(2024, 1, 4, 8, 0, 0, 0, time.UTC), d)

    _, err = parseDate("04/01/2024")
    assert.Error(t, err)
}

func TestRespondErrorStatusMapping(t *testing.T) {
    cases := []struct {
        err  error
        code int
        msg  string
    }{
        {&service.Error{Kind: service.ErrValidation, Msg: "username already exists"}, http.StatusBadRequest, "username already exists"},
        {&service.Error{Kind: service.ErrInvalidState, Msg: "booking already paid or canceled"}, http.StatusBadRequest, "booking already paid or canceled"},
        {&service.Error{Kind: service.ErrInvalidCredentials, Msg: "invalid credentials"}, http.StatusUnauthorized, "invalid credentials"},
        {&service.Error{Kind: service.ErrNotFound, Msg: "booking not found"}, http.StatusNotFound, "booking not found"},
        {&service.Error{Kind: service.ErrConflict, Msg: "taken"}, http.StatusConflict, "taken"},
        {errNoUser, http.StatusUnauthorized, "unauthorized"},
        {errors.New("db gone"), http.StatusInternalServerError, "pay failed"},
    }
    e := echo.New()
    for _, tc := range cases {
        rec := httptest.NewRecorder()
        c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
        require.NoError(t, respondError(c, tc.err, "pay"))
        assert.Equal(t, tc.code, rec.Code, tc.msg)
        assert.JSONEq(t, `{"error":"`+tc.msg+`"}`, rec.Body.String())
    }
}

type downDB struct{ err error }

func (d downDB) PingContext(context.Context) error { return d.err }

func TestHealth(t *testing.T) {
    e := echo.New()
    for _, tc := range []struct {
        db   Pinger
        code int
    }{
        {nil, http.StatusOK},
        {downDB{}, http.StatusOK},
        {downDB{err: errors.New("refused")}, http.StatusServiceUnavailable},
    } {
        rec := httptest.NewRecorder()
        c := e.NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)
        require.NoError(t, Health(tc.db)(c))
        assert.Equal(t, tc.code, rec.Code)
    }
}
