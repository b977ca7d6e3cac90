package handler

import (
    "errors"
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/sgst/sgst-api/internal/service"
)

var statusByKind = map[service.Kind]int{
    service.KindInvalidCredentials:       http.StatusUnauthorized,
    service.KindInvalidSession:           http.StatusUnauthorized,
    service.KindWeakPassword:             http.StatusBadRequest,
    service.KindInvalidPhoneFormat:       http.StatusBadRequest,
    service.KindInvalidInput:             http.StatusBadRequest,
    service.KindDuplicateEmail:           http.StatusConflict,
    service.KindNotAdministrator:         http.StatusForbidden,
    service.KindDuplicateWorkshopName:    http.StatusConflict,
    service.KindNoActiveSubscription:     http.StatusForbidden,
    service.KindWorkshopQuotaExceeded:    http.StatusForbidden,
    service.KindLicenseNotFound:          http.StatusNotFound,
    service.KindCompanyAlreadySubscribed: http.StatusConflict,
    service.KindWorkshopNotFound:         http.StatusNotFound,
    service.KindWorkshopNotOwned:         http.StatusForbidden,
    service.KindUserAlreadyHasCompany:    http.StatusConflict,
}

// writeError renders err as {"error": kind, "message": msg}.  Anything that
// is not a *service.Error is logged and reported as a generic 500.
func writeError(c echo.Context, logger *slog.Logger, err error) error {
    var se *service.Error
    if errors.As(err, &se) {
        status, ok := statusByKind[se.Kind]
        if !ok {
            status = http.StatusBadRequest
        }
        return c.JSON(status, echo.Map{"error": se.Kind, "message": se.Message})
    }
    logger.Error("request failed",
        "method", c.Request().Method,
        "route", c.Path(),
        "request_id", c.Response().Header().Get(echo.HeaderXRequestID),
        "error", err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error", "message": "internal server error"})
}

func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_input", "message": msg})
}
