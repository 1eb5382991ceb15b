package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"fortunaflow/internal/domain"
)

// WriteError maps a domain error to the RFC 7807 response shape and
// status code of §6/§7. Unrecognised errors are treated as dependency
// failures and bubbled as 500 without leaking internals.
func WriteError(c echo.Context, err error) error {
	de, ok := domain.AsDomainError(err)
	if !ok {
		log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("unmapped error")
		return NewInternalError(c, "internal server error")
	}

	switch de.Kind {
	case domain.KindSchema:
		return c.JSON(http.StatusUnprocessableEntity, ProblemDetails{
			Type:     ErrorTypeValidation,
			Title:    "Validation Error",
			Status:   http.StatusUnprocessableEntity,
			Detail:   de.Message,
			Instance: c.Request().URL.Path,
			Errors:   fieldErrors(de.Fields),
		})
	case domain.KindInvariant:
		return NewValidationError(c, de.Message, fieldErrors(de.Fields))
	case domain.KindConflict:
		return NewConflictError(c, de.Message)
	case domain.KindNotFound:
		return NewNotFoundError(c, de.Message)
	case domain.KindAuth:
		return NewUnauthorizedError(c, de.Message)
	case domain.KindPermission:
		return NewForbiddenError(c, de.Message)
	case domain.KindRateLimit:
		return c.JSON(http.StatusTooManyRequests, ProblemDetails{
			Type:     "https://fortuna.app/errors/rate-limited",
			Title:    "Too Many Requests",
			Status:   http.StatusTooManyRequests,
			Detail:   de.Message,
			Instance: c.Request().URL.Path,
		})
	case domain.KindDependency:
		log.Error().Err(de.Unwrap()).Str("path", c.Request().URL.Path).Msg("dependency failure")
		return NewInternalError(c, "internal server error")
	default:
		return NewInternalError(c, "internal server error")
	}
}

func fieldErrors(fields []domain.FieldError) []ValidationError {
	out := make([]ValidationError, 0, len(fields))
	for _, f := range fields {
		out = append(out, ValidationError{Field: f.Loc, Message: f.Msg})
	}
	return out
}
