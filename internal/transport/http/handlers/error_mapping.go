package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appLogger "github.com/arklim/social-platform-trust/internal/infra/logger"
	"github.com/arklim/social-platform-trust/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
// An empty Message echoes the error text.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError resolves the provided error against known cases or falls back to a generic response.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			msg := cs.Message
			if msg == "" {
				msg = err.Error()
			}
			c.JSON(cs.Status, NewErrorResponse(c, msg))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

// usecaseErrorCases maps every error kind the services return.
var usecaseErrorCases = []ErrorCase{
	{Err: usecase.ErrValidation, Status: http.StatusBadRequest},
	{Err: usecase.ErrConflict, Status: http.StatusBadRequest},
	{Err: usecase.ErrNotFound, Status: http.StatusNotFound},
	{Err: usecase.ErrAlreadyExists, Status: http.StatusConflict},
	{Err: usecase.ErrForbidden, Status: http.StatusForbidden},
	{Err: usecase.ErrUnauthenticated, Status: http.StatusUnauthorized},
}

// respondUsecaseError writes the mapped response for err. Dependency failures and
// unknown errors are logged and answered with fallbackMessage only.
func respondUsecaseError(c *gin.Context, log *zap.Logger, err error, fallbackMessage string) {
	if errors.Is(err, usecase.ErrDependency) || !isMapped(err) {
		appLogger.WithContext(c.Request.Context(), log).Error(fallbackMessage, zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, fallbackMessage))
		return
	}
	RespondWithMappedError(c, err, usecaseErrorCases, http.StatusInternalServerError, fallbackMessage)
}

func isMapped(err error) bool {
	for _, cs := range usecaseErrorCases {
		if errors.Is(err, cs.Err) {
			return true
		}
	}
	return false
}
