package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/immxrtalbeast/globe_rooms/internal/recommend"
	"github.com/immxrtalbeast/globe_rooms/internal/repository"
	"github.com/immxrtalbeast/globe_rooms/internal/service"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrParticipantExists), errors.Is(err, repository.ErrProfileEmailExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoRowsAffected):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrDescriptionRequired),
		errors.Is(err, service.ErrNameRequired),
		errors.Is(err, service.ErrMasterRequired),
		errors.Is(err, service.ErrMessageRequired),
		errors.Is(err, service.ErrMessageTooLong),
		errors.Is(err, service.ErrIdentityRequired),
		errors.Is(err, recommend.ErrNoOpportunities),
		errors.Is(err, recommend.ErrNoLinks):
		return http.StatusBadRequest
	case errors.Is(err, recommend.ErrNoAPIKey):
		return http.StatusServiceUnavailable
	}
	var loadErr *domain.CatalogLoadError
	if errors.As(err, &loadErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func abortWith(ctx *gin.Context, err error) {
	ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
}
