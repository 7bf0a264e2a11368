package listingserver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	listingsapp "github.com/Apurer/go-gin-listings-api/internal/domains/listings/application"
	apierrors "github.com/Apurer/go-gin-listings-api/internal/shared/errors"
)

var responder = apierrors.NewChainedResponder("", mapListingError)

// SetProblemLogger logs 5xx problems written by every handler in this package.
func SetProblemLogger(logger *slog.Logger) {
	responder.SetLogger(logger)
}

// mapListingError translates application errors into problem responses.
func mapListingError(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case listingsapp.IsNotFound(err):
		return apierrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, listingsapp.ErrInvalidInput):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, listingsapp.ErrIncompleteDraft):
		return apierrors.ErrIncompleteDraft.WithDetail(err.Error()), true
	case errors.Is(err, context.DeadlineExceeded):
		return apierrors.ErrTimeout.WithDetail(err.Error()), true
	case errors.Is(err, listingsapp.ErrUploadFailed),
		errors.Is(err, listingsapp.ErrCreateFailed),
		errors.Is(err, listingsapp.ErrUpdateFailed):
		return apierrors.ErrUpstream.WithDetail(err.Error()), true
	case errors.Is(err, listingsapp.ErrMissingOriginal),
		errors.Is(err, listingsapp.ErrSubmitInProgress):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	default:
		return apierrors.ProblemDetail{}, false
	}
}

// respondError sends the RFC 7807 problem for err.
func respondError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	responder.RespondError(c, err)
}

// respondBadRequest reports a malformed request.
func respondBadRequest(c *gin.Context, err error) {
	responder.BadRequest(c, err.Error())
}

// respondProblem sends a prepared problem.
func respondProblem(c *gin.Context, problem apierrors.ProblemDetail) {
	responder.Respond(c, problem)
}
