package api

import (
	"errors"

	"github.com/farm-platform/farm-dashboard/internal/domain"
	apperrors "github.com/farm-platform/farm-dashboard/pkg/errors"
)

// MapDomainError converts inventory errors into API errors
func MapDomainError(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	var domErr *domain.Error
	if !errors.As(err, &domErr) {
		return apperrors.FromError(err)
	}

	switch domErr.Kind {
	case domain.KindValidation:
		return apperrors.ErrValidation(domErr.Message, domErr.Fields).Wrap(err)
	case domain.KindNotFound:
		return apperrors.New(apperrors.CodeNotFound, domErr.Message).Wrap(err)
	case domain.KindMissingTenant:
		return apperrors.ErrMissingTenant().Wrap(err)
	case domain.KindServerRejected:
		return apperrors.ErrUpstreamRejected(domErr.Message)
	case domain.KindNetwork:
		return apperrors.ErrUpstream("inventory service", err)
	default:
		return apperrors.ErrInternal("").Wrap(err)
	}
}
