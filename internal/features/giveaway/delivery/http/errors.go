package http

import (
	stderrors "errors"

	"twitch-giveaway-backend/internal/common/errors"
	"twitch-giveaway-backend/internal/features/giveaway/service"
)

// toAppError maps service errors to API errors. id and channel enrich the
// response details when known.
func toAppError(err error, id, channel string) *errors.AppError {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}

	switch {
	case stderrors.Is(err, service.ErrValidation):
		return errors.Wrap(err, errors.ErrCodeValidation, err.Error())
	case stderrors.Is(err, service.ErrNotFound):
		return errors.NewGiveawayNotFoundError(id)
	case stderrors.Is(err, service.ErrNoParticipants):
		return errors.NewNoParticipantsError(id)
	case stderrors.Is(err, service.ErrNoActiveGiveaway):
		return errors.NewNoActiveGiveawayError(channel)
	case stderrors.Is(err, service.ErrStoreUnavailable):
		return errors.NewStoreUnavailableError(err)
	default:
		return errors.Wrap(err, errors.ErrCodeInternal, "Internal server error")
	}
}
