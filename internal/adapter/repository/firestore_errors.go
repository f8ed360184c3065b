package repository

import (
	"context"
	stderrors "errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"petadopt/pkg/errors"
)

// storeError classifies a Firestore failure into the application taxonomy.
// AppErrors raised inside transactions pass through unchanged.
func storeError(message string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return errors.TransientIO(message, err)
	}

	switch status.Code(err) {
	case codes.NotFound:
		return errors.NotFound(message, err)
	case codes.PermissionDenied:
		return errors.New(errors.CodeNotAParticipant, message, 403, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted:
		return errors.TransientIO(message, err)
	default:
		return errors.Internal(message, err)
	}
}
