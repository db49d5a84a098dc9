package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrTripNotFound  = errors.New("trip not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrTemporary     = errors.New("temporary failure")
	ErrMissingParam  = errors.New("missing step parameter")
	ErrUnknownTool   = errors.New("unknown tool")
	ErrPlanRejected  = errors.New("generated plan rejected")
	ErrGatewayFailed = errors.New("gateway call failed")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
