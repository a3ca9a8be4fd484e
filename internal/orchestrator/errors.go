package orchestrator

import (
	"errors"
	"fmt"

	"sysconfigd/internal/api"
)

var errNotRegistered = fmt.Errorf("plugin not registered")

func isValidationErr(err error, target **api.ValidationError) bool {
	return errors.As(err, target)
}

func isTransportErr(err error, target **api.TransportError) bool {
	return errors.As(err, target)
}
