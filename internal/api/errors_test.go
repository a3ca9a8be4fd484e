package api

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{&ValidationError{PluginID: "p1", Path: "x", Reason: "bad"}, ExitCodeValidationError},
		{&OwnershipError{Path: "x"}, ExitCodeOwnershipError},
		{&TransportError{PluginID: "p1", Op: "DiffState", Cause: errors.New("boom")}, ExitCodeTransportError},
		{&PluginRuntimeError{PluginID: "p1", Op: "ApplyState", Message: "no"}, ExitCodePluginRuntimeError},
		{&SourceError{Source: SourceEC2, Cause: errors.New("timeout")}, ExitCodeSourceError},
		{&FatalError{Reason: "registry corrupt"}, ExitCodeFatalError},
		{errors.New("plain"), ExitCodeGenericError},
	}

	for _, c := range cases {
		assert.Equal(t, c.code, ExitCodeFor(c.err))
	}
}

func TestTransportErrorUnwrap(t *testing.T) {
	cause := errors.New("dial refused")
	err := &TransportError{PluginID: "p1", Op: "Initialize", Cause: cause}
	assert.ErrorIs(t, err, cause)
}
