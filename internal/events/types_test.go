package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeOf_WarningReasonsClassifiedAsWarning(t *testing.T) {
	assert.Equal(t, TypeWarning, TypeOf(ReasonPluginEvicted))
	assert.Equal(t, TypeWarning, TypeOf(ReasonApplyFailed))
	assert.Equal(t, TypeWarning, TypeOf(ReasonSubscriberBackpressure))
}

func TestTypeOf_UnclassifiedReasonDefaultsToNormal(t *testing.T) {
	assert.Equal(t, TypeNormal, TypeOf(ReasonPluginRegistered))
	assert.Equal(t, TypeNormal, TypeOf(Reason("SomethingNotListed")))
}
