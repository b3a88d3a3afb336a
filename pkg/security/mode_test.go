package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitialize(t *testing.T) {
	t.Cleanup(func() { Initialize(ModeStandard) })

	Initialize(ModeRestricted)
	assert.Equal(t, ModeRestricted, CurrentMode())
	assert.False(t, CanInvoke())

	Initialize(ModeStandard)
	assert.Equal(t, ModeStandard, CurrentMode())
	assert.True(t, CanInvoke())

	Initialize(OperationMode("bogus"))
	assert.Equal(t, ModeStandard, CurrentMode())
	assert.True(t, CanInvoke())
}
