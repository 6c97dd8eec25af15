package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorStringIncludesNameWhenPresent(t *testing.T) {
	err := NewDeviceUnavailable("Launchpad", "not connected")
	assert.Equal(t, "DeviceUnavailable(Launchpad): not connected", err.Error())
}

func TestErrorStringOmitsNameWhenAbsent(t *testing.T) {
	err := NewConfigInvalid("conductor.toml", "bad field", 0)
	assert.Equal(t, "ConfigInvalid: bad field", err.Error())
}

func TestConstructorsSetExpectedKind(t *testing.T) {
	assert.Equal(t, ErrConfigIO, NewConfigIO("p", "m").Kind)
	assert.Equal(t, ErrStateCorrupt, NewStateCorrupt("p").Kind)
	assert.Equal(t, ErrActionFailed, NewActionFailed(ActionShell, "boom").Kind)
	assert.Equal(t, ErrPluginError, NewPluginError("id", PluginTimeout, "slow").Kind)
	assert.Equal(t, ErrIPCProtocol, NewIPCProtocol("bad").Kind)
	assert.Equal(t, ErrBusy, NewBusy("midi_learn").Kind)
	assert.Equal(t, ErrInternal, NewInternal("oops").Kind)
}

func TestErrorImplementsErrorInterface(t *testing.T) {
	var err error = NewInternal("x")
	assert.EqualError(t, err, "InternalError: x")
}
