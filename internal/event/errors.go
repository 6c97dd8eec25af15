package event

import "fmt"

// ErrorKind enumerates the observable error taxonomy from spec.md §7.
type ErrorKind string

const (
	ErrConfigInvalid     ErrorKind = "ConfigInvalid"
	ErrConfigIO          ErrorKind = "ConfigIoError"
	ErrStateCorrupt       ErrorKind = "StateCorrupt"
	ErrDeviceUnavailable ErrorKind = "DeviceUnavailable"
	ErrActionFailed       ErrorKind = "ActionFailed"
	ErrPluginError        ErrorKind = "PluginError"
	ErrIPCProtocol       ErrorKind = "IpcProtocol"
	ErrBusy               ErrorKind = "Busy"
	ErrInternal           ErrorKind = "InternalError"
)

// PluginErrorKind enumerates the documented plugin failure sub-kinds.
type PluginErrorKind string

const (
	PluginLoad            PluginErrorKind = "Load"
	PluginInstantiate     PluginErrorKind = "Instantiate"
	PluginValidate        PluginErrorKind = "Validate"
	PluginTrap            PluginErrorKind = "Trap"
	PluginTimeout         PluginErrorKind = "Timeout"
	PluginOutOfFuel       PluginErrorKind = "OutOfFuel"
	PluginCapabilityDenied PluginErrorKind = "CapabilityDenied"
)

// Error is the common typed error every component returns; it carries
// enough structure to be serialised verbatim into an IPC error response.
type Error struct {
	Kind    ErrorKind
	Path    string
	Line    int
	Name    string // device name, action kind, plugin id, resource name...
	Sub     PluginErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s(%s): %s", e.Kind, e.Name, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewConfigInvalid builds a ConfigInvalid error.
func NewConfigInvalid(path, message string, line int) *Error {
	return &Error{Kind: ErrConfigInvalid, Path: path, Line: line, Message: message}
}

// NewConfigIO builds a ConfigIoError error.
func NewConfigIO(path, message string) *Error {
	return &Error{Kind: ErrConfigIO, Path: path, Message: message}
}

// NewStateCorrupt builds a StateCorrupt error.
func NewStateCorrupt(path string) *Error {
	return &Error{Kind: ErrStateCorrupt, Path: path, Message: "checksum mismatch"}
}

// NewDeviceUnavailable builds a DeviceUnavailable error.
func NewDeviceUnavailable(name, message string) *Error {
	return &Error{Kind: ErrDeviceUnavailable, Name: name, Message: message}
}

// NewActionFailed builds an ActionFailed error.
func NewActionFailed(actionKind ActionType, message string) *Error {
	return &Error{Kind: ErrActionFailed, Name: string(actionKind), Message: message}
}

// NewPluginError builds a PluginError error.
func NewPluginError(id string, sub PluginErrorKind, message string) *Error {
	return &Error{Kind: ErrPluginError, Name: id, Sub: sub, Message: message}
}

// NewIPCProtocol builds an IpcProtocol error.
func NewIPCProtocol(message string) *Error {
	return &Error{Kind: ErrIPCProtocol, Message: message}
}

// NewBusy builds a Busy error.
func NewBusy(resource string) *Error {
	return &Error{Kind: ErrBusy, Name: resource, Message: "resource busy"}
}

// NewInternal builds an InternalError error.
func NewInternal(message string) *Error {
	return &Error{Kind: ErrInternal, Message: message}
}
