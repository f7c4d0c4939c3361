package hxcore

import "errors"

// Sentinel errors for component operations.
var (
	ErrInvalidComponent      = errors.New("hxcore: invalid component")
	ErrMethodNotFound        = errors.New("hxcore: method is not defined")
	ErrUnknownHookDependency = errors.New("hxcore: hook depends on an unknown hook")
	ErrHookCycle             = errors.New("hxcore: hook dependencies form a cycle")
	ErrInvalidProp           = errors.New("hxcore: invalid prop")
	ErrReadOnly              = errors.New("hxcore: property is read-only")
	ErrNotEventTarget        = errors.New("hxcore: watch target cannot emit events")
	ErrUnknownEngine         = errors.New("hxcore: unknown engine")
	ErrDestroyed             = errors.New("hxcore: instance is destroyed")
	ErrNotFound              = errors.New("hxcore: component not found")
)

// IsNotFound checks if err is an unknown component error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsMethodNotFound checks if err is a missing method.
func IsMethodNotFound(err error) bool {
	return errors.Is(err, ErrMethodNotFound)
}

// IsHookOrderError checks if err reports an unschedulable hook graph.
func IsHookOrderError(err error) bool {
	return errors.Is(err, ErrUnknownHookDependency) || errors.Is(err, ErrHookCycle)
}
