// Package guard provides the constructor guard used by value objects,
// commands and queries to tell a constructed value from a zero value.
package guard

import "errors"

// ErrDefaultConstructorGuard is returned by Validate when no specific error is supplied.
var ErrDefaultConstructorGuard = errors.New("object must be created via its constructor")

// ConstructorGuard marks a struct as built by its constructor. Embed it as a
// field, set it with NewConstructorGuard in the constructor and call Validate
// from the owner's Validate method.
//
// Example:
//
//	type Radius struct {
//	    meters float64
//	    guard  guard.ConstructorGuard
//	}
//
//	func NewRadius(meters float64) (Radius, error) {
//	    if meters < 0 {
//	        return Radius{}, errors.New("radius cannot be negative")
//	    }
//	    return Radius{meters: meters, guard: guard.NewConstructorGuard()}, nil
//	}
//
//	func (r Radius) Validate() error {
//	    return r.guard.Validate(ErrRadiusIsNotConstructed)
//	}
type ConstructorGuard struct {
	isConstructed bool
}

// NewConstructorGuard returns a guard in the constructed state.
func NewConstructorGuard() ConstructorGuard {
	return ConstructorGuard{isConstructed: true}
}

// Validate returns nil for a constructed guard. Otherwise it returns
// validationError, or ErrDefaultConstructorGuard when validationError is nil.
func (g ConstructorGuard) Validate(validationError error) error {
	if validationError == nil {
		validationError = ErrDefaultConstructorGuard
	}
	if !g.isConstructed {
		return validationError
	}
	return nil
}
