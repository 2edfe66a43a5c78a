// Package errs holds the error vocabulary shared by the tracker's domain,
// use cases and adapters. Transports classify failures with errors.Is against
// the sentinels and map them to responses:
//   - ErrValueIsRequired, ErrValueIsInvalid, ErrValueIsOutOfRange: rejected input
//   - ErrObjectNotFound: unknown agent or account
//   - ErrForbidden: the caller's role may not perform the operation
//   - ErrUnavailable: the position store, geocoder or relay cannot be reached
//
// Every typed error carries the offending parameter and an optional cause.
// UnavailableError unwraps to both ErrUnavailable and its cause, so a
// context.DeadlineExceeded behind it stays visible to errors.Is.
package errs
