// Package agent provides the domain model for the people that use the tracker:
// accounts with a role, and the last known position of every courier.
//
// The package includes:
//   - Role: the closed set of account roles
//   - Account: an identity record read from the account directory
//   - Position: the last reported location of a courier
//   - PositionUpdated: the event emitted after a position is stored
//
// Key business rules:
//   - Only couriers have tracked positions
//   - A position is replaced as a whole on every report (last write wins)
//   - The (0,0) location means the courier has not reported a fix yet
package agent
