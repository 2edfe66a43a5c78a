package agent

import (
	"errors"
	"strings"

	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/pkg/guard"
)

// ErrAccountIsNotConstructed is returned when using a zero-value Account.
var ErrAccountIsNotConstructed = errors.New("Account must be created via NewAccount constructor")

// Account is the identity record of an agent as known to the account
// directory. The tracker never writes accounts; it only reads the role and
// the display name.
type Account struct {
	id    kernel.AgentID
	name  string
	role  Role
	guard guard.ConstructorGuard
}

// NewAccount builds an Account. The name may be empty; id and role may not.
func NewAccount(id kernel.AgentID, name string, role Role) (*Account, error) {
	account := &Account{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(id.Validate(), role.Validate()); err != nil {
		return nil, err
	}

	account.id = id
	account.name = strings.TrimSpace(name)
	account.role = role
	return account, nil
}

// Validate reports whether the Account came from NewAccount.
func (a *Account) Validate() error {
	if a == nil {
		return ErrAccountIsNotConstructed
	}
	return a.guard.Validate(ErrAccountIsNotConstructed)
}

// ID returns the agent identifier.
func (a *Account) ID() kernel.AgentID {
	return a.id
}

// Name returns the display name, possibly empty.
func (a *Account) Name() string {
	return a.name
}

// Role returns the account role.
func (a *Account) Role() Role {
	return a.role
}
