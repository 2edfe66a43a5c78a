package agent

import (
	"fmt"
	"strings"

	"tracker/internal/pkg/errs"
)

// Role is the account role that decides what an agent may do.
// Only couriers publish positions; customers, health organizations and
// admins may look couriers up.
type Role int

const (
	// RoleUnknown is the zero value and never valid.
	RoleUnknown Role = iota
	// RoleCustomer orders deliveries and may query nearby couriers.
	RoleCustomer
	// RoleCourier reports its position.
	RoleCourier
	// RoleHealthOrganization may query nearby couriers.
	RoleHealthOrganization
	// RoleAdmin may do everything.
	RoleAdmin
)

func getRoleStrings() map[Role]string {
	return map[Role]string{
		RoleUnknown:            "unknown",
		RoleCustomer:           "customer",
		RoleCourier:            "courier",
		RoleHealthOrganization: "health_organization",
		RoleAdmin:              "admin",
	}
}

// ParseRole converts the wire name of a role ("courier", "customer", ...)
// into a Role. Matching is case-insensitive.
func ParseRole(s string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	for role, name := range getRoleStrings() {
		if role != RoleUnknown && name == normalized {
			return role, nil
		}
	}
	return RoleUnknown, errs.NewValueIsInvalidErrorWithCause("role", fmt.Errorf("%q is not a known role", s))
}

// Validate rejects RoleUnknown and values outside the enum.
func (r Role) Validate() error {
	if r <= RoleUnknown || r > RoleAdmin {
		return errs.NewValueIsInvalidErrorWithCause("role", fmt.Errorf("%d is not a valid role", r))
	}
	return nil
}

// String returns the wire name of the role.
func (r Role) String() string {
	if s, ok := getRoleStrings()[r]; ok {
		return s
	}
	return "unknown"
}

// IsCourier reports whether positions of this role are tracked.
func (r Role) IsCourier() bool {
	return r == RoleCourier
}

// CanQueryNearby reports whether the role may search for nearby couriers.
func (r Role) CanQueryNearby() bool {
	return r == RoleCustomer || r == RoleHealthOrganization || r == RoleAdmin
}
