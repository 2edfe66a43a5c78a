package kernel

import (
	"strings"
	"unicode/utf8"

	"tracker/internal/pkg/errs"
)

// MaxAgentIDLength bounds externally assigned identifiers.
const MaxAgentIDLength = 128

// ErrAgentIDIsRequired is returned for an empty or blank agent identifier.
var ErrAgentIDIsRequired = errs.NewValueIsRequiredError("agentId")

// AgentID is the stable, externally assigned identity of a tracked agent.
// It is opaque to this service: the account store decides its format.
type AgentID string

// NewAgentID trims raw and validates it.
func NewAgentID(raw string) (AgentID, error) {
	id := AgentID(strings.TrimSpace(raw))
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}

// Validate checks that the identifier is non-empty and not oversized.
func (id AgentID) Validate() error {
	if strings.TrimSpace(string(id)) == "" {
		return ErrAgentIDIsRequired
	}
	if n := utf8.RuneCountInString(string(id)); n > MaxAgentIDLength {
		return errs.NewValueIsOutOfRangeError("agentId length", n, 1, MaxAgentIDLength)
	}
	return nil
}

func (id AgentID) String() string {
	return string(id)
}
