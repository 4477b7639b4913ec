// Package authz maps mutating operations to the roles allowed to invoke them.
package authz

import (
	"github.com/garyjia/procurement-decisions/internal/domain/apperror"
	"github.com/garyjia/procurement-decisions/internal/domain/entity"
)

// Action names a mutating operation behind the authorization boundary
type Action string

const (
	ActionFinalize           Action = "finalize"
	ActionRevert             Action = "revert"
	ActionEnterActualInvoice Action = "enter-actual-invoice"
	ActionSaveProposal       Action = "save-proposal"
	ActionFinalizeProposal   Action = "finalize-proposal"
	ActionSetForecastInvoice Action = "set-forecast-invoice"
)

// Actor is the authenticated caller as resolved by the auth layer
type Actor struct {
	UserID string      `json:"user_id"`
	Role   entity.Role `json:"role"`
}

// Policy is an allow-list of roles per action. Actions absent from the
// policy are denied to everyone.
type Policy map[Action]map[entity.Role]bool

// DefaultPolicy returns the standard role matrix
func DefaultPolicy() Policy {
	return Policy{
		ActionFinalize:           roles(entity.RolePM, entity.RoleAdmin),
		ActionRevert:             roles(entity.RolePM, entity.RoleAdmin),
		ActionEnterActualInvoice: roles(entity.RoleFinance, entity.RoleAdmin),
		ActionSaveProposal:       roles(entity.RoleFinance, entity.RoleAdmin),
		ActionFinalizeProposal:   roles(entity.RoleFinance, entity.RoleAdmin),
		ActionSetForecastInvoice: roles(entity.RolePM, entity.RoleFinance, entity.RoleAdmin),
	}
}

func roles(rs ...entity.Role) map[entity.Role]bool {
	m := make(map[entity.Role]bool, len(rs))
	for _, r := range rs {
		m[r] = true
	}
	return m
}

// Allowed reports whether role may invoke action
func (p Policy) Allowed(role entity.Role, action Action) bool {
	return p[action][role]
}

// Authorize returns an AuthorizationError when role may not invoke action
func (p Policy) Authorize(role entity.Role, action Action) error {
	if p.Allowed(role, action) {
		return nil
	}
	return &apperror.AuthorizationError{Role: string(role), Action: string(action)}
}

// ActionsFor lists the actions a role may invoke, useful for hiding UI affordances
func (p Policy) ActionsFor(role entity.Role) []Action {
	order := []Action{
		ActionSaveProposal, ActionFinalizeProposal, ActionFinalize,
		ActionSetForecastInvoice, ActionRevert, ActionEnterActualInvoice,
	}
	var out []Action
	for _, a := range order {
		if p.Allowed(role, a) {
			out = append(out, a)
		}
	}
	return out
}
