// Package policy is the single source of truth for who may view, decide, or
// advance a request. Every rule is a pure function of the actor's identity,
// role and permission codes plus the request row — no storage access, no side
// effects — so the query layer can run it per element over large lists.
package policy

import (
	"hrops/internal/model"

	"github.com/google/uuid"
)

// Role name constants
const (
	RoleAdmin            = "admin"
	RoleHRAdmin          = "hr_admin"
	RoleSupervisor       = "supervisor"
	RoleLogisticsManager = "logistics_manager"
	RoleProcurement      = "procurement"
	RoleEmployee         = "employee"
)

// Permission codes consulted by the policy in addition to roles
const (
	PermApproveLeave = "requests.approve_leave"
	PermViewAll      = "requests.view_all"
)

// Actor is the identity threaded explicitly into every policy and engine call.
// Handlers build it from the authenticated session; the core never reads
// ambient user state.
type Actor struct {
	ID          uuid.UUID
	Role        string
	Permissions []string
}

// HasPermission reports whether the actor holds the given permission code
func (a Actor) HasPermission(code string) bool {
	for _, p := range a.Permissions {
		if p == code {
			return true
		}
	}
	return false
}

// decideRoles maps each request type to the roles allowed to decide it.
// admin is handled globally and omitted from the rows.
var decideRoles = map[string][]string{
	model.RequestTypeTaskHelp:         {RoleSupervisor},
	model.RequestTypeTaskExtension:    {RoleSupervisor},
	model.RequestTypeDepartmentTask:   {RoleHRAdmin},
	model.RequestTypeHRTask:           {RoleHRAdmin},
	model.RequestTypeLogisticsItem:    {RoleLogisticsManager},
	model.RequestTypeLeave:            {RoleSupervisor},
	model.RequestTypeDocumentApproval: {RoleHRAdmin},
	model.RequestTypeRegistration:     {RoleHRAdmin},
}

// decidePerms lists permission codes that grant decide rights regardless of role
var decidePerms = map[string][]string{
	model.RequestTypeLeave: {PermApproveLeave},
}

// advanceRoles maps (request type, next state) to the roles allowed to perform
// that post-approval step. Advancing is a different action from deciding: a
// procurement clerk may mark items purchased without holding approval rights.
var advanceRoles = map[string]map[string][]string{
	model.RequestTypeLogisticsItem: {
		model.RequestStatusPurchased: {RoleProcurement, RoleLogisticsManager},
		model.RequestStatusDelivered: {RoleProcurement, RoleLogisticsManager},
		model.RequestStatusCompleted: {RoleLogisticsManager},
	},
	model.RequestTypeDocumentApproval: {
		model.RequestStatusPurchased: {RoleHRAdmin},
		model.RequestStatusDelivered: {RoleHRAdmin},
		model.RequestStatusCompleted: {RoleHRAdmin},
	},
}

// CanDecide reports whether the actor may approve or reject the request.
// Self-approval is denied here on top of the engine's own validation so the two
// layers can never diverge.
func CanDecide(actor Actor, req *model.Request) bool {
	if actor.ID == req.RequesterID {
		return false
	}
	if actor.Role == RoleAdmin {
		return true
	}
	for _, role := range decideRoles[req.Type] {
		if actor.Role == role {
			return true
		}
	}
	for _, perm := range decidePerms[req.Type] {
		if actor.HasPermission(perm) {
			return true
		}
	}
	return false
}

// CanView reports whether the actor may see the request at all: its requester,
// any decide-eligible role for the type, and the oversight roles.
func CanView(actor Actor, req *model.Request) bool {
	if actor.ID == req.RequesterID {
		return true
	}
	if actor.Role == RoleAdmin || actor.Role == RoleHRAdmin {
		return true
	}
	if actor.HasPermission(PermViewAll) {
		return true
	}
	for _, role := range decideRoles[req.Type] {
		if actor.Role == role {
			return true
		}
	}
	for _, perm := range decidePerms[req.Type] {
		if actor.HasPermission(perm) {
			return true
		}
	}
	// Post-approval actors need to see what they are expected to move along
	for _, roles := range advanceRoles[req.Type] {
		for _, role := range roles {
			if actor.Role == role {
				return true
			}
		}
	}
	return false
}

// CanAdvance reports whether the actor may move the request into nextState along
// the post-approval chain.
func CanAdvance(actor Actor, req *model.Request, nextState string) bool {
	if actor.Role == RoleAdmin {
		return true
	}
	states, ok := advanceRoles[req.Type]
	if !ok {
		return false
	}
	for _, role := range states[nextState] {
		if actor.Role == role {
			return true
		}
	}
	return false
}

// ReviewerRoles returns the roles eligible to decide the given request type,
// used to fan out submission notifications.
func ReviewerRoles(requestType string) []string {
	roles := append([]string{}, decideRoles[requestType]...)
	return append(roles, RoleAdmin)
}
