package summon

import (
	"time"

	"github.com/pixil98/go-horses/internal/horses"
)

// Policy is the set of summon limits that apply to a session.
type Policy struct {
	AllowSummon       bool
	SummonDelay       time.Duration
	DeathCooldown     time.Duration
	DismissOnTeleport bool
}

// PolicyResolver returns the policy that applies to a session.
type PolicyResolver interface {
	Policy(id SessionID) Policy
}

// FixedPolicy applies the same policy to every session.
type FixedPolicy Policy

func (p FixedPolicy) Policy(SessionID) Policy {
	return Policy(p)
}

// PermissionSource reports whether a session holds a permission node.
type PermissionSource interface {
	HasPermission(id SessionID, perm string) bool
}

// PermissionRule applies Policy to sessions holding Permission.
type PermissionRule struct {
	Permission string
	Policy     Policy
}

// PermissionPolicies picks the first rule whose permission the session holds,
// falling back to a default policy.
type PermissionPolicies struct {
	perms PermissionSource
	def   Policy
	rules []PermissionRule
}

func NewPermissionPolicies(perms PermissionSource, def Policy, rules ...PermissionRule) *PermissionPolicies {
	return &PermissionPolicies{
		perms: perms,
		def:   def,
		rules: rules,
	}
}

func (p *PermissionPolicies) Policy(id SessionID) Policy {
	for _, r := range p.rules {
		if p.perms.HasPermission(id, r.Permission) {
			return r.Policy
		}
	}
	return p.def
}

// RegionAuthorizer decides whether a summon may happen at a location.
type RegionAuthorizer interface {
	AllowSummon(id SessionID, at horses.Location) bool
}

// WorldAllowList permits summoning only in the listed worlds. An empty list
// permits every world.
type WorldAllowList struct {
	worlds map[string]struct{}
}

func NewWorldAllowList(worlds ...string) *WorldAllowList {
	w := &WorldAllowList{worlds: make(map[string]struct{}, len(worlds))}
	for _, name := range worlds {
		w.worlds[name] = struct{}{}
	}
	return w
}

func (w *WorldAllowList) AllowSummon(_ SessionID, at horses.Location) bool {
	if len(w.worlds) == 0 {
		return true
	}
	_, ok := w.worlds[at.World]
	return ok
}
