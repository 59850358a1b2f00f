package auth

import "sort"

// AllowList is the set of roles permitted through a gate. A nil AllowList
// means "any authenticated user with a resolvable profile".
type AllowList map[Role]struct{}

// AnyRole places no role restriction on a gate.
var AnyRole AllowList

// Roles builds an AllowList. Roles() with no arguments yields an empty,
// non-nil list that nobody passes.
func Roles(roles ...Role) AllowList {
	out := make(AllowList, len(roles))
	for _, r := range roles {
		out[r] = struct{}{}
	}
	return out
}

// ParseRoles builds an AllowList from raw strings.
func ParseRoles(roles ...string) AllowList {
	out := make(AllowList, len(roles))
	for _, r := range roles {
		out[Role(r)] = struct{}{}
	}
	return out
}

// Restricted reports whether the list restricts anything.
func (a AllowList) Restricted() bool { return a != nil }

// Contains reports whether role is in the list. It is false on a nil list;
// callers check Restricted first.
func (a AllowList) Contains(role Role) bool {
	_, ok := a[role]
	return ok
}

// Permits applies the allow-list rule to a profile role: a nil list permits
// everyone, otherwise either the stored role or its mapped form must be listed.
func (a AllowList) Permits(role Role) bool {
	if !a.Restricted() {
		return true
	}
	return a.Contains(role) || a.Contains(MapRole(role))
}

// Slice returns the roles in a stable order.
func (a AllowList) Slice() []Role {
	out := make([]Role, 0, len(a))
	for r := range a {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DenialView is the data shown when an authenticated user lacks the
// required role. Rendering is up to the transport.
type DenialView struct {
	CurrentRole      Role   `json:"current_role"`
	CurrentRoleLabel string `json:"current_role_label"`
	AllowedRoles     []Role `json:"allowed_roles"`
}

// NewDenialView builds the view for a role rejected by allowed.
func NewDenialView(current Role, allowed AllowList) DenialView {
	return DenialView{
		CurrentRole:      current,
		CurrentRoleLabel: current.Label(),
		AllowedRoles:     allowed.Slice(),
	}
}

// Outcome is the terminal state of one gate evaluation.
type Outcome string

const (
	// OutcomeAllow means the profile passed and is returned to the caller.
	OutcomeAllow Outcome = "allow"
	// OutcomeRedirect means there was no session or no resolvable profile.
	OutcomeRedirect Outcome = "redirect"
	// OutcomeDeny means the profile's role is not in the allow-list.
	OutcomeDeny Outcome = "deny"
	// OutcomeDisabled means the backend is not configured.
	OutcomeDisabled Outcome = "disabled"
)
