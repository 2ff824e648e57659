// Package identity derives a stable caller identity from trust-boundary
// request headers. The identity header is only as trustworthy as the
// authenticating proxy deployed in front of this service; callers without one
// collapse to an anonymous identity keyed by network origin.
package identity

import "strings"

// AnonPrefix tags identities synthesized from the caller's network origin.
const AnonPrefix = "anon:"

// PlanNone is the claimed plan for callers that assert nothing.
const PlanNone = "none"

// User is a per-request caller identity. It is computed fresh for every
// request and never persisted as a bare value.
type User struct {
	ID          string
	ClaimedPlan string
}

// Anonymous reports whether the identity was synthesized from the network
// origin rather than asserted by the upstream proxy.
func (u User) Anonymous() bool {
	return strings.HasPrefix(u.ID, AnonPrefix)
}

// Resolve derives the caller identity from the identity and plan headers.
// A missing or whitespace-only identity header falls back to anon:<origin>,
// and anonymous callers cannot self-assert a plan.
func Resolve(origin, idHeader, planHeader string) User {
	id := strings.TrimSpace(idHeader)
	if id == "" {
		return User{ID: AnonPrefix + origin, ClaimedPlan: PlanNone}
	}

	plan := strings.TrimSpace(planHeader)
	if plan == "" {
		plan = PlanNone
	}
	return User{ID: id, ClaimedPlan: plan}
}
