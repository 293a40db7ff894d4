package types

// StatusPolicy validates user status transitions.
type StatusPolicy interface {
	Validate(current, target UserStatus) error
	AllowedTargets(current UserStatus) []UserStatus
}

// StaticStatusPolicy enforces a fixed transition graph.
type StaticStatusPolicy struct {
	graph map[UserStatus]map[UserStatus]struct{}
}

// NewStaticStatusPolicy creates a policy from a transition graph.
func NewStaticStatusPolicy(graph map[UserStatus][]UserStatus) *StaticStatusPolicy {
	internal := make(map[UserStatus]map[UserStatus]struct{}, len(graph))
	for from, targets := range graph {
		targetSet := make(map[UserStatus]struct{}, len(targets))
		for _, to := range targets {
			if to == "" {
				continue
			}
			targetSet[to] = struct{}{}
		}
		internal[from] = targetSet
	}
	return &StaticStatusPolicy{graph: internal}
}

// DefaultStatusPolicy returns the account graph: active users can be locked
// or deactivated, locked users can only be unlocked or deactivated and
// inactive users can be reactivated.
func DefaultStatusPolicy() *StaticStatusPolicy {
	return NewStaticStatusPolicy(map[UserStatus][]UserStatus{
		UserStatusActive:   {UserStatusLocked, UserStatusInactive},
		UserStatusLocked:   {UserStatusActive, UserStatusInactive},
		UserStatusInactive: {UserStatusActive},
	})
}

// Validate ensures the target is allowed from the current state.
func (p *StaticStatusPolicy) Validate(current, target UserStatus) error {
	if current == "" || target == "" {
		return IllegalTransition(current, target)
	}
	targets, ok := p.graph[current]
	if !ok {
		return IllegalTransition(current, target)
	}
	if _, ok := targets[target]; !ok {
		return IllegalTransition(current, target)
	}
	return nil
}

// AllowedTargets returns the slice of valid targets from the provided state.
func (p *StaticStatusPolicy) AllowedTargets(current UserStatus) []UserStatus {
	targets := p.graph[current]
	if len(targets) == 0 {
		return nil
	}
	out := make([]UserStatus, 0, len(targets))
	for target := range targets {
		out = append(out, target)
	}
	return out
}
