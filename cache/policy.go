package cache

import "time"

// Policy configures the TTL of one category.
type Policy struct {
	// DefaultTTL is the TTL to use when none is specified.
	// If zero, the category is not cached.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. Override TTLs are clamped to this.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration
}

// DefaultPolicy returns the default caching policy.
// DefaultTTL: 5 minutes, MaxTTL: 1 hour
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL: 5 * time.Minute,
		MaxTTL:     1 * time.Hour,
	}
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{}
}

// DefaultPolicies returns the per-category policies. Task, project and
// review data changes often; tags and folders rarely; analytics is an
// aggregate that tolerates an hour of staleness.
func DefaultPolicies() map[Category]Policy {
	return map[Category]Policy{
		Tasks:     {DefaultTTL: 5 * time.Minute, MaxTTL: time.Hour},
		Projects:  {DefaultTTL: 5 * time.Minute, MaxTTL: time.Hour},
		Tags:      {DefaultTTL: 10 * time.Minute, MaxTTL: time.Hour},
		Folders:   {DefaultTTL: 10 * time.Minute, MaxTTL: time.Hour},
		Analytics: {DefaultTTL: time.Hour, MaxTTL: 4 * time.Hour},
		Reviews:   {DefaultTTL: 5 * time.Minute, MaxTTL: time.Hour},
	}
}

// ShouldCache returns true if caching is enabled by this policy.
func (p Policy) ShouldCache() bool {
	return p.DefaultTTL > 0
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	// Use default if no override (or negative override)
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}

	// Clamp to MaxTTL if set
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}

	return ttl
}

// DefaultDependents maps a category to the categories derived from it.
// Invalidating a category applies the same event to its dependents,
// transitively.
func DefaultDependents() map[Category][]Category {
	return map[Category][]Category{
		Tasks:    {Analytics},
		Projects: {Analytics, Reviews},
		Folders:  {Projects},
	}
}
