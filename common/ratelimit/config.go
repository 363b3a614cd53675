package ratelimit

// Policy defines a fixed-window limit for one route group
type Policy struct {
	Scope         string // Key namespace, e.g. "public_form"
	Limit         int64  // Requests allowed per window
	WindowSeconds int    // Time window in seconds
}

// DefaultPublicPolicy applies to unauthenticated form and size routes
var DefaultPublicPolicy = Policy{
	Scope:         "public",
	Limit:         30,
	WindowSeconds: 60,
}
