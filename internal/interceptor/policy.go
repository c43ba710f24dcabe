package interceptor

import (
	"fmt"
	"strings"
)

// Policy decides which endpoints require transport encryption. It replaces
// the per-endpoint annotation mechanism of the original design with an
// explicit route list resolved once at startup; the middleware itself stays
// endpoint-agnostic.
//
// Patterns are "METHOD /path" entries:
//   - "*" matches every route
//   - "POST /v1/echo" matches exactly
//   - "* /v1/secure/*" matches any method under the prefix
//
// Matching follows the same exact/wildcard/prefix rules used for
// authorization policies elsewhere in the codebase.
type Policy struct {
	rules []policyRule
}

type policyRule struct {
	method string // uppercase, or "*"
	path   string // route pattern, or "*", or "/prefix/*"
}

// NewPolicy parses a list of route patterns. An empty list means no endpoint
// is intercepted.
func NewPolicy(patterns []string) (*Policy, error) {
	policy := &Policy{}

	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if pattern == "*" {
			policy.rules = append(policy.rules, policyRule{method: "*", path: "*"})
			continue
		}

		method, path, ok := strings.Cut(pattern, " ")
		if !ok {
			return nil, fmt.Errorf("invalid route pattern %q: want \"METHOD /path\"", pattern)
		}
		path = strings.TrimSpace(path)
		if !strings.HasPrefix(path, "/") && path != "*" {
			return nil, fmt.Errorf("invalid route pattern %q: path must start with /", pattern)
		}

		policy.rules = append(policy.rules, policyRule{
			method: strings.ToUpper(strings.TrimSpace(method)),
			path:   path,
		})
	}

	return policy, nil
}

// ParsePolicy builds a Policy from a comma-separated pattern list, the format
// used by the ENCRYPTED_ROUTES configuration value.
func ParsePolicy(csv string) (*Policy, error) {
	if strings.TrimSpace(csv) == "" {
		return &Policy{}, nil
	}
	return NewPolicy(strings.Split(csv, ","))
}

// Requires reports whether the given method and route path must be
// intercepted.
func (p *Policy) Requires(method, path string) bool {
	for _, rule := range p.rules {
		if rule.matches(strings.ToUpper(method), path) {
			return true
		}
	}
	return false
}

func (r policyRule) matches(method, path string) bool {
	if r.method != "*" && r.method != method {
		return false
	}
	if r.path == "*" || r.path == path {
		return true
	}
	if prefix, ok := strings.CutSuffix(r.path, "/*"); ok {
		return strings.HasPrefix(path, prefix+"/")
	}
	return false
}
