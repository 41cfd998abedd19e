package gateway

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Route maps an inbound path prefix to a downstream service. The rewrite
// rule is either RewritePrefix (remap to a different prefix) or, when it
// is empty, the path is forwarded unchanged. Resource names the RBAC
// resource checked before forwarding; empty skips the permission check.
type Route struct {
	PathPrefix    string
	Downstream    string
	RewritePrefix string
	RequiresAuth  bool
	Resource      string
	TeamScoped    bool
}

// Table is the immutable route table, resolved longest-prefix-first.
// It is built once at startup and never mutated mid-request.
type Table struct {
	routes []Route
}

// NewTable validates the routes and sorts them by descending prefix
// length. Sorting is what keeps a specific endpoint (e.g. a resolution
// sub-path) from being shadowed by its generic containing prefix; this is
// a correctness requirement, not an optimization.
func NewTable(routes []Route) (*Table, error) {
	if len(routes) == 0 {
		return nil, fmt.Errorf("route table is empty")
	}

	seen := make(map[string]struct{}, len(routes))
	for _, r := range routes {
		if !strings.HasPrefix(r.PathPrefix, "/") {
			return nil, fmt.Errorf("route prefix %q must start with '/'", r.PathPrefix)
		}
		if _, ok := seen[r.PathPrefix]; ok {
			return nil, fmt.Errorf("duplicate route prefix %q", r.PathPrefix)
		}
		seen[r.PathPrefix] = struct{}{}

		u, err := url.Parse(r.Downstream)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("route %q has invalid downstream URL %q", r.PathPrefix, r.Downstream)
		}
		if r.RewritePrefix != "" && !strings.HasPrefix(r.RewritePrefix, "/") {
			return nil, fmt.Errorf("route %q rewrite prefix %q must start with '/'", r.PathPrefix, r.RewritePrefix)
		}
	}

	sorted := make([]Route, len(routes))
	copy(sorted, routes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].PathPrefix) > len(sorted[j].PathPrefix)
	})

	return &Table{routes: sorted}, nil
}

// Match resolves the inbound path to a route. Prefixes match on segment
// boundaries: /api/orders matches /api/orders and /api/orders/42 but not
// /api/ordersx.
func (t *Table) Match(path string) (*Route, bool) {
	for i := range t.routes {
		r := &t.routes[i]
		if path == r.PathPrefix || strings.HasPrefix(path, r.PathPrefix+"/") {
			return r, true
		}
	}
	return nil, false
}

// DownstreamPath applies the route's rewrite rule to the inbound path.
func (r *Route) DownstreamPath(path string) string {
	if r.RewritePrefix == "" {
		return path
	}
	rest := strings.TrimPrefix(path, r.PathPrefix)
	return r.RewritePrefix + rest
}
