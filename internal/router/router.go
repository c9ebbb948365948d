package router

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/vyrodovalexey/apigw/internal/config"
	"github.com/vyrodovalexey/apigw/internal/util"
)

// Route is a compiled route definition.
type Route struct {
	Name    string
	Service string
	Config  config.Route

	matcher *PrefixMatcher
}

// Prefix returns the literal path prefix of the route.
func (r *Route) Prefix() string {
	return r.matcher.Pattern()
}

// Router is an immutable route table.
type Router struct {
	routes []*Route
}

// New compiles routes. Route names must be unique.
func New(routes []config.Route) (*Router, error) {
	r := &Router{routes: make([]*Route, 0, len(routes))}
	seen := make(map[string]struct{}, len(routes))

	for i := range routes {
		cfg := routes[i]
		if _, exists := seen[cfg.Name]; exists {
			return nil, fmt.Errorf("duplicate route name: %s", cfg.Name)
		}
		compiled := &Route{
			Name:    cfg.Name,
			Service: cfg.Service,
			Config:  cfg,
			matcher: NewPrefixMatcher(cfg.PathPrefix()),
		}
		r.routes = append(r.routes, compiled)
		seen[cfg.Name] = struct{}{}
	}

	// Longest prefix first; ties keep declaration order.
	sort.SliceStable(r.routes, func(i, j int) bool {
		return len(r.routes[i].Prefix()) > len(r.routes[j].Prefix())
	})

	return r, nil
}

// Match returns the most specific route for path.
func (r *Router) Match(path string) (*Route, bool) {
	for _, route := range r.routes {
		if route.matcher.Match(path) {
			return route, true
		}
	}
	return nil, false
}

// MatchRequest is Match for a request, returning a RouteNotFoundError on miss.
func (r *Router) MatchRequest(req *http.Request) (*Route, error) {
	if route, ok := r.Match(req.URL.Path); ok {
		return route, nil
	}
	return nil, util.NewRouteNotFoundError(req.Method, req.URL.Path)
}

// Routes returns the routes in match order.
func (r *Router) Routes() []*Route {
	routes := make([]*Route, len(r.routes))
	copy(routes, r.routes)
	return routes
}
