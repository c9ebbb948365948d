package router

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/apigw/internal/config"
	"github.com/vyrodovalexey/apigw/internal/util"
)

func testRoutes() []config.Route {
	return []config.Route{
		{Name: "api", Path: "/api/**", Service: "catch-all"},
		{Name: "users", Path: "/api/users/**", Service: "user-service"},
		{Name: "orders", Path: "/api/orders/**", Service: "order-service"},
		{Name: "user-admin", Path: "/api/users/admin", Service: "admin-service"},
	}
}

func TestPrefixMatcher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix string
		path   string
		want   bool
	}{
		{"/api/users", "/api/users", true},
		{"/api/users", "/api/users/42", true},
		{"/api/users", "/api/usersx", false},
		{"/api/users", "/api", false},
		{"/api/", "/api/anything", true},
		{"/", "/whatever", true},
	}

	for _, tt := range tests {
		t.Run(tt.prefix+" "+tt.path, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NewPrefixMatcher(tt.prefix).Match(tt.path))
		})
	}
}

func TestRouter_Match(t *testing.T) {
	t.Parallel()

	r, err := New(testRoutes())
	require.NoError(t, err)

	tests := []struct {
		name      string
		path      string
		wantRoute string
		wantOK    bool
	}{
		{name: "users list", path: "/api/users", wantRoute: "users", wantOK: true},
		{name: "user by id", path: "/api/users/42", wantRoute: "users", wantOK: true},
		{name: "longest prefix", path: "/api/users/admin/roles", wantRoute: "user-admin", wantOK: true},
		{name: "orders", path: "/api/orders/7", wantRoute: "orders", wantOK: true},
		{name: "falls back to shorter prefix", path: "/api/products/1", wantRoute: "api", wantOK: true},
		{name: "segment boundary", path: "/api/usersx", wantRoute: "api", wantOK: true},
		{name: "no route", path: "/other", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			route, ok := r.Match(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				require.NotNil(t, route)
				assert.Equal(t, tt.wantRoute, route.Name)
			}
		})
	}
}

func TestRouter_MatchRequest(t *testing.T) {
	t.Parallel()

	r, err := New(testRoutes())
	require.NoError(t, err)

	route, err := r.MatchRequest(httptest.NewRequest("GET", "/api/orders", nil))
	require.NoError(t, err)
	assert.Equal(t, "order-service", route.Service)

	_, err = r.MatchRequest(httptest.NewRequest("GET", "/nope", nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrRouteNotFound))
}

func TestNew_DuplicateName(t *testing.T) {
	t.Parallel()

	_, err := New([]config.Route{
		{Name: "a", Path: "/a", Service: "s"},
		{Name: "a", Path: "/b", Service: "s"},
	})
	assert.Error(t, err)
}

func TestRouter_Accessors(t *testing.T) {
	t.Parallel()

	r, err := New(testRoutes())
	require.NoError(t, err)

	routes := r.Routes()
	require.Len(t, routes, 4)
	assert.Equal(t, "user-admin", routes[0].Name)
	assert.Equal(t, "api", routes[3].Name)
}
