package httpx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(body string) HandlerFunc {
	return func(r *Request, p Params) (Responder, error) { return String(body), nil }
}

func userDetail(r *Request, p Params) (Responder, error) {
	return Structured{V: p}, nil
}

func TestRouter_UserDetailScenario(t *testing.T) {
	rt := NewRouter()
	rt.Get("/users/<id>", ok("user"), WithName("user_detail"))

	route, params, found := rt.Resolve("GET", "/users/42")
	require.True(t, found)
	assert.Equal(t, "user_detail", route.Name)
	assert.Equal(t, Params{"id": "42"}, params)

	path, err := rt.Reverse("user_detail", map[string]any{"id": 42})
	require.NoError(t, err)
	assert.Equal(t, "/users/42", path)
}

func TestRouter_MethodMustMatch(t *testing.T) {
	rt := NewRouter()
	rt.Get("/users/<id>", ok("get"))
	_, _, found := rt.Resolve("POST", "/users/1")
	assert.False(t, found)
}

func TestRouter_QueryIgnoredAndAnchored(t *testing.T) {
	rt := NewRouter()
	rt.Get("/users/<id>", ok("u"))

	_, p, found := rt.Resolve("GET", "/users/9?verbose=1")
	require.True(t, found)
	assert.Equal(t, "9", p["id"])

	for _, path := range []string{"/users/", "/users/9/extra", "/prefix/users/9", "/users"} {
		_, _, found := rt.Resolve("GET", path)
		assert.False(t, found, path)
	}
}

func TestRouter_LiteralsAreNotRegexp(t *testing.T) {
	rt := NewRouter()
	rt.Get("/files/<name>.txt", ok("f"))

	_, p, found := rt.Resolve("GET", "/files/report.txt")
	require.True(t, found)
	assert.Equal(t, "report", p["name"])

	_, _, found = rt.Resolve("GET", "/files/reportXtxt")
	assert.False(t, found)
}

func TestRouter_FirstRegisteredWins(t *testing.T) {
	rt := NewRouter()
	first := rt.Get("/items/<id>", ok("generic"))
	rt.Get("/items/new", ok("specific"))

	route, _, found := rt.Resolve("GET", "/items/new")
	require.True(t, found)
	assert.Same(t, first, route)
}

func TestRouter_MultipleCaptures(t *testing.T) {
	rt := NewRouter()
	rt.Get("/orgs/<org>/repos/<repo>", ok("r"), WithName("repo"))

	_, p, found := rt.Resolve("GET", "/orgs/acme/repos/citra")
	require.True(t, found)
	assert.Equal(t, Params{"org": "acme", "repo": "citra"}, p)
	route, _, _ := rt.Resolve("GET", "/orgs/acme/repos/citra")
	assert.Equal(t, []string{"org", "repo"}, route.Placeholders())
}

func TestRouter_ReverseRoundTrip(t *testing.T) {
	rt := NewRouter()
	rt.Get("/", ok("home"), WithName("home"))
	rt.Get("/users/<id>", ok("u"), WithName("user"))
	rt.Delete("/orgs/<org>/members/<user>", ok("m"), WithName("member"))

	cases := []struct {
		name   string
		method string
		params map[string]any
	}{
		{"home", "GET", nil},
		{"user", "GET", map[string]any{"id": 7}},
		{"member", "DELETE", map[string]any{"org": "acme", "user": "ada"}},
	}
	for _, tc := range cases {
		path, err := rt.Reverse(tc.name, tc.params)
		require.NoError(t, err)
		route, _, found := rt.Resolve(tc.method, path)
		require.True(t, found, path)
		assert.Equal(t, tc.name, route.Name)
	}
}

func TestRouter_ReverseMissingParamsLeftInPlace(t *testing.T) {
	rt := NewRouter()
	rt.Get("/a/<x>/<y>", ok("a"), WithName("a"))
	path, err := rt.Reverse("a", map[string]any{"x": 1, "unused": 2})
	require.NoError(t, err)
	assert.Equal(t, "/a/1/<y>", path)
}

func TestRouter_ReverseIsDeterministic(t *testing.T) {
	rt := NewRouter()
	rt.Get("/<a>/<b>", ok("n"), WithName("n"))
	for i := 0; i < 200; i++ {
		path, err := rt.Reverse("n", map[string]any{"a": "<b>", "b": "x"})
		require.NoError(t, err)
		require.Equal(t, "/<b>/x", path)
	}
}

func TestRouter_ReverseUnknownName(t *testing.T) {
	_, err := NewRouter().Reverse("nope", nil)
	assert.ErrorIs(t, err, ErrUnknownRouteName)
	assert.Contains(t, err.Error(), "nope")
}

func TestRouter_DuplicateNameOverwrites(t *testing.T) {
	rt := NewRouter()
	rt.Get("/old/<id>", ok("old"), WithName("thing"))
	rt.Get("/new/<id>", ok("new"), WithName("thing"))

	path, err := rt.Reverse("thing", map[string]any{"id": 1})
	require.NoError(t, err)
	assert.Equal(t, "/new/1", path)
	// both routes still resolve
	_, _, found := rt.Resolve("GET", "/old/1")
	assert.True(t, found)
}

func TestRouter_DefaultNames(t *testing.T) {
	rt := NewRouter()
	named := rt.Get("/users/<id>", userDetail)
	anon := rt.Post("/things", ok("x"))
	assert.Equal(t, "userDetail", named.Name)
	assert.Equal(t, "POST /things", anon.Name)

	path, err := rt.Reverse("userDetail", map[string]any{"id": "ada"})
	require.NoError(t, err)
	assert.Equal(t, "/users/ada", path)
}

func TestRouter_Routes(t *testing.T) {
	rt := NewRouter()
	rt.Get("/a", ok("a"))
	rt.Put("/b", ok("b"))
	routes := rt.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, "/a", routes[0].Pattern)
	assert.Equal(t, "PUT", routes[1].Method)
}

func TestRouter_NilHandlerPanics(t *testing.T) {
	assert.Panics(t, func() { NewRouter().Handle("GET", "/", nil) })
}
