package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func recordingStage(name string, trace *[]string) Stage {
	return Stage{
		Name: name,
		Middleware: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				*trace = append(*trace, name+">")
				next.ServeHTTP(w, r)
				*trace = append(*trace, "<"+name)
			})
		},
	}
}

func TestPipeline_Order(t *testing.T) {
	t.Parallel()

	var trace []string
	p := NewPipeline(
		recordingStage("logging", &trace),
		recordingStage("correlation", &trace),
		recordingStage("auth", &trace),
	)

	final := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		trace = append(trace, "router")
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	p.Handler(final).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{
		"logging>", "correlation>", "auth>", "router", "<auth", "<correlation", "<logging",
	}, trace)
	assert.Equal(t, []string{"logging", "correlation", "auth"}, p.Stages())
}

func TestPipeline_SkipsDisabledStages(t *testing.T) {
	t.Parallel()

	var trace []string
	p := NewPipeline(
		recordingStage("logging", &trace),
		Stage{Name: "ratelimit"},
		recordingStage("auth", &trace),
	)
	assert.Equal(t, []string{"logging", "auth"}, p.Stages())

	p.Handler(http.NotFoundHandler()).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"logging>", "auth>", "<auth", "<logging"}, trace)
}

func TestPipeline_Empty(t *testing.T) {
	t.Parallel()

	p := NewPipeline()
	assert.Empty(t, p.Stages())

	rec := httptest.NewRecorder()
	p.Handler(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
