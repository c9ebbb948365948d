package gateway

import "net/http"

// Stage names, outermost first.
const (
	StageRecovery    = "recovery"
	StageTracing     = "tracing"
	StageMetrics     = "metrics"
	StageLogging     = "logging"
	StageCorrelation = "correlation"
	StageRateLimit   = "ratelimit"
	StageAuth        = "auth"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Stage is one named step of the pipeline.
type Stage struct {
	Name       string
	Middleware Middleware
}

// Pipeline is an ordered, immutable list of stages. The first stage is
// the outermost one.
type Pipeline struct {
	stages []Stage
}

// NewPipeline creates a pipeline. Stages without a middleware are
// dropped, which is how disabled stages are expressed.
func NewPipeline(stages ...Stage) *Pipeline {
	p := &Pipeline{stages: make([]Stage, 0, len(stages))}
	for _, s := range stages {
		if s.Middleware != nil {
			p.stages = append(p.stages, s)
		}
	}
	return p
}

// Handler composes the stages around final.
func (p *Pipeline) Handler(final http.Handler) http.Handler {
	h := final
	for i := len(p.stages) - 1; i >= 0; i-- {
		h = p.stages[i].Middleware(h)
	}
	return h
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}
