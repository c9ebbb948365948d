package backend

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/vyrodovalexey/apigw/internal/config"
	"github.com/vyrodovalexey/apigw/internal/observability"
)

// Health check defaults.
const (
	DefaultHealthCheckTimeout  = 5 * time.Second
	DefaultHealthCheckInterval = 10 * time.Second
	DefaultHealthyThreshold    = 2
	DefaultUnhealthyThreshold  = 3
)

// HealthStatusFunc is called when a host's health status changes.
type HealthStatusFunc func(service, address string, healthy bool)

// HealthChecker periodically probes the hosts of one service.
type HealthChecker struct {
	service            string
	hosts              []*Host
	path               string
	interval           time.Duration
	client             *http.Client
	logger             observability.Logger
	onStatusChange     HealthStatusFunc
	healthyThreshold   int
	unhealthyThreshold int

	mu              sync.Mutex
	running         bool
	stopCh          chan struct{}
	stoppedCh       chan struct{}
	healthyCounts   map[*Host]int
	unhealthyCounts map[*Host]int
}

// HealthCheckOption is a functional option for the health checker.
type HealthCheckOption func(*HealthChecker)

// WithHealthCheckLogger sets the logger.
func WithHealthCheckLogger(logger observability.Logger) HealthCheckOption {
	return func(hc *HealthChecker) {
		hc.logger = logger
	}
}

// WithHealthCheckTransport sets the transport used for probes. The probe
// timeout still applies.
func WithHealthCheckTransport(rt http.RoundTripper) HealthCheckOption {
	return func(hc *HealthChecker) {
		hc.client.Transport = rt
	}
}

// WithHealthStatusCallback sets a callback for host status changes.
func WithHealthStatusCallback(fn HealthStatusFunc) HealthCheckOption {
	return func(hc *HealthChecker) {
		hc.onStatusChange = fn
	}
}

// NewHealthChecker creates a health checker for the hosts of service.
func NewHealthChecker(service string, hosts []*Host, cfg config.HealthCheck, opts ...HealthCheckOption) *HealthChecker {
	hc := &HealthChecker{
		service:            service,
		hosts:              hosts,
		path:               cfg.Path,
		interval:           cfg.Interval.OrDefault(DefaultHealthCheckInterval),
		client:             &http.Client{Timeout: cfg.Timeout.OrDefault(DefaultHealthCheckTimeout)},
		logger:             observability.NopLogger(),
		healthyThreshold:   cfg.HealthyThreshold,
		unhealthyThreshold: cfg.UnhealthyThreshold,
		healthyCounts:      make(map[*Host]int),
		unhealthyCounts:    make(map[*Host]int),
	}
	if hc.healthyThreshold <= 0 {
		hc.healthyThreshold = DefaultHealthyThreshold
	}
	if hc.unhealthyThreshold <= 0 {
		hc.unhealthyThreshold = DefaultUnhealthyThreshold
	}

	for _, opt := range opts {
		opt(hc)
	}
	return hc
}

// Start runs the probe loop until Stop or ctx is done.
func (hc *HealthChecker) Start(ctx context.Context) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	if hc.running {
		return
	}
	hc.running = true
	hc.stopCh = make(chan struct{})
	hc.stoppedCh = make(chan struct{})

	go hc.run(ctx, hc.stopCh, hc.stoppedCh)
}

// Stop ends the probe loop and waits for it to exit.
func (hc *HealthChecker) Stop() {
	hc.mu.Lock()
	if !hc.running {
		hc.mu.Unlock()
		return
	}
	hc.running = false
	stopCh, stoppedCh := hc.stopCh, hc.stoppedCh
	hc.mu.Unlock()

	close(stopCh)
	<-stoppedCh
}

func (hc *HealthChecker) run(ctx context.Context, stopCh <-chan struct{}, stoppedCh chan<- struct{}) {
	defer close(stoppedCh)

	ticker := time.NewTicker(hc.interval)
	defer ticker.Stop()

	hc.CheckAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			hc.CheckAll(ctx)
		}
	}
}

// CheckAll probes every host once, concurrently.
func (hc *HealthChecker) CheckAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, host := range hc.hosts {
		wg.Add(1)
		go func(h *Host) {
			defer wg.Done()
			hc.checkHost(ctx, h)
		}(host)
	}
	wg.Wait()
}

func (hc *HealthChecker) checkHost(ctx context.Context, host *Host) {
	if ctx.Err() != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host.URL+hc.path, http.NoBody)
	if err != nil {
		hc.recordFailure(host, err)
		return
	}

	resp, err := hc.client.Do(req)
	if err != nil {
		hc.recordFailure(host, err)
		return
	}
	_ = resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		hc.recordSuccess(host)
		return
	}
	hc.recordFailure(host, nil)
}

func (hc *HealthChecker) recordSuccess(host *Host) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.healthyCounts[host]++
	hc.unhealthyCounts[host] = 0

	if hc.healthyCounts[host] >= hc.healthyThreshold && host.Status() != StatusHealthy {
		hc.logger.Info("host became healthy",
			observability.String("service", hc.service),
			observability.String("address", host.URL),
		)
		host.SetStatus(StatusHealthy)
		if hc.onStatusChange != nil {
			hc.onStatusChange(hc.service, host.URL, true)
		}
	}
}

func (hc *HealthChecker) recordFailure(host *Host, err error) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.unhealthyCounts[host]++
	hc.healthyCounts[host] = 0

	if hc.unhealthyCounts[host] >= hc.unhealthyThreshold && host.Status() != StatusUnhealthy {
		fields := []observability.Field{
			observability.String("service", hc.service),
			observability.String("address", host.URL),
		}
		if err != nil {
			fields = append(fields, observability.Error(err))
		}
		hc.logger.Warn("host became unhealthy", fields...)
		host.SetStatus(StatusUnhealthy)
		if hc.onStatusChange != nil {
			hc.onStatusChange(hc.service, host.URL, false)
		}
	}
}
