package backend

import "sync/atomic"

// RoundRobinBalancer cycles through the available hosts of a service.
type RoundRobinBalancer struct {
	hosts   []*Host
	current atomic.Uint64
}

// NewRoundRobinBalancer creates a balancer over a fixed host list.
func NewRoundRobinBalancer(hosts []*Host) *RoundRobinBalancer {
	return &RoundRobinBalancer{hosts: hosts}
}

// Next returns the next available host, or nil when none is. Unavailable
// hosts are skipped in place.
func (b *RoundRobinBalancer) Next() *Host {
	n := uint64(len(b.hosts))
	if n == 0 {
		return nil
	}

	start := b.current.Add(1) - 1
	for i := uint64(0); i < n; i++ {
		if h := b.hosts[(start+i)%n]; h.Available() {
			return h
		}
	}
	return nil
}

// Hosts returns every host, available or not.
func (b *RoundRobinBalancer) Hosts() []*Host {
	return b.hosts
}
