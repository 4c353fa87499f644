package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Liveness probing defaults. With these values a dead peer is noticed
// within three probe intervals plus one probe timeout (95 seconds),
// which is tolerable for sessions that sit idle between acquisitions.
const (
	// DefaultProbeInterval is the time between liveness probes.
	DefaultProbeInterval = 30 * time.Second

	// DefaultProbeTimeout bounds one ping/pong exchange.
	DefaultProbeTimeout = 5 * time.Second

	// DefaultMaxMissedProbes is how many consecutive failed probes are
	// tolerated before the peer is declared unreachable.
	DefaultMaxMissedProbes = 3
)

// KeepAliveConfig tunes idle-connection liveness probing.
type KeepAliveConfig struct {
	// ProbeInterval is the time between probes.
	ProbeInterval time.Duration

	// ProbeTimeout bounds a single probe exchange.
	ProbeTimeout time.Duration

	// MaxMissedProbes is the number of consecutive probe failures
	// tolerated before the connection is declared down.
	MaxMissedProbes int
}

// DefaultKeepAliveConfig returns the default probing configuration.
func DefaultKeepAliveConfig() KeepAliveConfig {
	return KeepAliveConfig{
		ProbeInterval:   DefaultProbeInterval,
		ProbeTimeout:    DefaultProbeTimeout,
		MaxMissedProbes: DefaultMaxMissedProbes,
	}
}

// WithDefaults fills unset fields with the default values.
func (c KeepAliveConfig) WithDefaults() KeepAliveConfig {
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = DefaultProbeInterval
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.MaxMissedProbes <= 0 {
		c.MaxMissedProbes = DefaultMaxMissedProbes
	}
	return c
}

// DetectionDelay is the worst-case time between a peer dying and the
// monitor noticing.
func (c KeepAliveConfig) DetectionDelay() time.Duration {
	c = c.WithDefaults()
	return c.ProbeInterval*time.Duration(c.MaxMissedProbes) + c.ProbeTimeout
}

// ProbeFunc performs one liveness exchange: send a ping carrying seq
// and wait up to timeout for the matching pong. It must be safe to
// call from the monitor's goroutine while the connection is also used
// for requests.
type ProbeFunc func(seq uint32, timeout time.Duration) error

// KeepAlive periodically probes a connection that may otherwise sit
// idle for long stretches. Consecutive probe failures past the
// configured threshold trigger the onDown callback once, after which
// the monitor stops until Start is called again.
type KeepAlive struct {
	config KeepAliveConfig
	probe  ProbeFunc
	onDown func(err error)

	seq atomic.Uint32

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	missed  int
	probes  uint64
	lastOK  time.Time
	lastRTT time.Duration
}

// NewKeepAlive creates a liveness monitor. Unset config fields take
// their defaults. onDown may be nil.
func NewKeepAlive(config KeepAliveConfig, probe ProbeFunc, onDown func(err error)) *KeepAlive {
	return &KeepAlive{
		config: config.WithDefaults(),
		probe:  probe,
		onDown: onDown,
	}
}

// Start launches the probe loop. It is a no-op while already running;
// after a stop or an onDown it can be called again, which also resets
// the missed-probe count.
func (ka *KeepAlive) Start(ctx context.Context) {
	ka.mu.Lock()
	if ka.running {
		ka.mu.Unlock()
		return
	}
	ka.running = true
	ka.missed = 0
	stop := make(chan struct{})
	ka.stopCh = stop
	ka.mu.Unlock()

	go ka.loop(ctx, stop)
}

// Stop halts probing. Safe to call repeatedly.
func (ka *KeepAlive) Stop() {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	if !ka.running {
		return
	}
	ka.running = false
	close(ka.stopCh)
}

// IsRunning reports whether the probe loop is active.
func (ka *KeepAlive) IsRunning() bool {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return ka.running
}

// KeepAliveStats is a snapshot of the monitor's state.
type KeepAliveStats struct {
	// LastSuccess is when the last probe completed, zero if none has.
	LastSuccess time.Time

	// LastRTT is the round-trip time of the last successful probe.
	LastRTT time.Duration

	// MissedProbes counts consecutive failures since the last success.
	MissedProbes int

	// Probes counts all probes attempted since creation.
	Probes uint64
}

// Stats returns a snapshot of the monitor's counters.
func (ka *KeepAlive) Stats() KeepAliveStats {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return KeepAliveStats{
		LastSuccess:  ka.lastOK,
		LastRTT:      ka.lastRTT,
		MissedProbes: ka.missed,
		Probes:       ka.probes,
	}
}

func (ka *KeepAlive) loop(ctx context.Context, stop chan struct{}) {
	defer func() {
		ka.mu.Lock()
		// A restart may have replaced the channel already.
		if ka.stopCh == stop {
			ka.running = false
		}
		ka.mu.Unlock()
	}()

	ticker := time.NewTicker(ka.config.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if !ka.runProbe() {
				return
			}
		}
	}
}

// runProbe performs one exchange and updates the counters. It returns
// false when the miss threshold is crossed, after firing onDown.
func (ka *KeepAlive) runProbe() bool {
	seq := ka.seq.Add(1)
	start := time.Now()
	err := ka.probe(seq, ka.config.ProbeTimeout)

	ka.mu.Lock()
	ka.probes++
	if err == nil {
		ka.missed = 0
		ka.lastOK = time.Now()
		ka.lastRTT = time.Since(start)
		ka.mu.Unlock()
		return true
	}
	ka.missed++
	down := ka.missed >= ka.config.MaxMissedProbes
	ka.mu.Unlock()

	if down {
		if ka.onDown != nil {
			ka.onDown(err)
		}
		return false
	}
	return true
}
