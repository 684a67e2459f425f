package monitor

import (
	"context"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/psumond/internal/errors"
	"codeberg.org/mutker/psumond/internal/logger"
)

// DaemonState tracks the lifecycle of the update loop.
type DaemonState int32

const (
	Starting DaemonState = iota
	Running
	Stopping
)

func (s DaemonState) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Daemon runs update cycles at a fixed interval until its context is
// cancelled. Ticks are strictly sequential: a new cycle never starts
// before the previous one completes.
type Daemon struct {
	monitor  *Monitor
	interval time.Duration
	state    atomic.Int32
}

func NewDaemon(m *Monitor, interval time.Duration) (*Daemon, error) {
	if interval <= 0 {
		return nil, errors.New().WithData(errors.ErrInvalidInterval, interval)
	}

	return &Daemon{
		monitor:  m,
		interval: interval,
	}, nil
}

func (d *Daemon) State() DaemonState {
	return DaemonState(d.state.Load())
}

func (d *Daemon) setState(state DaemonState) {
	d.state.Store(int32(state))
	logger.Debug().Str("state", state.String()).Msg("Daemon state changed")
}

// Run publishes the chassis row, then executes one cycle per interval
// until ctx is cancelled. Cancellation during the inter-tick wait
// wakes the loop immediately; on the way out every published row is
// deleted.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.monitor.PublishChassis(); err != nil {
		return errors.New().Wrap(errors.ErrMainLoop, err)
	}
	d.setState(Running)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		d.monitor.RunCycle()

		select {
		case <-ctx.Done():
			d.setState(Stopping)
			d.monitor.ClearPublished()
			return nil
		case <-ticker.C:
		}
	}
}
