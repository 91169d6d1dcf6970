package frontend

import (
	"context"
	"log/slog"
	"time"

	"github.com/retrohost/retrohost/internal/audio"
	"github.com/retrohost/retrohost/internal/metrics"
	"github.com/retrohost/retrohost/internal/protocol"
)

// busyWaitInterval is how long the ticker sleeps between occupancy checks
// while waiting for the audio sink to drain below its threshold.
const busyWaitInterval = time.Millisecond

// Pacer issues blocking Run requests gated by how full the audio sink
// is: after each Run completes, the ticker busy-waits until the sink has
// drained below a threshold of two frames' worth of samples before
// issuing the next one. A core that produces audio faster than it is
// consumed is throttled instead of running unbounded ahead of playback.
type Pacer struct {
	log       *slog.Logger
	adapter   *protocol.Adapter
	sink      audio.Sink
	threshold int // occupancy frames below which the next Run is issued
}

// NewPacer builds a Pacer whose drain threshold is two frames' worth of
// samples at the core's reported sample rate and fps, per
// sampleRate/fps*2. sink may be nil, in which case every Run is issued
// back to back with no wait.
func NewPacer(log *slog.Logger, adapter *protocol.Adapter, sink audio.Sink, sampleRate, fps float64) *Pacer {
	if log == nil {
		log = slog.Default()
	}
	if fps <= 0 {
		fps = 60
	}
	return &Pacer{
		log:       log,
		adapter:   adapter,
		sink:      sink,
		threshold: int(sampleRate / fps * 2),
	}
}

// Run issues Run requests until ctx is cancelled or one comes back with
// an error, e.g. because the backend disconnected. On cancellation it
// sends Unload then Deinit before returning, so the core is always left
// cleanly torn down rather than relying on the backend noticing EOF.
func (p *Pacer) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return p.shutdown()
		}

		start := time.Now()
		if _, err := protocol.Expect[protocol.RunResponse](p.adapter.Send(protocol.Run{})); err != nil {
			return err
		}
		metrics.RunRoundTripSeconds.Observe(time.Since(start).Seconds())

		if err := p.waitForDrain(ctx); err != nil {
			return p.shutdown()
		}
	}
}

// waitForDrain busy-waits in short sleeps until the sink's occupancy
// falls below p.threshold, or ctx is cancelled.
func (p *Pacer) waitForDrain(ctx context.Context) error {
	if p.sink == nil {
		return nil
	}
	start := time.Now()
	for {
		occupancy := p.sink.OccupancyFrames()
		metrics.AudioOccupancyFrames.Set(float64(occupancy))
		if occupancy < p.threshold {
			metrics.PacerDrainWaitSeconds.Observe(time.Since(start).Seconds())
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(busyWaitInterval):
		}
	}
}

// shutdown sends Unload then Deinit so the core is unloaded and
// deinitialized before the frontend exits, per the shutdown handshake.
// Neither message carries a response; they are fire-and-forget, same as
// the frontend's initial Init/Load.
func (p *Pacer) shutdown() error {
	p.log.Info("pacer shutting down, unloading and deinitializing core")
	p.adapter.Send(protocol.Unload{})
	p.adapter.Send(protocol.Deinit{})
	return context.Canceled
}
