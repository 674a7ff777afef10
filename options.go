package framepipe

import "go.uber.org/zap"

// Defaults applied by New.
const (
	DefaultQueueSize = 10
	DefaultFrameRate = 24.0
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the structured logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithObserver installs a telemetry observer. Default: NopObserver.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithQueueSize sets the capacity of both channels. Default: 10.
func WithQueueSize(n int) Option {
	return func(p *Pipeline) { p.queueSize = n }
}

// WithFrameRate sets the output rate the default pacer holds. Default: 24.
// Ignored when WithPacer is given.
func WithFrameRate(fps float64) Option {
	return func(p *Pipeline) { p.frameRate = fps }
}

// WithPacer replaces the default fixed-delay pacer.
func WithPacer(pc Pacer) Option {
	return func(p *Pipeline) { p.pacer = pc }
}
