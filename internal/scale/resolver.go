package scale

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPxPerCm is used when nothing better is known.
const DefaultPxPerCm = 1.0

// Config selects and tunes the strategy chain.
type Config struct {
	Strategy       Kind
	DefaultPxPerCm float64
	AssumedWidthCm float64
	Timeout        time.Duration
}

// Result is a resolved scale and how it was obtained.
type Result struct {
	PxPerCm   float64
	Strategy  string
	Fallbacks []error // failures of the strategies tried before Strategy
}

// Resolver tries strategies in order and returns the first usable scale.
type Resolver struct {
	chain []Strategy
	log   zerolog.Logger
}

// NewResolver builds the chain for cfg. The fixed default always ends the
// chain, so Resolve never fails. detector may be nil.
func NewResolver(cfg Config, detector WallDetector, log zerolog.Logger) *Resolver {
	fixed := FixedDefaultScale{PxPerCm: cfg.DefaultPxPerCm}
	if fixed.PxPerCm <= 0 {
		fixed.PxPerCm = DefaultPxPerCm
	}

	var chain []Strategy
	switch cfg.Strategy {
	case KindFixed:
		chain = []Strategy{fixed}
	case KindDetected:
		chain = []Strategy{
			DetectedBoundingBoxScale{Detector: detector, Timeout: cfg.Timeout, AssumedWidthCm: cfg.AssumedWidthCm},
			ManualScale{},
			fixed,
		}
	default:
		chain = []Strategy{ManualScale{}, fixed}
	}
	return NewResolverWithChain(log, chain...)
}

// NewResolverWithChain uses the given strategies as-is.
func NewResolverWithChain(log zerolog.Logger, chain ...Strategy) *Resolver {
	return &Resolver{
		chain: chain,
		log:   log.With().Str("component", "scale").Logger(),
	}
}

// Strategies returns the names of the chain in order.
func (r *Resolver) Strategies() []string {
	names := make([]string, len(r.chain))
	for i, s := range r.chain {
		names[i] = s.Name()
	}
	return names
}

// Resolve returns the first scale any strategy produces. If every strategy
// fails, DefaultPxPerCm is returned with Strategy "fixed".
func (r *Resolver) Resolve(ctx context.Context, in Input) Result {
	var res Result
	for _, s := range r.chain {
		v, err := s.Estimate(ctx, in)
		if err == nil {
			res.PxPerCm = v
			res.Strategy = s.Name()
			r.log.Debug().
				Str("strategy", res.Strategy).
				Float64("px_per_cm", v).
				Int("fallbacks", len(res.Fallbacks)).
				Msg("Scale resolved")
			return res
		}
		r.log.Warn().Err(err).Str("strategy", s.Name()).Msg("Scale strategy failed, falling back")
		res.Fallbacks = append(res.Fallbacks, err)
	}

	res.PxPerCm = DefaultPxPerCm
	res.Strategy = KindFixed.String()
	return res
}

func (k Kind) String() string {
	return string(k)
}
