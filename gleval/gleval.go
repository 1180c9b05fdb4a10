package gleval

import (
	"errors"
	"unsafe"

	"github.com/soypat/ptex"
)

// Evaluator evaluates a 1D ramp in vectorized form suitable for running on GPU.
type Evaluator interface {
	// Evaluate computes the normalized color of every pixel of a ramp
	// len(dst) pixels wide and stores them in dst, dst[0] being the x=0 pixel.
	Evaluate(dst []ptex.Color) error
}

type validator = interface{ Validate() error }

var (
	errEmptyBuffer = errors.New("empty color buffer")
	errNilRamp     = errors.New("nil Ramp")
)

// NewCPURamp instantiates an [Evaluator] that runs r on the CPU. If r implements
// a Validate method it is called and its error returned.
func NewCPURamp(r ptex.Ramp) (*CPURamp, error) {
	if r == nil {
		return nil, errNilRamp
	}
	if v, ok := r.(validator); ok {
		err := v.Validate()
		if err != nil {
			return nil, err
		}
	}
	return &CPURamp{ramp: r}, nil
}

// CPURamp evaluates a [ptex.Ramp] pixel by pixel on the CPU.
type CPURamp struct {
	ramp  ptex.Ramp
	evals uint64
}

// Evaluate implements [Evaluator].
func (c *CPURamp) Evaluate(dst []ptex.Color) error {
	if len(dst) == 0 {
		return errEmptyBuffer
	}
	w := len(dst)
	for x := range dst {
		dst[x] = c.ramp.At(x, w)
	}
	c.evals += uint64(w)
	return nil
}

// Evaluations returns total pixel evaluations performed succesfully during the evaluator's lifetime.
func (c *CPURamp) Evaluations() uint64 { return c.evals }

// Ramp returns the underlying ramp.
func (c *CPURamp) Ramp() ptex.Ramp { return c.ramp }

// CachedRamp memoizes evaluation results per ramp width. Ramps are pure so a
// repeated evaluation at the same width is served from the cache, which is the
// common case when the same ramp is stacked several times in a layer sheet.
type CachedRamp struct {
	ev    Evaluator
	m     map[int][]ptex.Color
	hits  uint64
	evals uint64
}

// Reset resets the cache to evaluate ev. It also resets statistics such as evaluations and cache hits.
func (c *CachedRamp) Reset(ev Evaluator) error {
	if ev == nil {
		return errors.New("nil Evaluator for CachedRamp")
	}
	if c.m == nil {
		c.m = make(map[int][]ptex.Color)
	} else {
		clear(c.m)
	}
	*c = CachedRamp{ev: ev, m: c.m}
	return nil
}

// Evaluate implements [Evaluator] with cached evaluation.
func (c *CachedRamp) Evaluate(dst []ptex.Color) error {
	if c.ev == nil {
		return errors.New("CachedRamp not initialized, call Reset before first use")
	} else if len(dst) == 0 {
		return errEmptyBuffer
	}
	cached, ok := c.m[len(dst)]
	if ok {
		copy(dst, cached)
		c.hits += uint64(len(dst))
	} else {
		err := c.ev.Evaluate(dst)
		if err != nil {
			return err
		}
		c.m[len(dst)] = append([]ptex.Color(nil), dst...)
	}
	c.evals += uint64(len(dst))
	return nil
}

// CacheHits returns total amount of cached pixel evaluations done throughout the cache's lifetime.
func (c *CachedRamp) CacheHits() uint64 { return c.hits }

// Evaluations returns total pixel evaluations performed succesfully, including cached.
func (c *CachedRamp) Evaluations() uint64 { return c.evals }

func elemSize[T any]() int {
	var z T
	return int(unsafe.Sizeof(z))
}
