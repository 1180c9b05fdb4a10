//go:build tinygo || !cgo

package gleval

import (
	"errors"
	"io"

	"github.com/soypat/ptex"
)

var errNoCGO = errors.New("GPU evaluation requires CGo and is not supported on TinyGo")

// Init1x1GLFW starts a 1x1 sized GLFW so that user can start working with GPU.
func Init1x1GLFW() (terminate func(), err error) {
	return nil, errNoCGO
}

// NewComputeGPURamp instantiates an [Evaluator] that runs on the GPU.
func NewComputeGPURamp(glglSourceCode io.Reader, invocX int) (*RampCompute, error) {
	return nil, errNoCGO
}

type RampCompute struct{}

func (rc *RampCompute) Evaluate(dst []ptex.Color) error {
	return errNoCGO
}

func (rc *RampCompute) Evaluations() uint64 { return 0 }

func (rc *RampCompute) Delete() {}
