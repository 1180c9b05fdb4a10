//go:build !tinygo && cgo

package gleval

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/ptex"
)

// Init1x1GLFW starts a 1x1 sized GLFW so that user can start working with GPU.
// It returns a termination function that should be called when user is done running loads on GPU.
func Init1x1GLFW() (terminate func(), err error) {
	_, terminate, err = glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "compute",
		Version: [2]int{4, 6},
		Width:   1,
		Height:  1,
	})
	return terminate, err
}

// NewComputeGPURamp instantiates an [Evaluator] that runs on the GPU. The source code
// is expected to be generated by [glbuild.Programmer.WriteComputeRamp] with
// invocX invocations in the X work group size.
func NewComputeGPURamp(glglSourceCode io.Reader, invocX int) (*RampCompute, error) {
	if invocX < 1 {
		return nil, errors.New("zero or negative invocation size")
	}
	combinedSource, err := glgl.ParseCombined(glglSourceCode)
	if err != nil {
		return nil, err
	}
	glprog, err := glgl.CompileProgram(combinedSource)
	if err != nil {
		return nil, errors.New(string(combinedSource.Compute) + "\n" + err.Error())
	}
	ramp := RampCompute{
		prog:   glprog,
		invocX: invocX,
	}
	return &ramp, nil
}

// RampCompute evaluates a compiled compute ramp program on the GPU.
type RampCompute struct {
	prog   glgl.Program
	invocX int
	evals  uint64
}

// Evaluate implements [Evaluator].
func (rc *RampCompute) Evaluate(dst []ptex.Color) error {
	if len(dst) == 0 {
		return errEmptyBuffer
	} else if rc.prog.ID() == 0 {
		return errors.New("bad program compile or RampCompute not initialized before first use")
	}
	rc.prog.Bind()
	defer rc.prog.Unbind()

	var p runtime.Pinner
	var ssbo uint32
	p.Pin(&ssbo)
	defer p.Unpin()
	ssbo = createSSBO(elemSize[ptex.Color]()*len(dst), 0, gl.DYNAMIC_READ)
	if ssbo == 0 {
		return glErrOrMessage("zero id SSBO creating color buffer")
	}
	defer gl.DeleteBuffers(1, &ssbo)

	nWorkX := (len(dst) + rc.invocX - 1) / rc.invocX
	gl.DispatchCompute(uint32(nWorkX), 1, 1)
	err := glgl.Err()
	if err != nil {
		return err
	}
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT)
	err = copySSBO(dst, ssbo)
	if err != nil {
		return err
	}
	rc.evals += uint64(len(dst))
	return glgl.Err()
}

// Evaluations returns total pixel evaluations performed succesfully during the evaluator's lifetime.
func (rc *RampCompute) Evaluations() uint64 { return rc.evals }

// Delete releases the GPU program.
func (rc *RampCompute) Delete() {
	rc.prog.Delete()
}

func createSSBO(size int, base, usage uint32) (ssbo uint32) {
	gl.GenBuffers(1, &ssbo)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, ssbo)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, size, nil, usage)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, base, ssbo)
	return ssbo
}

func copySSBO[T any](dst []T, ssbo uint32) error {
	singleSize := elemSize[T]()
	bufSize := singleSize * len(dst)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, ssbo)
	ptr := gl.MapBufferRange(gl.SHADER_STORAGE_BUFFER, 0, bufSize, gl.MAP_READ_BIT)
	if ptr == nil {
		return glErrOrMessage("failed to map SSBO buffer during copy")
	}
	defer gl.UnmapBuffer(gl.SHADER_STORAGE_BUFFER)
	gpuBytes := unsafe.Slice((*byte)(ptr), bufSize)
	bufBytes := unsafe.Slice((*byte)(unsafe.Pointer(&dst[0])), bufSize)
	copy(bufBytes, gpuBytes)
	return nil
}

func glErrOrMessage(defaultMsg string) (err error) {
	err = glgl.Err()
	if err == nil {
		err = errors.New(defaultMsg)
	} else {
		err = fmt.Errorf("%s: %w", defaultMsg, err)
	}
	return err
}
