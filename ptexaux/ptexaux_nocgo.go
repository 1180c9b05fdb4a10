//go:build tinygo || !cgo

package ptexaux

import (
	"errors"

	"github.com/soypat/ptex"
)

func ui(r ptex.Ramp, cfg UIConfig) error {
	return errors.New("require cgo for UI rendering")
}
