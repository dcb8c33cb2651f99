//go:build arm || arm64

package device

type windowBackend struct{}

func (d *Display) startWindow() (Surface, error) {
	return nil, ErrWindowUnavailable
}
