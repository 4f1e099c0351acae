//go:build tinygo

package kernel

// TinyGo has no runtime/debug.Stack; the panic value is all we get.
func captureStack() []byte {
	return nil
}
