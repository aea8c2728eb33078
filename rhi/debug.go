//go:build rhidebug

package rhi

func init() {
	debugChecks = true
}
