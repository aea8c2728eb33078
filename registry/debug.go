//go:build rhidebug

package registry

func init() {
	debugChecks = true
}
