//go:build !linux

package platform

import "runtime"

func machine() string {
	return runtime.GOARCH
}
