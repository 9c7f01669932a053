package vkk

import (
	"fmt"
	"log"
	"runtime"

	vk "github.com/vulkan-go/vulkan"
)

// errNoMemoryType is returned when no GAPI memory type satisfies a
// requested combination of type bits and property flags.
var errNoMemoryType = fmt.Errorf("vkk: no suitable memory type")

// errMipmapDepth is returned when mip generation is requested for a
// depth format, which has no meaningful mip chain.
var errMipmapDepth = fmt.Errorf("vkk: mipmap not supported for depth images")

// errMipmapNotPow2 is returned when mip generation is requested for an
// image whose dimensions are not both powers of two.
var errMipmapNotPow2 = fmt.Errorf("vkk: mipmap requires power-of-two dimensions")

// isError reports whether a vk.Result indicates failure.
func isError(ret vk.Result) bool {
	return ret != vk.Success
}

// newError turns a non-success vk.Result into an error carrying the
// caller's source location, mirroring the teacher's newError.
func newError(ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	if pc, file, line, ok := runtime.Caller(1); ok {
		fn := runtime.FuncForPC(pc)
		name := "?"
		if fn != nil {
			name = fn.Name()
		}
		return fmt.Errorf("vulkan error: %d in %s (%s:%d)", ret, name, file, line)
	}
	return fmt.Errorf("vulkan error: %d", ret)
}

// orPanic panics with err after running any finalizers, used only inside
// constructors to unwind partially-built state before returning nil -
// equivalent to the teacher's goto-chain unwinding, replaced with scoped
// guards local to the constructor.
func orPanic(err error, finalizers ...func()) {
	if err != nil {
		for _, fn := range finalizers {
			fn()
		}
		panic(err)
	}
}

// checkErr recovers a panic raised by orPanic into a returned error; used
// via `defer checkErr(&err)` at the top of constructors so construction
// failure never escapes as a panic across the public API - callers get a
// nil value and an error, never a crash.
func checkErr(err *error) {
	if v := recover(); v != nil {
		switch e := v.(type) {
		case error:
			*err = e
		default:
			*err = fmt.Errorf("%v", v)
		}
	}
}

// warnf logs a release-mode warning for a programmer error that a debug
// build would otherwise assert on.
func warnf(format string, args ...interface{}) {
	log.Printf("vulkan warning: "+format, args...)
}

// errorf logs a recovered engine-level error (submit failure during
// shutdown/device-lost, cache corruption) that must be logged and
// swallowed rather than propagated to the caller.
func errorf(format string, args ...interface{}) {
	log.Printf("vulkan error: "+format, args...)
}
