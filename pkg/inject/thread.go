package inject

import (
	"golang.org/x/sys/windows"
)

// x/sys/windows does not wrap CreateThread/CreateRemoteThread (its
// surface favors what the Go runtime itself needs); both are resolved
// once via kernel32's lazy-DLL helper, the same pattern the teacher's
// own code reaches for whenever a raw WinAPI call has no existing Go
// wrapper (pkg/pe/dll.go's api.Call indirection, generalized here to
// two named procs instead of a string-keyed call).
var (
	kernel32          = windows.NewLazySystemDLL("kernel32.dll")
	procCreateThread       = kernel32.NewProc("CreateThread")
	procCreateRemoteThread = kernel32.NewProc("CreateRemoteThread")
)

func createThread(startAddr uintptr) (windows.Handle, uintptr, error) {
	r1, _, err := procCreateThread.Call(0, 0, startAddr, 0, 0, 0)
	if r1 == 0 {
		return 0, 0, err
	}
	return windows.Handle(r1), r1, nil
}

func createRemoteThread(proc windows.Handle, startAddr uintptr) (windows.Handle, uintptr, error) {
	r1, _, err := procCreateRemoteThread.Call(uintptr(proc), 0, 0, startAddr, 0, 0, 0)
	if r1 == 0 {
		return 0, 0, err
	}
	return windows.Handle(r1), r1, nil
}
