package platform

import (
	"fmt"

	"github.com/voidwalk/picforge/pkg/walker"
)

// KernelMode implements dispatch.Resolver for shellcode run inside the
// kernel: module resolution goes through the SystemModuleInformation
// query (pkg/walker.FindModuleKernel) instead of a PEB walk, and the
// three dynamic loader operations are permanently unsupported (spec.md
// §4.4: "Not supported (reject at compile time)" — dispatch's Builder,
// created with New(true), already refuses to build a chain that would
// call these, so these implementations exist only to satisfy the
// Resolver interface).
type KernelMode struct {
	// KernelBase is the kernel image base passed by the invoker as
	// argument1, since there is no self-discovery mechanism available
	// in kernel-mode (spec.md §4.2).
	KernelBase uintptr
}

// NewKernelMode constructs the kernel-mode Resolver, stashing the
// caller-supplied kernel base the way init's preamble does.
func NewKernelMode(kernelBase uintptr) *KernelMode {
	return &KernelMode{KernelBase: kernelBase}
}

func (k *KernelMode) KernelMode() bool { return true }

func (k *KernelMode) FindModule(sel walker.Selector) (uintptr, error) {
	return walker.FindModuleKernel(sel)
}

func (k *KernelMode) FindSymbol(moduleHandle uintptr, sel walker.Selector) (uintptr, error) {
	exp, err := walker.FindExport(moduleHandle, sel)
	if err != nil {
		return 0, err
	}
	return exp.Addr, nil
}

func (k *KernelMode) LoadModule(string) (uintptr, error) {
	return 0, fmt.Errorf("platform: LoadModule is unsupported in kernel mode")
}

func (k *KernelMode) UnloadModule(uintptr) error {
	return fmt.Errorf("platform: UnloadModule is unsupported in kernel mode")
}

func (k *KernelMode) ResolveDynamic(uintptr, string) (uintptr, error) {
	return 0, fmt.Errorf("platform: ResolveDynamic is unsupported in kernel mode")
}

// FreePoolFunc is the cleanup primitive for kernel-mode, standing in
// for ExFreePool rather than VirtualFree (spec.md §4.4's
// cleanup-primitive row). Swapped out in tests; the default returns an
// error, and nothing in this module assigns a real ExFreePool call.
var FreePoolFunc = func(base uintptr) error {
	return fmt.Errorf("platform: ExFreePool is unavailable outside a kernel-mode host")
}

// FreePages calls the platform free primitive for this mode's pages.
func (k *KernelMode) FreePages(base uintptr, _ uintptr) error {
	return FreePoolFunc(base)
}
