package walker

// getPEBAddrAsm is implemented in peb_amd64.s / peb_386.s and reads the
// thread's PEB pointer straight out of the TEB (gs:[0x60] on amd64,
// fs:[0x30] on x86), the same primitive pkg/pe/peb.go calls GetPEB.
//
//go:nosplit
//go:noinline
func getPEBAddrAsm() uintptr

func init() {
	getPEBAddr = getPEBAddrAsm
}
