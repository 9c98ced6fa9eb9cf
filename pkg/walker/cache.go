package walker

import "sync"

// Module and export lookups are cached by hash, following the pattern
// in carved4-go-wincall/resolve.go (moduleCache/functionCache) without
// that file's obfuscated-storage layer: this framework's PIC discipline
// already keeps the whole process image out of any debugger-visible
// strings table, so there's nothing extra to hide in the cache itself.
var (
	moduleCacheMu sync.RWMutex
	moduleCache   = make(map[uint32]uintptr)

	exportCacheMu sync.RWMutex
	exportCache   = make(map[[2]uint32]Export) // {moduleBase low bits, symbol hash} -> Export
)

func cacheGetModule(hash uint32) (uintptr, bool) {
	moduleCacheMu.RLock()
	defer moduleCacheMu.RUnlock()
	base, ok := moduleCache[hash]
	return base, ok
}

func cacheSetModule(hash uint32, base uintptr) {
	moduleCacheMu.Lock()
	defer moduleCacheMu.Unlock()
	moduleCache[hash] = base
}

func exportCacheKey(moduleBase uintptr, symbolHash uint32) [2]uint32 {
	return [2]uint32{uint32(moduleBase), symbolHash}
}

func cacheGetExport(moduleBase uintptr, symbolHash uint32) (Export, bool) {
	exportCacheMu.RLock()
	defer exportCacheMu.RUnlock()
	e, ok := exportCache[exportCacheKey(moduleBase, symbolHash)]
	return e, ok
}

func cacheSetExport(moduleBase uintptr, symbolHash uint32, e Export) {
	exportCacheMu.Lock()
	defer exportCacheMu.Unlock()
	exportCache[exportCacheKey(moduleBase, symbolHash)] = e
}

// ClearCaches drops all cached module/export resolutions. Within this
// module only the tests call it.
func ClearCaches() {
	moduleCacheMu.Lock()
	moduleCache = make(map[uint32]uintptr)
	moduleCacheMu.Unlock()

	exportCacheMu.Lock()
	exportCache = make(map[[2]uint32]Export)
	exportCacheMu.Unlock()
}
