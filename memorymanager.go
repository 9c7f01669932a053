package vkk

import (
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// poolKey identifies a memoryPool by the two values libvkk rounds an
// allocation request down to before looking one up: the GAPI memory type
// index and the stride every chunk in the pool is divided into.
type poolKey struct {
	mtIndex uint32
	stride  vk.DeviceSize
}

// memoryManager owns every memoryPool for one device, picking the pool a
// request belongs to and handing out/reclaiming memory handles.
//
// Pool lookup and chunk mutation deliberately use separate locks: mu
// guards only the pools map (pool creation/retirement), while each
// chunk's slot claim is guarded by one of chunkMu's stripes, selected by
// the chunk's address. A caller never holds mu while touching a chunk,
// so a slow allocation in one pool cannot stall lookups into another.
type memoryManager struct {
	ops      gpuMemoryOps
	shutdown bool

	mu       sync.Mutex
	pools    map[poolKey]*memoryPool
	poolCond *sync.Cond

	chunkMu [chunkUpdaters]sync.Mutex
}

func newMemoryManager(ops gpuMemoryOps) *memoryManager {
	mgr := &memoryManager{
		ops:   ops,
		pools: make(map[poolKey]*memoryPool),
	}
	mgr.poolCond = sync.NewCond(&mgr.mu)
	return mgr
}

func (mgr *memoryManager) chunkLock(c *memoryChunk) *sync.Mutex {
	return &mgr.chunkMu[c.updater]
}

// acquirePool returns the pool for key, creating it on first use and
// blocking if a prior occupant of that slot is mid-retirement. A pool is
// retired (removed from the map) exactly when its last user releases it
// with no chunks left; acquirePool must not hand out a pool mid-retirement
// since its chunk list may be concurrently nilled out, so a waiter drops
// mu, waits for the retirement to finish, and re-looks-up the key from
// scratch rather than assuming the retired pool can be revived.
func (mgr *memoryManager) acquirePool(key poolKey, count uint32, mtIndex uint32, stride vk.DeviceSize) *memoryPool {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	for {
		p, ok := mgr.pools[key]
		if !ok {
			p = newMemoryPool(mgr, key, count, stride, mtIndex)
			p.active = 1
			mgr.pools[key] = p
			return p
		}
		if p.dying {
			mgr.poolCond.Wait()
			continue
		}
		p.active++
		return p
	}
}

func (mgr *memoryManager) releasePool(p *memoryPool) {
	mgr.mu.Lock()
	p.active--
	if p.active == 0 && len(p.chunks) == 0 {
		p.dying = true
		delete(mgr.pools, p.key)
		mgr.poolCond.Broadcast()
	}
	mgr.mu.Unlock()
}

// alloc finds or creates the pool for (mtIndex, stride) and claims one
// slot from it, per spec.md's chunk-then-pool fallback: stride is first
// rounded up to a power of two, then the chunk count is chosen so
// count*stride falls in the pool's preferred chunk-size band.
func (mgr *memoryManager) alloc(mtIndex uint32, size vk.DeviceSize, alignment vk.DeviceSize) (*memory, error) {
	stride := nextStride(alignment, size)
	key := poolKey{mtIndex: mtIndex, stride: stride}
	count := poolCount(uint64(stride))

	p := mgr.acquirePool(key, count, mtIndex, stride)
	m, err := p.alloc()
	mgr.releasePool(p)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// free returns m's slot to its owning pool. Once the process is
// shutting down, an emptied chunk is freed back to the GAPI immediately
// rather than kept around for reuse that will never come.
func (mgr *memoryManager) free(m *memory) {
	if m == nil {
		return
	}
	p := m.chunk.pool
	mgr.mu.Lock()
	p.active++
	mgr.mu.Unlock()

	p.free(mgr.shutdown, m)

	mgr.releasePool(p)
}

func (mgr *memoryManager) write(m *memory, offset vk.DeviceSize, buf []byte) error {
	return m.chunk.write(m, offset, buf)
}

func (mgr *memoryManager) read(m *memory, offset vk.DeviceSize, buf []byte) error {
	return m.chunk.read(m, offset, buf)
}

// setShutdown marks the manager so every subsequent free() eagerly
// releases emptied chunks instead of leaving them pooled.
func (mgr *memoryManager) setShutdown() {
	mgr.mu.Lock()
	mgr.shutdown = true
	mgr.mu.Unlock()
}

type memInfo struct {
	Chunks     int
	UsedBytes  vk.DeviceSize
	AllocBytes vk.DeviceSize
}

// MemoryStats reports the chunk count and byte totals for one GAPI
// memory type, the public mirror of memInfo tests and callers use to
// assert pool invariants without reaching into package-private state.
type MemoryStats struct {
	Chunks     int
	UsedBytes  vk.DeviceSize
	AllocBytes vk.DeviceSize
}

// MemoryStats aggregates every pool backing mtIndex into one snapshot.
func (e *Engine) MemoryStats(mtIndex uint32) MemoryStats {
	info := e.mem.meminfo(mtIndex)
	return MemoryStats{Chunks: info.Chunks, UsedBytes: info.UsedBytes, AllocBytes: info.AllocBytes}
}

func (mgr *memoryManager) meminfo(mtIndex uint32) memInfo {
	mgr.mu.Lock()
	var pools []*memoryPool
	for k, p := range mgr.pools {
		if k.mtIndex == mtIndex {
			pools = append(pools, p)
		}
	}
	mgr.mu.Unlock()

	var info memInfo
	for _, p := range pools {
		chunks, used, alloc := p.meminfo()
		info.Chunks += chunks
		info.UsedBytes += used
		info.AllocBytes += alloc
	}
	return info
}
