package vkk

import (
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// memoryPool groups chunks sharing a (memoryTypeIndex, stride) key, the
// granularity at which libvkk rounds allocations so unrelated buffer/image
// sizes can share a chunk layout.
type memoryPool struct {
	mgr     *memoryManager
	key     poolKey
	count   uint32
	stride  vk.DeviceSize
	mtIndex uint32

	// active and dying are guarded by mgr.mu, not p.mu: they track the
	// pool's presence in mgr.pools, not its chunk list.
	active int
	dying  bool

	mu     sync.Mutex
	chunks []*memoryChunk
}

func newMemoryPool(mgr *memoryManager, key poolKey, count uint32, stride vk.DeviceSize, mtIndex uint32) *memoryPool {
	return &memoryPool{mgr: mgr, key: key, count: count, stride: stride, mtIndex: mtIndex}
}

// alloc walks the pool's chunk list for one with a free slot, creating a
// new chunk on demand when every existing chunk is full. Caller holds no
// manager lock on entry; pool.mu serializes the chunk-list walk itself,
// while the slot claim inside a chunk is guarded by the chunk's own
// striped mutex (see memoryManager.alloc).
func (p *memoryPool) alloc() (*memory, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, c := range p.chunks {
		mu := p.mgr.chunkLock(c)
		mu.Lock()
		m := c.alloc()
		mu.Unlock()
		if m != nil {
			return m, nil
		}
	}

	c, err := newMemoryChunk(p)
	if err != nil {
		return nil, err
	}
	p.chunks = append(p.chunks, c)

	mu := p.mgr.chunkLock(c)
	mu.Lock()
	m := c.alloc()
	mu.Unlock()
	return m, nil
}

// free releases m's slot back to its chunk. Outside shutdown an emptied
// chunk stays in the pool's chunk list for reuse; during shutdown its
// device memory has already been released by memoryChunk.free, so it is
// dropped from the list. Returns the dropped chunk, or nil.
func (p *memoryPool) free(shutdown bool, m *memory) *memoryChunk {
	c := m.chunk
	mu := p.mgr.chunkLock(c)
	mu.Lock()
	empty := c.free(shutdown, m)
	mu.Unlock()

	if !empty || !shutdown {
		return nil
	}

	p.mu.Lock()
	for i, cc := range p.chunks {
		if cc == c {
			p.chunks[i] = p.chunks[len(p.chunks)-1]
			p.chunks = p.chunks[:len(p.chunks)-1]
			break
		}
	}
	p.mu.Unlock()
	return c
}

func (p *memoryPool) meminfo() (chunks int, usedBytes, allocBytes vk.DeviceSize) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.chunks {
		mu := p.mgr.chunkLock(c)
		mu.Lock()
		usedBytes += vk.DeviceSize(c.usecount) * p.stride
		mu.Unlock()
		allocBytes += vk.DeviceSize(p.count) * p.stride
	}
	return len(p.chunks), usedBytes, allocBytes
}
