package vkk

import (
	"reflect"

	vk "github.com/vulkan-go/vulkan"
)

// chunkUpdaters is the number of lock stripes chunk mutation is spread
// across, keyed by each chunk's address. A single pool-wide lock would
// serialize every free()/alloc() in the pool; striping by address lets
// unrelated chunks make progress concurrently while still giving every
// chunk a single well-defined lock.
const chunkUpdaters = 8

// gpuMemoryOps is the seam between the pool/chunk slab algorithm and the
// GAPI. Its implementation talks to a real vk.Device; tests substitute a
// fake so the slot-selection and striped-locking logic can run without a
// device.
type gpuMemoryOps interface {
	allocate(typeIndex uint32, size vk.DeviceSize) (vk.DeviceMemory, error)
	free(mem vk.DeviceMemory)
	mapWrite(mem vk.DeviceMemory, offset, size vk.DeviceSize, buf []byte) error
	mapRead(mem vk.DeviceMemory, offset, size vk.DeviceSize, buf []byte) error
}

// memoryChunk is one vk.DeviceMemory allocation of pool.count slots of
// pool.stride bytes each, sub-allocated slot by slot.
type memoryChunk struct {
	pool   *memoryPool
	mem    vk.DeviceMemory
	updater int

	// guarded by manager.chunkMu[updater]
	slot     uint32   // high-water mark: slots below this are either in use or on freeSlots
	usecount uint32
	freeSlots []uint32
}

func newMemoryChunk(pool *memoryPool) (*memoryChunk, error) {
	mem, err := pool.mgr.ops.allocate(pool.mtIndex, vk.DeviceSize(pool.count)*pool.stride)
	if err != nil {
		return nil, err
	}
	c := &memoryChunk{pool: pool, mem: mem}
	c.updater = chunkUpdaterIndex(c)
	return c, nil
}

// chunkUpdaterIndex hashes a chunk's address into [0, chunkUpdaters) - the
// Go equivalent of libvkk's pointer-derived stripe index, since Go has no
// portable integer cast of a pointer other than via reflect/unsafe.
func chunkUpdaterIndex(c *memoryChunk) int {
	addr := reflect.ValueOf(c).Pointer()
	return int((addr >> 4) % chunkUpdaters)
}

func (c *memoryChunk) slots() uint32 {
	return c.pool.count
}

// alloc takes a free slot, preferring the free list (LIFO) over bumping
// the high-water mark, and returns its GAPI-facing *memory handle. Caller
// must hold manager.chunkMu[c.updater].
func (c *memoryChunk) alloc() *memory {
	var slot uint32
	if n := len(c.freeSlots); n > 0 {
		slot = c.freeSlots[n-1]
		c.freeSlots = c.freeSlots[:n-1]
	} else if c.slot < c.pool.count {
		slot = c.slot
		c.slot++
	} else {
		return nil
	}
	c.usecount++
	return newMemory(c, vk.DeviceSize(slot)*c.pool.stride)
}

// free returns memory's slot to the chunk. When shutdown is true and this
// was the chunk's last live slot, the chunk frees its vk.DeviceMemory
// immediately instead of staying in its pool for reuse -
// libvkk's shutdown-eager-free rule, since no further allocation can
// revive a chunk once the manager is shutting down. Caller must hold
// manager.chunkMu[c.updater]; returns true if the chunk is now empty.
func (c *memoryChunk) free(shutdown bool, m *memory) (empty bool) {
	slot := uint32(m.offset / c.pool.stride)
	c.freeSlots = append(c.freeSlots, slot)
	c.usecount--
	if c.usecount == 0 {
		if shutdown {
			c.pool.mgr.ops.free(c.mem)
			c.mem = vk.DeviceMemory(vk.NullHandle)
		}
		return true
	}
	return false
}

func (c *memoryChunk) write(m *memory, offset vk.DeviceSize, buf []byte) error {
	return c.pool.mgr.ops.mapWrite(c.mem, m.offset+offset, vk.DeviceSize(len(buf)), buf)
}

func (c *memoryChunk) read(m *memory, offset vk.DeviceSize, buf []byte) error {
	return c.pool.mgr.ops.mapRead(c.mem, m.offset+offset, vk.DeviceSize(len(buf)), buf)
}
