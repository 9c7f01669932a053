package vkk

import (
	"sync"
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

// fakeMemoryOps stands in for a real device, handing out incrementing
// fake vk.DeviceMemory handles and backing each with a plain byte slice
// so write/read can be exercised without a GAPI.
type fakeMemoryOps struct {
	mu      sync.Mutex
	next    uint64
	backing map[vk.DeviceMemory][]byte
}

func newFakeMemoryOps() *fakeMemoryOps {
	return &fakeMemoryOps{backing: make(map[vk.DeviceMemory][]byte)}
}

func (f *fakeMemoryOps) allocate(typeIndex uint32, size vk.DeviceSize) (vk.DeviceMemory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	h := vk.DeviceMemory(f.next)
	f.backing[h] = make([]byte, size)
	return h, nil
}

func (f *fakeMemoryOps) free(mem vk.DeviceMemory) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.backing, mem)
}

func (f *fakeMemoryOps) mapWrite(mem vk.DeviceMemory, offset, size vk.DeviceSize, buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(f.backing[mem][offset:offset+size], buf)
	return nil
}

func (f *fakeMemoryOps) mapRead(mem vk.DeviceMemory, offset, size vk.DeviceSize, buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(buf, f.backing[mem][offset:offset+size])
	return nil
}

func TestMemoryManagerAllocFree(t *testing.T) {
	mgr := newMemoryManager(newFakeMemoryOps())

	m, err := mgr.alloc(0, 64, 16)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if m == nil {
		t.Fatal("alloc returned nil memory")
	}

	want := []byte("hello, vkk")
	buf := make([]byte, len(want))
	copy(buf, want)
	if err := mgr.write(m, 0, buf); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := make([]byte, len(want))
	if err := mgr.read(m, 0, got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("read back %q, want %q", got, want)
	}

	mgr.free(m)

	info := mgr.meminfo(0)
	if info.Chunks != 1 {
		t.Fatalf("expected pool to keep its emptied chunk for reuse outside shutdown, got %d chunks", info.Chunks)
	}
}

func TestMemoryManagerReusesFreedSlot(t *testing.T) {
	mgr := newMemoryManager(newFakeMemoryOps())

	a, err := mgr.alloc(0, 64, 16)
	if err != nil {
		t.Fatalf("alloc a: %v", err)
	}
	mgr.free(a)

	b, err := mgr.alloc(0, 64, 16)
	if err != nil {
		t.Fatalf("alloc b: %v", err)
	}
	if b.offset != a.offset {
		t.Fatalf("expected freed slot %d to be reused, got %d", a.offset, b.offset)
	}
	mgr.free(b)
}

func TestMemoryManagerDistinctStridesGetDistinctPools(t *testing.T) {
	mgr := newMemoryManager(newFakeMemoryOps())

	small, err := mgr.alloc(0, 16, 16)
	if err != nil {
		t.Fatalf("alloc small: %v", err)
	}
	large, err := mgr.alloc(0, 1<<20, 16)
	if err != nil {
		t.Fatalf("alloc large: %v", err)
	}
	if small.chunk.pool == large.chunk.pool {
		t.Fatal("expected differently sized allocations to land in different pools")
	}
	mgr.free(small)
	mgr.free(large)
}

func TestMemoryManagerConcurrentAllocFree(t *testing.T) {
	mgr := newMemoryManager(newFakeMemoryOps())

	const goroutines = 16
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m, err := mgr.alloc(0, 32, 8)
				if err != nil {
					t.Errorf("alloc: %v", err)
					return
				}
				mgr.free(m)
			}
		}()
	}
	wg.Wait()

	info := mgr.meminfo(0)
	if info.Chunks != 1 {
		t.Fatalf("expected the single emptied chunk kept for reuse after concurrent alloc/free, got %d", info.Chunks)
	}
}

func TestMemoryManagerShutdownFreesEagerly(t *testing.T) {
	ops := newFakeMemoryOps()
	mgr := newMemoryManager(ops)
	mgr.setShutdown()

	m, err := mgr.alloc(0, 32, 8)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	handle := m.chunk.mem
	mgr.free(m)

	ops.mu.Lock()
	_, stillBacked := ops.backing[handle]
	ops.mu.Unlock()
	if stillBacked {
		t.Fatal("expected chunk memory to be freed eagerly during shutdown")
	}
}
