package proximity

import (
	"sync"
	"testing"
	"time"
)

func TestLatestReadBeforePublish(t *testing.T) {
	latest := NewLatest(72)

	if _, ok := latest.Read(); ok {
		t.Fatal("Read reported a snapshot before any publish")
	}
}

func TestLatestPublishRead(t *testing.T) {
	latest := NewLatest(4)
	latest.Publish([]uint16{1, 2, 3, 4}, 1000)

	snap, ok := latest.Read()
	if !ok {
		t.Fatal("Read found no snapshot after publish")
	}
	if snap.TimestampUS != 1000 {
		t.Errorf("timestamp = %d, want 1000", snap.TimestampUS)
	}
	for i, want := range []uint16{1, 2, 3, 4} {
		if snap.Distances[i] != want {
			t.Errorf("sector %d = %d, want %d", i, snap.Distances[i], want)
		}
	}
}

func TestLatestCopiesBothWays(t *testing.T) {
	latest := NewLatest(2)

	src := []uint16{10, 20}
	latest.Publish(src, 1)

	// Writer reuse of its buffer must not leak into published data.
	src[0] = 99
	snap, _ := latest.Read()
	if snap.Distances[0] != 10 {
		t.Errorf("published value changed to %d after writer reused its buffer", snap.Distances[0])
	}

	// Reader mutation must not leak into subsequent reads.
	snap.Distances[1] = 77
	again, _ := latest.Read()
	if again.Distances[1] != 20 {
		t.Errorf("stored value changed to %d after reader mutated its copy", again.Distances[1])
	}
}

func TestLatestNoTornReads(t *testing.T) {
	const sectors = 72
	latest := NewLatest(sectors)

	done := make(chan struct{})
	var wg sync.WaitGroup

	// Single writer publishing uniform arrays: any mix of two frames would
	// show up as a non-uniform read.
	wg.Add(1)
	go func() {
		defer wg.Done()
		buf := make([]uint16, sectors)
		for v := uint16(1); ; v++ {
			select {
			case <-done:
				return
			default:
			}
			for i := range buf {
				buf[i] = v
			}
			latest.Publish(buf, int64(v))
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			deadline := time.Now().Add(200 * time.Millisecond)
			for time.Now().Before(deadline) {
				snap, ok := latest.Read()
				if !ok {
					continue
				}
				first := snap.Distances[0]
				for i, d := range snap.Distances {
					if d != first {
						t.Errorf("torn read: sector %d = %d, sector 0 = %d", i, d, first)
						return
					}
				}
			}
		}()
	}

	time.Sleep(220 * time.Millisecond)
	close(done)
	wg.Wait()
}
