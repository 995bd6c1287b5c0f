package scan

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cloupeer.io/nvsprov/internal/nvsprov/core"
)

type fakeDetector struct {
	mu      sync.Mutex
	seen    map[string]int
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (d *fakeDetector) Detect(_ context.Context, port string) (core.DeviceID, error) {
	n := d.active.Add(1)
	defer d.active.Add(-1)
	for {
		m := d.maxSeen.Load()
		if n <= m || d.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)

	d.mu.Lock()
	d.seen[port]++
	d.mu.Unlock()

	if port == "/dev/ttyUSB1" {
		return core.DeviceID{}, core.NewError(core.KindDeviceUnreachable, "resolve", port, errors.New("no answer"))
	}
	return core.ParseDeviceID("24:0a:c4:00:00:0" + port[len(port)-1:])
}

func TestScan(t *testing.T) {
	d := &fakeDetector{seen: map[string]int{}}
	s := NewScanner(d, 2)

	ports := []string{"/dev/ttyUSB2", "/dev/ttyUSB0", "/dev/ttyUSB1", "/dev/ttyUSB0", "/dev/ttyACM3"}
	results, err := s.Scan(context.Background(), ports)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	if len(results) != 4 {
		t.Fatalf("results = %d, want 4", len(results))
	}
	for port, n := range d.seen {
		if n != 1 {
			t.Errorf("port %s queried %d times", port, n)
		}
	}
	if got := d.maxSeen.Load(); got > 2 {
		t.Errorf("%d ports queried at once, limit is 2", got)
	}

	byPort := map[string]Result{}
	for _, r := range results {
		byPort[r.Port] = r
	}
	if r := byPort["/dev/ttyUSB0"]; r.Err != nil || r.DeviceID.String() != "24:0a:c4:00:00:00" {
		t.Errorf("ttyUSB0 = %+v", r)
	}
	if r := byPort["/dev/ttyUSB1"]; !core.IsKind(r.Err, core.KindDeviceUnreachable) {
		t.Errorf("ttyUSB1 = %+v", r)
	}
	if results[0].Port != "/dev/ttyACM3" {
		t.Errorf("results not sorted by port: %s first", results[0].Port)
	}
}

func TestScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScanner(&fakeDetector{seen: map[string]int{}}, 1).Scan(ctx, []string{"/dev/ttyUSB0"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Scan() error = %v, want context.Canceled", err)
	}
}
