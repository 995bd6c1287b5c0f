package serialport

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestGlobPortsSortedAndDeduplicated(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"ttyUSB1", "ttyUSB0", "ttyACM0", "tty0"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got := globPorts([]string{
		filepath.Join(dir, "ttyUSB*"),
		filepath.Join(dir, "ttyACM*"),
		filepath.Join(dir, "ttyUSB0"),
	})
	want := []string{
		filepath.Join(dir, "ttyACM0"),
		filepath.Join(dir, "ttyUSB0"),
		filepath.Join(dir, "ttyUSB1"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("globPorts() = %v, want %v", got, want)
	}
}

func TestCandidateGlobs(t *testing.T) {
	if got := candidateGlobs("linux"); len(got) != 2 {
		t.Errorf("linux globs = %v", got)
	}
	if got := candidateGlobs("darwin"); len(got) == 0 {
		t.Errorf("darwin globs are empty")
	}
	if got := candidateGlobs("windows"); got != nil {
		t.Errorf("windows globs = %v, want nil", got)
	}
}

func TestProbeMissingPort(t *testing.T) {
	p := NewProber(115200, 100*time.Millisecond)
	if err := p.Probe(filepath.Join(t.TempDir(), "ttyUSB9")); err == nil {
		t.Errorf("Probe() of a missing port returned nil error")
	}
}
