package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteTextfile(t *testing.T) {
	var r Recorder
	r.ObserveStep("generate", 1500*time.Millisecond, ResultSuccess)
	r.ObserveRun("provision", ResultSuccess, time.Unix(1700000000, 0))
	r.ObserveRun("provision", "FlashFailed", time.Unix(1700000100, 0))

	path := filepath.Join(t.TempDir(), "nvsprov.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)

	for _, want := range []string{
		`nvsprov_runs_total{mode="provision",result="success"} 1`,
		`nvsprov_runs_total{mode="provision",result="FlashFailed"} 1`,
		`nvsprov_step_duration_seconds_count{result="success",step="generate"} 1`,
		`nvsprov_last_success_timestamp_seconds{mode="provision"} 1.7e+09`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile misses %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "go_goroutines") {
		t.Error("textfile contains runtime metrics")
	}
}
