package observ

import (
	"strings"
	"testing"
	"time"
)

func TestBeginEndRecordsPhase(t *testing.T) {
	timer := NewTimer()
	idx := timer.Begin("load config")
	timer.End(idx, "models.toml")

	report := timer.Report()
	if len(report.Phases) != 1 {
		t.Fatalf("got %d phases, want 1", len(report.Phases))
	}
	p := report.Phases[0]
	if p.Name != "load config" || p.Note != "models.toml" {
		t.Fatalf("phase = %+v", p)
	}
	if p.DurationMS < 0 {
		t.Fatalf("negative duration: %f", p.DurationMS)
	}
}

func TestEndIgnoresBadIndex(t *testing.T) {
	timer := NewTimer()
	timer.End(-1, "")
	timer.End(5, "")
	if timer.Len() != 0 {
		t.Fatalf("got %d phases, want 0", timer.Len())
	}
}

func TestAddFoldsMeasuredPhases(t *testing.T) {
	// A per-model timer reports its phases; the run timer absorbs them.
	inner := NewTimer()
	inner.Add("model events", 3*time.Millisecond, "")
	inner.Add("model widgets", 5*time.Millisecond, "")

	run := NewTimer()
	run.Add("load snapshot", 2*time.Millisecond, "u.bin")
	for _, p := range inner.Report().Phases {
		run.Add(p.Name, p.Duration(), p.Note)
	}

	report := run.Report()
	if len(report.Phases) != 3 {
		t.Fatalf("got %d phases, want 3", len(report.Phases))
	}
	if report.TotalMS != 10 {
		t.Fatalf("TotalMS = %f, want 10", report.TotalMS)
	}
	if report.Phases[1].Name != "model events" || report.Phases[1].DurationMS != 3 {
		t.Fatalf("folded phase = %+v", report.Phases[1])
	}
}

func TestSummaryListsEveryPhase(t *testing.T) {
	timer := NewTimer()
	timer.Add("load config", time.Millisecond, "models.toml")
	timer.Add("build models", 4*time.Millisecond, "2 spec(s)")

	summary := timer.Summary()
	for _, want := range []string{"load config", "build models", "// models.toml", "// 2 spec(s)", "total"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestEmptyTimerReport(t *testing.T) {
	report := NewTimer().Report()
	if report.TotalMS != 0 || len(report.Phases) != 0 {
		t.Fatalf("report = %+v, want empty", report)
	}
}
