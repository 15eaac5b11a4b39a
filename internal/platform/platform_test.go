package platform

import (
	"bytes"
	"context"
	"errors"
	"expvar"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
)

func TestLogrusLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetLevel(logrus.DebugLevel)
	base.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})

	log := NewLogrusLogger(base).With("component", "docstore")
	log.Info("slot saved", "slot", "tree", "bytes", 12)
	log.Warn("dangling", "only-key")

	out := buf.String()
	for _, want := range []string{"slot saved", "slot=tree", "bytes=12", "component=docstore", "only-key="} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in log output:\n%s", want, out)
		}
	}
}

func TestNewLogrusRejectsUnknownLevel(t *testing.T) {
	if _, err := NewLogrus("loud"); err == nil {
		t.Fatalf("expected level parse error")
	}
	l, err := NewLogrus("debug")
	if err != nil || l.GetLevel() != logrus.DebugLevel {
		t.Fatalf("unexpected logger %v err=%v", l, err)
	}
}

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Observe(context.Background(), "docstore.set", true, 2*time.Millisecond)
	rec.Observe(context.Background(), "docstore.set", false, time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Millisecond)

	snap := rec.Snapshot()
	if snap.Results["docstore.set"]["success"] != 1 || snap.Results["docstore.set"]["error"] != 1 {
		t.Fatalf("unexpected results %+v", snap.Results)
	}
	if snap.DurationsMS["docstore.set"] < 3 {
		t.Fatalf("expected accumulated duration, got %v", snap.DurationsMS["docstore.set"])
	}
	if expvar.Get(rec.Name()) == nil {
		t.Fatalf("expected recorder published under %s", rec.Name())
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg, "test")
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	rec.Observe(context.Background(), "auth.sign_in", true, time.Millisecond)
	rec.Observe(context.Background(), "auth.sign_in", false, time.Millisecond)
	rec.Observe(context.Background(), "auth.sign_in", false, time.Millisecond)

	if got := testutil.ToFloat64(rec.ops.WithLabelValues("auth.sign_in", "error")); got != 2 {
		t.Fatalf("expected 2 errors, got %v", got)
	}
	if _, err := NewPrometheusMetricsRecorder(reg, "test"); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestInstrumentsRun(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	rec := NewExpvarMetricsRecorder("")
	in := NewInstruments(WithTracer(tracer), WithMetricsRecorder(rec), WithLogger(nil))

	boom := errors.New("boom")
	if err := in.Run(context.Background(), "op.fail", func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := in.Run(context.Background(), "op.ok", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	entries := tracer.Entries()
	if len(entries) != 2 || entries[0].Status != "error" || entries[0].Error != "boom" || entries[1].Status != "success" {
		t.Fatalf("unexpected spans %+v", entries)
	}
	if !strings.Contains(buf.String(), `"operation":"op.fail"`) {
		t.Fatalf("expected span json written, got %s", buf.String())
	}
	if _, ok := in.Logger.(NoopLogger); !ok {
		t.Fatalf("nil logger option should keep the noop default")
	}
}

func TestClockFunc(t *testing.T) {
	fixed := time.Unix(42, 0).UTC()
	in := NewInstruments(WithClock(ClockFunc(func() time.Time { return fixed })))
	if !in.Clock.Now().Equal(fixed) {
		t.Fatalf("clock override not applied")
	}
}
