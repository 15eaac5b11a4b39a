package docstore

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"boardhouse/internal/tree"
)

func TestSubscribeDeliversImmediately(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustWrite(t, s.Set(ctx, s.Ref("landingContent"), tree.Object("heroTitle", "Welcome")))
	var got []tree.Value
	unsub := s.Subscribe(s.Ref("landingContent/heroTitle"), func(snap Snapshot) {
		got = append(got, snap.Val())
	}, nil)
	defer unsub()
	if len(got) != 1 || !got[0].Equal(tree.String("Welcome")) {
		t.Fatalf("expected synchronous first delivery, got %d values", len(got))
	}
}

func TestSubscriptionOverlap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	fired := 0
	unsub := s.Subscribe(s.Ref("a/b"), func(Snapshot) { fired++ }, nil)
	defer unsub()
	fired = 0

	mustWrite(t, s.Set(ctx, s.Ref("a/b/c"), tree.Int(1)))
	if fired != 1 {
		t.Fatalf("descendant write should notify, fired=%d", fired)
	}
	mustWrite(t, s.Set(ctx, s.Ref("a"), tree.Object("b", 2)))
	if fired != 2 {
		t.Fatalf("ancestor write should notify, fired=%d", fired)
	}
	mustWrite(t, s.Set(ctx, s.Ref("x/y"), tree.Int(3)))
	mustWrite(t, s.Set(ctx, s.Ref("a/bc"), tree.Int(4)))
	if fired != 2 {
		t.Fatalf("unrelated writes should not notify, fired=%d", fired)
	}
	mustWrite(t, s.Remove(ctx, s.Ref("/")))
	if fired != 3 {
		t.Fatalf("root mutation should notify, fired=%d", fired)
	}
}

func TestRootSubscriptionSeesEverything(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	fired := 0
	defer s.Subscribe(s.Ref(""), func(Snapshot) { fired++ }, nil)()
	mustWrite(t, s.Set(ctx, s.Ref("x/y"), tree.Int(1)))
	mustWrite(t, s.Update(ctx, s.Ref("q"), tree.Object("k", 1)))
	if fired != 3 {
		t.Fatalf("expected initial plus two deliveries, got %d", fired)
	}
}

func TestDeliveryOrderAndUnsubscribe(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	var order []string
	record := func(name string) func(Snapshot) {
		return func(Snapshot) { order = append(order, name) }
	}
	unsubA := s.Subscribe(s.Ref("users"), record("a"), nil)
	unsubB := s.Subscribe(s.Ref("users/u1"), record("b"), nil)
	unsubC := s.Subscribe(s.Ref("users"), record("c"), nil)
	order = nil

	mustWrite(t, s.Set(ctx, s.Ref("users/u1/role"), tree.String("staff")))
	if diff := cmp.Diff([]string{"a", "b", "c"}, order); diff != "" {
		t.Fatalf("delivery order mismatch:\n%s", diff)
	}

	unsubB()
	unsubB()
	order = nil
	mustWrite(t, s.Set(ctx, s.Ref("users/u1/role"), tree.String("user")))
	if diff := cmp.Diff([]string{"a", "c"}, order); diff != "" {
		t.Fatalf("unsubscribed listener still notified:\n%s", diff)
	}
	unsubA()
	unsubC()
	if s.Subscribers() != 0 {
		t.Fatalf("expected registry empty, have %d", s.Subscribers())
	}
}

func TestNoCoalescing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	var seen []float64
	defer s.Subscribe(s.Ref("counter"), func(snap Snapshot) {
		n, _ := snap.Val().AsNumber()
		seen = append(seen, n)
	}, nil)()
	for i := 1; i <= 3; i++ {
		mustWrite(t, s.Set(ctx, s.Ref("counter"), tree.Int(int64(i))))
	}
	if diff := cmp.Diff([]float64{0, 1, 2, 3}, seen); diff != "" {
		t.Fatalf("every write should be delivered:\n%s", diff)
	}
}

func TestPanicRoutedToOwnErrorCallback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	var errs []error
	calls := 0
	defer s.Subscribe(s.Ref("boardingHouses"), func(snap Snapshot) {
		if snap.Exists() {
			panic("render failed")
		}
	}, func(err error) { errs = append(errs, err) })()
	defer s.Subscribe(s.Ref("boardingHouses"), func(Snapshot) { calls++ }, nil)()

	mustWrite(t, s.Set(ctx, s.Ref("boardingHouses/bh1"), tree.Object("name", "Casa")))
	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "render failed") {
		t.Fatalf("expected panic routed to onError, got %v", errs)
	}
	if calls != 2 {
		t.Fatalf("failing subscriber must not block others, calls=%d", calls)
	}
}

func TestSubscribeToQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	q := s.Ref("applications").OrderByChild("status").EqualTo(tree.String("pending"))
	var counts []int
	defer s.Subscribe(q, func(snap Snapshot) { counts = append(counts, snap.NumChildren()) }, nil)()

	mustWrite(t, s.Set(ctx, s.Ref("applications/a1"), tree.Object("status", "pending")))
	mustWrite(t, s.Set(ctx, s.Ref("applications/a2"), tree.Object("status", "approved")))
	mustWrite(t, s.Update(ctx, s.Ref("applications/a2"), tree.Object("status", "pending")))
	if diff := cmp.Diff([]int{0, 1, 1, 2}, counts); diff != "" {
		t.Fatalf("query deliveries mismatch:\n%s", diff)
	}
}

func TestWriteInsideCallback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	defer s.Subscribe(s.Ref("in"), func(snap Snapshot) {
		if snap.Exists() {
			if err := s.Set(ctx, s.Ref("out"), snap.Val()); err != nil {
				t.Errorf("nested set: %v", err)
			}
		}
	}, nil)()
	mustWrite(t, s.Set(ctx, s.Ref("in"), tree.String("echo")))
	snap := mustGet(t, s, s.Ref("out"))
	if !snap.Val().Equal(tree.String("echo")) {
		t.Fatalf("nested write not applied")
	}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		target, changed string
		want            bool
	}{
		{"a/b", "a/b/c", true},
		{"a/b", "a", true},
		{"a/b", "a/b", true},
		{"", "x", true},
		{"x", "", true},
		{"a/b", "x/y", false},
		{"a/b", "a/bc", false},
	}
	for _, tc := range cases {
		if got := overlaps(tc.target, tc.changed); got != tc.want {
			t.Fatalf("overlaps(%q,%q)=%v want %v", tc.target, tc.changed, got, tc.want)
		}
	}
}
