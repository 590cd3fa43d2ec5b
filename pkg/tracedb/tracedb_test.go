package tracedb

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/audiotesttools/att/pkg/debugfile"
)

const trace = `!VERSION: 0
!TOOL: tracedb-test
frame[1].gain: 0.5
frame[0].gain: 2
frame[0].mic[3]: <2,2> 1, 2, 3, 4
spectrum: <2> 1+2j, -3.5-4j
` + "silence: <0> \n"

var quiet = slog.New(slog.DiscardHandler)

func testDBs(t *testing.T) map[string]*DB {
	t.Helper()
	b, err := Open(Options{InMemory: true, Logger: quiet})
	if err != nil {
		t.Fatal(err)
	}
	dbs := map[string]*DB{"memory": NewMemory(), "badger": b}
	for _, db := range dbs {
		t.Cleanup(func() { db.Close() })
	}
	return dbs
}

func parseTrace(t *testing.T, s string) *debugfile.File {
	t.Helper()
	f, err := debugfile.Parse(strings.NewReader(s), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func dump(t *testing.T, v *debugfile.View) []string {
	t.Helper()
	var out []string
	err := v.Walk(func(p debugfile.Path, val debugfile.Value) error {
		out = append(out, p.String()+"="+val.String()+"/"+val.Kind().String())
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestImportLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, db := range testDBs(t) {
		t.Run(name, func(t *testing.T) {
			f := parseTrace(t, trace)
			run, err := db.Import(ctx, "baseline", f.View, f.Meta.Map())
			if err != nil {
				t.Fatal(err)
			}
			if run.Leaves != 5 || run.Meta["TOOL"] != "tracedb-test" {
				t.Fatalf("run = %+v", run)
			}

			v, got, err := db.Load(ctx, run.ID)
			if err != nil {
				t.Fatal(err)
			}
			if got.ID != run.ID || !got.Created.Equal(run.Created) {
				t.Fatalf("loaded run = %+v, want %+v", got, run)
			}
			if want, have := dump(t, f.View), dump(t, v); !slices.Equal(want, have) {
				t.Fatalf("loaded tree =\n%s\nwant\n%s", strings.Join(have, "\n"), strings.Join(want, "\n"))
			}

			// Key order survives, including non-sorted indices.
			idx, err := v.Indices("frame")
			if err != nil || !slices.Equal(idx, []int{1, 0}) {
				t.Fatalf("frame indices = %v, %v", idx, err)
			}
		})
	}
}

func TestImportSubView(t *testing.T) {
	ctx := context.Background()
	db := NewMemory()
	defer db.Close()

	f := parseTrace(t, trace)
	frame, err := f.Scope("frame[0]")
	if err != nil {
		t.Fatal(err)
	}
	run, err := db.Import(ctx, "", frame, nil)
	if err != nil {
		t.Fatal(err)
	}
	v, _, err := db.Load(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	// Leaves keep their absolute paths.
	if _, err := v.Get("frame[0].mic[3]"); err != nil {
		t.Fatal(err)
	}
	if n, _ := v.ChildCount(nil); n != 1 {
		t.Fatalf("root children = %d", n)
	}
}

func TestRunLookup(t *testing.T) {
	ctx := context.Background()
	for name, db := range testDBs(t) {
		t.Run(name, func(t *testing.T) {
			base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
			tick := 0
			db.now = func() time.Time {
				tick++
				return base.Add(time.Duration(tick) * time.Minute)
			}

			f := parseTrace(t, trace)
			a, _ := db.Import(ctx, "alpha", f.View, nil)
			b1, _ := db.Import(ctx, "beta", f.View, nil)
			b2, _ := db.Import(ctx, "beta", f.View, nil)

			runs, err := db.Runs(ctx)
			if err != nil {
				t.Fatal(err)
			}
			var ids []string
			for _, r := range runs {
				ids = append(ids, r.ID)
			}
			if !slices.Equal(ids, []string{a.ID, b1.ID, b2.ID}) {
				t.Fatalf("runs not in creation order: %v", ids)
			}

			if r, err := db.Run(ctx, "alpha"); err != nil || r.ID != a.ID {
				t.Fatalf("Run(alpha) = %+v, %v", r, err)
			}
			if r, err := db.Run(ctx, b2.ID[:13]); err != nil || r.ID != b2.ID {
				t.Fatalf("Run(prefix) = %+v, %v", r, err)
			}
			if _, err := db.Run(ctx, "beta"); !errors.Is(err, ErrAmbiguousRun) {
				t.Fatalf("Run(beta) = %v, want ErrAmbiguousRun", err)
			}
			if _, err := db.Run(ctx, "nope"); !errors.Is(err, ErrRunNotFound) {
				t.Fatalf("Run(nope) = %v", err)
			}
			if _, err := db.Run(ctx, ""); !errors.Is(err, ErrRunNotFound) {
				t.Fatalf("Run(\"\") = %v", err)
			}
		})
	}
}

func TestRunsSameInstant(t *testing.T) {
	ctx := context.Background()
	for name, db := range testDBs(t) {
		t.Run(name, func(t *testing.T) {
			at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			db.now = func() time.Time { return at }
			f := parseTrace(t, trace)

			var want []string
			for _, n := range []string{"third", "first", "second", "first", "zeta"} {
				run, err := db.Import(ctx, n, f.View, nil)
				if err != nil {
					t.Fatal(err)
				}
				want = append(want, run.ID)
			}
			if _, err := db.Delete(ctx, want[1]); err != nil {
				t.Fatal(err)
			}
			want = slices.Delete(want, 1, 2)
			last, err := db.Import(ctx, "last", f.View, nil)
			if err != nil {
				t.Fatal(err)
			}
			want = append(want, last.ID)

			runs, err := db.Runs(ctx)
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, r := range runs {
				got = append(got, r.ID)
			}
			if !slices.Equal(got, want) {
				t.Fatalf("run order = %v, want %v", got, want)
			}
			if last.Seq != 6 {
				t.Fatalf("last.Seq = %d, want 6", last.Seq)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	for name, db := range testDBs(t) {
		t.Run(name, func(t *testing.T) {
			f := parseTrace(t, trace)
			keep, _ := db.Import(ctx, "keep", f.View, nil)
			drop, _ := db.Import(ctx, "drop", f.View, nil)

			if _, err := db.Delete(ctx, "drop"); err != nil {
				t.Fatal(err)
			}
			if _, _, err := db.Load(ctx, drop.ID); !errors.Is(err, ErrRunNotFound) {
				t.Fatalf("Load(deleted) = %v", err)
			}
			for p, err := range db.kv.scan(leafPrefix(drop.ID)) {
				t.Fatalf("leftover leaf %q (%v)", p.key, err)
			}
			if _, _, err := db.Load(ctx, keep.ID); err != nil {
				t.Fatalf("Load(kept) = %v", err)
			}
			if _, err := db.Delete(ctx, "drop"); !errors.Is(err, ErrRunNotFound) {
				t.Fatalf("second Delete = %v", err)
			}
		})
	}
}

func TestBadgerPersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := Open(Options{Dir: dir, Logger: quiet})
	if err != nil {
		t.Fatal(err)
	}
	f := parseTrace(t, trace)
	run, err := db.Import(ctx, "persist", f.View, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db, err = Open(Options{Dir: dir, Logger: quiet})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	v, _, err := db.Load(ctx, "persist")
	if err != nil {
		t.Fatal(err)
	}
	if got := dump(t, v); len(got) != run.Leaves {
		t.Fatalf("reopened run has %d leaves, want %d", len(got), run.Leaves)
	}
}

func TestOpenRequiresDir(t *testing.T) {
	if _, err := Open(Options{Logger: quiet}); err == nil {
		t.Fatal("expected error without Dir")
	}
}

func TestClosedMemory(t *testing.T) {
	db := NewMemory()
	db.Close()
	f := parseTrace(t, trace)
	if _, err := db.Import(context.Background(), "x", f.View, nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("Import after Close = %v", err)
	}
	if _, err := db.Runs(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Runs after Close = %v", err)
	}
}

func TestImportCanceled(t *testing.T) {
	db := NewMemory()
	defer db.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := parseTrace(t, trace)
	if _, err := db.Import(ctx, "x", f.View, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("Import(canceled) = %v", err)
	}
	if runs, _ := db.Runs(context.Background()); len(runs) != 0 {
		t.Fatalf("canceled import left %d runs", len(runs))
	}
}

func TestLeafRecordCorrupt(t *testing.T) {
	rec := &leafRecord{Path: []segRecord{{N: "x"}}, Kind: uint8(debugfile.KindInt), Scalar: true}
	if _, _, err := rec.decode(); err == nil {
		t.Fatal("expected error for scalar without data")
	}
	rec = &leafRecord{Path: []segRecord{{N: "x"}}, Kind: 9, Shape: []int{1}}
	if _, _, err := rec.decode(); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
