package record_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/eigenbom/sds/mesh"
	"github.com/eigenbom/sds/record"
	"gonum.org/v1/gonum/spatial/r3"
)

func open(t *testing.T) *record.Store {
	t.Helper()
	s, err := record.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndLoad(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	m, err := mesh.LoadTetgen("../mesh/testdata/lattice")
	if err != nil {
		t.Fatal(err)
	}
	params := map[string]any{"steps": 2, "dt": 0.01}
	run, err := s.StartRun(ctx, "lattice", params)
	if err != nil {
		t.Fatal(err)
	}
	if len(run.ID) != 36 {
		t.Errorf("run id %q", run.ID)
	}
	if _, err := s.Record(ctx, run.ID, 0, m, record.Stats{Cells: 27}); err != nil {
		t.Fatal(err)
	}
	m.Translate(r3.Vec{X: 1})
	if _, err := s.Record(ctx, run.ID, 1, m, record.Stats{Cells: 27, Contacts: 3, MaxDepth: 0.2}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Record(ctx, run.ID, 1, m, record.Stats{}); err == nil {
		t.Error("duplicate step recorded")
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Name != "lattice" {
		t.Fatalf("runs %+v", runs)
	}
	var got map[string]any
	if err := json.Unmarshal(runs[0].Params, &got); err != nil || got["steps"] != 2.0 {
		t.Errorf("params %s: %v", runs[0].Params, err)
	}

	frames, err := s.Frames(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 2 || frames[0].Step != 0 || frames[1].Step != 1 {
		t.Fatalf("frames %+v", frames)
	}
	f := frames[1]
	if f.Vertices != 27 || f.Tetras != 48 || f.Contacts != 3 || f.MaxDepth != 0.2 || f.Volume < 7.999 {
		t.Errorf("frame %+v", f)
	}

	loaded, err := s.Mesh(ctx, run.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := loaded.Check(); err != nil {
		t.Fatal(err)
	}
	if loaded.NumTetras() != 48 || loaded.NumFaces() != 48 {
		t.Errorf("loaded %d tetras %d faces", loaded.NumTetras(), loaded.NumFaces())
	}
	if b := loaded.Bounds(); b.Min.X != 1 || b.Max.X != 3 {
		t.Errorf("loaded bounds %v", b)
	}

	if _, err := s.Mesh(ctx, run.ID, 7); !errors.Is(err, record.ErrNotFound) {
		t.Errorf("missing frame: %v", err)
	}
	if err := s.DeleteRun(ctx, run.ID); err != nil {
		t.Fatal(err)
	}
	if frames, _ := s.Frames(ctx, run.ID); len(frames) != 0 {
		t.Errorf("%d frames left", len(frames))
	}
	if err := s.DeleteRun(ctx, run.ID); !errors.Is(err, record.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}
