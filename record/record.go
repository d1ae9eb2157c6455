// Package record persists simulation runs and per-step frames to SQLite.
package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eigenbom/sds"
	"github.com/eigenbom/sds/mesh"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Run is one simulation. Params holds the configuration it ran with.
type Run struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"index"`
	Params    datatypes.JSON
	CreatedAt time.Time
	Frames    []Frame `gorm:"constraint:OnDelete:CASCADE"`
}

// Frame is the state of a run after a step. Mesh holds a mesh.Snapshot.
type Frame struct {
	ID       uint   `gorm:"primaryKey"`
	RunID    string `gorm:"uniqueIndex:idx_run_step;not null"`
	Step     int    `gorm:"uniqueIndex:idx_run_step"`
	Cells    int
	Vertices int
	Tetras   int
	Volume   float64
	Contacts int
	MaxDepth float64
	Mesh     datatypes.JSON
}

// Stats are the per-step figures stored alongside a frame's mesh.
type Stats struct {
	Cells    int
	Contacts int
	MaxDepth float64
}

// Store is a run database.
type Store struct {
	db  *gorm.DB
	log *slog.Logger
}

// Open opens or creates the SQLite database at path. Use ":memory:" for a
// transient store.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("record: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Run{}, &Frame{}); err != nil {
		return nil, fmt.Errorf("record: migrate: %w", err)
	}
	s := &Store{db: db, log: sds.Logger()}
	s.log.Info("run store opened", "path", path)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// StartRun creates a run with a new identifier. params is stored as JSON.
func (s *Store) StartRun(ctx context.Context, name string, params any) (*Run, error) {
	b, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("record: params: %w", err)
	}
	r := &Run{ID: uuid.New().String(), Name: name, Params: datatypes.JSON(b)}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, fmt.Errorf("record: start run: %w", err)
	}
	s.log.Info("run started", "run", r.ID, "name", name)
	return r, nil
}

// Record stores a snapshot of m as frame step of run runID.
func (s *Store) Record(ctx context.Context, runID string, step int, m *mesh.Mesh, st Stats) (*Frame, error) {
	snap, _ := m.Export()
	b, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("record: snapshot: %w", err)
	}
	f := &Frame{
		RunID:    runID,
		Step:     step,
		Cells:    st.Cells,
		Vertices: m.NumVertices(),
		Tetras:   m.NumTetras(),
		Volume:   m.Volume(),
		Contacts: st.Contacts,
		MaxDepth: st.MaxDepth,
		Mesh:     datatypes.JSON(b),
	}
	if err := s.db.WithContext(ctx).Create(f).Error; err != nil {
		return nil, fmt.Errorf("record: frame %d: %w", step, err)
	}
	s.log.Debug("frame recorded", "run", runID, "step", step, "bytes", len(b))
	return f, nil
}

// Runs returns all runs, newest first, without their frames.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	var runs []Run
	err := s.db.WithContext(ctx).Order("created_at desc").Find(&runs).Error
	return runs, err
}

// Frames returns the frames of a run ordered by step. The Mesh column is
// left empty; use Mesh to load one.
func (s *Store) Frames(ctx context.Context, runID string) ([]Frame, error) {
	var frames []Frame
	err := s.db.WithContext(ctx).
		Omit("mesh").
		Where("run_id = ?", runID).
		Order("step").
		Find(&frames).Error
	return frames, err
}

// ErrNotFound is returned when a run or frame does not exist.
var ErrNotFound = errors.New("record: not found")

// Mesh rebuilds the mesh recorded at step of run runID.
func (s *Store) Mesh(ctx context.Context, runID string, step int) (*mesh.Mesh, error) {
	var f Frame
	err := s.db.WithContext(ctx).Where("run_id = ? AND step = ?", runID, step).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("run %s step %d: %w", runID, step, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var snap mesh.Snapshot
	if err := json.Unmarshal(f.Mesh, &snap); err != nil {
		return nil, fmt.Errorf("record: frame %d: %w", step, err)
	}
	return mesh.FromSnapshot(snap)
}

// DeleteRun removes a run and its frames.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", runID).Delete(&Frame{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Run{ID: runID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("run %s: %w", runID, ErrNotFound)
		}
		return nil
	})
}
