package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/movecraft/choreo-backend/internal/platform/logger"
	"github.com/movecraft/choreo-backend/internal/types"
)

// CorpusLoader supplies the full move set and its fused embedding matrix.
// Rows must be produced by the same combiner that builds query vectors.
type CorpusLoader interface {
	LoadCorpus(ctx context.Context) ([]types.Move, [][]float32, error)
}

type IndexConfig struct {
	// Dim is the fused vector dimension every row and query must match.
	Dim int
	// TTL bounds how long a loaded corpus snapshot is served before a reload.
	// Zero or negative disables expiry.
	TTL time.Duration
}

// Match is one search hit resolved against the snapshot it was scored on.
type Match struct {
	Move  types.Move
	Score float64
}

// snapshot is one immutable corpus build. Backends are pinned at build time
// and every search presents the snapshot's version tag, so a reload can never
// feed another snapshot's hit indices into this one's move slice.
type snapshot struct {
	version  string
	moves    []types.Move
	matrix   [][]float32
	cpu      Backend
	accel    Backend // nil when unconfigured or downgraded before this build
	loadedAt time.Time
}

// Index owns the normalized corpus and the exact-search backends. It is a
// shared, read-mostly resource: concurrent searches proceed without
// coordination while reloads are serialized and swapped in atomically, and a
// fault in the accelerated backend downgrades the whole process to the CPU
// backend for good.
type Index struct {
	log    *logger.Logger
	cfg    IndexConfig
	loader CorpusLoader
	accel  Backend // nil when the sidecar is not configured

	mu         sync.RWMutex
	snap       *snapshot
	downgraded bool

	reloads singleflight.Group
}

func NewIndex(log *logger.Logger, cfg IndexConfig, loader CorpusLoader, accel Backend) (*Index, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if loader == nil {
		return nil, fmt.Errorf("corpus loader required")
	}
	if cfg.Dim <= 0 {
		return nil, &types.ConfigurationError{Op: "index", Reason: fmt.Sprintf("invalid vector dimension %d", cfg.Dim)}
	}
	return &Index{
		log:    log.With("service", "SimilarityIndex"),
		cfg:    cfg,
		loader: loader,
		accel:  accel,
	}, nil
}

// Search normalizes the query and returns the top-k matches sorted by
// strictly non-increasing score, ties broken by corpus insertion order.
// Scores are raw inner products over unit vectors (cosine range, unclamped).
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]Match, error) {
	snap, err := x.ensure(ctx)
	if err != nil {
		return nil, err
	}
	if len(query) != x.cfg.Dim {
		return nil, &types.ConfigurationError{
			Op:     "search",
			Reason: fmt.Sprintf("query dimension mismatch: expected=%d got=%d", x.cfg.Dim, len(query)),
		}
	}
	q := l2Normalize(query)
	if k <= 0 || k > len(snap.moves) {
		k = len(snap.moves)
	}

	backend := x.activeBackend(snap)
	hits, err := backend.Search(ctx, snap.version, q, k)
	switch {
	case err == nil:
	case errors.Is(err, ErrIndexSuperseded):
		// A reload replaced the shared accelerated index while this search was
		// in flight. Not a fault: answer from this snapshot's own scan.
		x.log.Info("accelerated index rebuilt mid-search, answering from pinned snapshot",
			"backend", backend.Name(), "version", snap.version)
		hits, err = x.directScan(ctx, snap, q, k)
		if err != nil {
			return nil, &types.IndexRuntimeError{Backend: "cpu", Op: "search", Cause: err}
		}
	default:
		runtimeErr := &types.IndexRuntimeError{Backend: backend.Name(), Op: "search", Cause: err}
		x.log.Error("search backend fault, falling back to direct scan", "backend", backend.Name(), "error", err)
		if backend != snap.cpu {
			x.downgrade(backend.Name())
		}
		// One bounded retry: direct vector comparison over the full corpus.
		hits, err = x.directScan(ctx, snap, q, k)
		if err != nil {
			return nil, &types.ConfigurationError{
				Op:     "search",
				Reason: "search failed after CPU fallback",
				Cause:  fmt.Errorf("%w; fallback: %v", runtimeErr, err),
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].Index < hits[j].Index
		}
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]Match, 0, len(hits))
	for _, h := range hits {
		if h.Index < 0 || h.Index >= len(snap.moves) {
			return nil, &types.IndexRuntimeError{
				Backend: backend.Name(),
				Op:      "search",
				Cause:   fmt.Errorf("hit index %d out of range (corpus size %d)", h.Index, len(snap.moves)),
			}
		}
		out = append(out, Match{Move: snap.moves[h.Index], Score: h.Score})
	}
	return out, nil
}

// CorpusSize reports the size of the current (fresh) snapshot, loading one if
// needed.
func (x *Index) CorpusSize(ctx context.Context) (int, error) {
	snap, err := x.ensure(ctx)
	if err != nil {
		return 0, err
	}
	return len(snap.moves), nil
}

// Invalidate drops the cached snapshot so the next search reloads the corpus.
func (x *Index) Invalidate() {
	x.mu.Lock()
	x.snap = nil
	x.mu.Unlock()
	x.log.Info("corpus snapshot invalidated")
}

// Stats describes the index for health reporting.
type Stats struct {
	CorpusSize int       `json:"corpus_size"`
	Backend    string    `json:"backend"`
	Downgraded bool      `json:"downgraded"`
	LoadedAt   time.Time `json:"loaded_at"`
}

func (x *Index) Stats() Stats {
	x.mu.RLock()
	defer x.mu.RUnlock()
	s := Stats{Backend: "cpu", Downgraded: x.downgraded}
	if x.accel != nil && !x.downgraded {
		s.Backend = x.accel.Name()
	}
	if x.snap != nil {
		s.CorpusSize = len(x.snap.moves)
		s.LoadedAt = x.snap.loadedAt
	}
	return s
}

func (x *Index) ensure(ctx context.Context) (*snapshot, error) {
	x.mu.RLock()
	snap := x.snap
	x.mu.RUnlock()
	if snap != nil && (x.cfg.TTL <= 0 || time.Since(snap.loadedAt) < x.cfg.TTL) {
		return snap, nil
	}

	v, err, _ := x.reloads.Do("reload", func() (interface{}, error) {
		return x.reload(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*snapshot), nil
}

// reload builds a replacement snapshot off to the side and swaps it in
// atomically, so in-flight searches keep the snapshot they started with.
func (x *Index) reload(ctx context.Context) (*snapshot, error) {
	moves, matrix, err := x.loader.LoadCorpus(ctx)
	if err != nil {
		return nil, &types.ConfigurationError{Op: "reload", Reason: "corpus load failed", Cause: err}
	}
	if len(moves) == 0 {
		return nil, &types.ConfigurationError{Op: "reload", Reason: "corpus is empty, no index possible"}
	}
	if len(moves) != len(matrix) {
		return nil, &types.ConfigurationError{
			Op:     "reload",
			Reason: fmt.Sprintf("corpus/matrix size mismatch: moves=%d rows=%d", len(moves), len(matrix)),
		}
	}

	normalized := make([][]float32, len(matrix))
	for i, row := range matrix {
		if len(row) != x.cfg.Dim {
			return nil, &types.ConfigurationError{
				Op:     "reload",
				Reason: fmt.Sprintf("corpus row %d dimension mismatch: expected=%d got=%d", i, x.cfg.Dim, len(row)),
			}
		}
		normalized[i] = l2Normalize(row)
	}

	version := uuid.NewString()
	cpu := NewCPUBackend()
	if err := cpu.Build(ctx, version, normalized); err != nil {
		return nil, &types.ConfigurationError{Op: "reload", Reason: "cpu index build failed", Cause: err}
	}

	// Mirror to the accelerated backend when it is still in play, and pin it
	// into the snapshot only once this build landed. A transfer failure is
	// logged and downgrades silently, never raised.
	var accel Backend
	x.mu.RLock()
	accelActive := x.accel != nil && !x.downgraded
	x.mu.RUnlock()
	if accelActive {
		if err := x.accel.Build(ctx, version, normalized); err != nil {
			x.log.Warn("mirroring corpus to accelerated backend failed, downgrading to cpu", "error", err)
			x.downgrade(x.accel.Name())
		} else {
			accel = x.accel
		}
	}

	snap := &snapshot{
		version:  version,
		moves:    moves,
		matrix:   normalized,
		cpu:      cpu,
		accel:    accel,
		loadedAt: time.Now(),
	}

	x.mu.Lock()
	x.snap = snap
	x.mu.Unlock()
	x.log.Info("corpus snapshot rebuilt", "corpus_size", len(moves), "dim", x.cfg.Dim, "version", version)
	return snap, nil
}

func (x *Index) activeBackend(snap *snapshot) Backend {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if snap.accel != nil && !x.downgraded {
		return snap.accel
	}
	return snap.cpu
}

// downgrade disables the accelerated backend for the remainder of the
// process. The transition is serialized so concurrent searches never observe
// a partially downgraded state.
func (x *Index) downgrade(backendName string) {
	x.mu.Lock()
	already := x.downgraded
	x.downgraded = true
	x.mu.Unlock()
	if !already {
		x.log.Warn("accelerated search backend disabled for remainder of process", "backend", backendName)
	}
}

func (x *Index) directScan(ctx context.Context, snap *snapshot, q []float32, k int) ([]Hit, error) {
	return snap.cpu.Search(ctx, snap.version, q, k)
}
