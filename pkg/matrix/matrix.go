// Package matrix assembles discovered temporal and existential
// relations into a dependency matrix and exposes the aggregate ratio
// statistics classification consumes.
package matrix

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/proclens/proclens/internal/model"
	"github.com/proclens/proclens/pkg/dependency"
	"github.com/proclens/proclens/pkg/errors"
)

// Cell is the combined relation pair for one ordered activity pair,
// the atomic unit stored in the matrix.
type Cell struct {
	Temporal    dependency.TemporalRelation
	Existential dependency.ExistentialRelation
}

// Ratios maps each combined-relation bucket to the fraction of
// off-diagonal cells falling into it. For a non-empty matrix the
// fractions sum to 1.0. These ratios are the sole input to
// classification.
type Ratios map[Cell]float64

// Matrix maps every ordered pair of distinct alphabet activities to
// its combined relation cell. It is built once per (log, threshold
// pair) and never mutated afterwards, so it may be shared freely.
type Matrix struct {
	alphabet             []model.Activity
	cells                map[dependency.Pair]Cell
	temporalThreshold    float64
	existentialThreshold float64
}

// Build runs both analyzers over the log's alphabet and zips their
// per-pair decisions into one matrix. Thresholds are validated and the
// log checked for emptiness before any trace is inspected; there is no
// partially computed matrix.
//
// Discovery fans out across the alphabet's rows: each pair's decision
// depends only on read-only trace statistics, so the rows are computed
// in parallel and merged without locks.
func Build(ctx context.Context, log *model.EventLog, temporalThreshold, existentialThreshold float64) (*Matrix, error) {
	if temporalThreshold < 0.0 || temporalThreshold > 1.0 {
		return nil, errors.InvalidThreshold("temporal", temporalThreshold)
	}
	if existentialThreshold < 0.0 || existentialThreshold > 1.0 {
		return nil, errors.InvalidThreshold("existential", existentialThreshold)
	}
	if log.Empty() {
		return nil, errors.EmptyLog()
	}

	alphabet := log.Alphabet()
	temporal := dependency.NewTemporalAnalyzer(log, temporalThreshold)
	existential := dependency.NewExistentialAnalyzer(log, existentialThreshold)

	rows := make([][]Cell, len(alphabet))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, from := range alphabet {
		i, from := i, from
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), errors.CodeContextCanceled, "matrix build canceled")
			default:
			}
			row := make([]Cell, len(alphabet))
			for j, to := range alphabet {
				if from == to {
					continue
				}
				row[j] = Cell{
					Temporal:    temporal.Relation(from, to),
					Existential: existential.Relation(from, to),
				}
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cells := make(map[dependency.Pair]Cell, len(alphabet)*(len(alphabet)-1))
	for i, from := range alphabet {
		for j, to := range alphabet {
			if from == to {
				continue
			}
			cells[dependency.Pair{From: from, To: to}] = rows[i][j]
		}
	}

	return &Matrix{
		alphabet:             alphabet,
		cells:                cells,
		temporalThreshold:    temporalThreshold,
		existentialThreshold: existentialThreshold,
	}, nil
}

// Alphabet returns the activities the matrix covers, sorted.
func (m *Matrix) Alphabet() []model.Activity {
	return m.alphabet
}

// Cell returns the combined relation for the ordered pair (from, to).
// The diagonal and unknown activities report false.
func (m *Matrix) Cell(from, to model.Activity) (Cell, bool) {
	cell, ok := m.cells[dependency.Pair{From: from, To: to}]
	return cell, ok
}

// Cells returns the full pair-to-cell mapping. Callers must treat the
// returned map as read-only.
func (m *Matrix) Cells() map[dependency.Pair]Cell {
	return m.cells
}

// Size returns the number of off-diagonal cells.
func (m *Matrix) Size() int {
	return len(m.cells)
}

// TemporalThreshold returns the threshold the matrix was built with.
func (m *Matrix) TemporalThreshold() float64 { return m.temporalThreshold }

// ExistentialThreshold returns the threshold the matrix was built with.
func (m *Matrix) ExistentialThreshold() float64 { return m.existentialThreshold }

// Ratios computes the fraction of cells per combined-relation bucket.
// An alphabet of size <= 1 has no off-diagonal pairs and yields an
// empty mapping, which classification still resolves to a result.
func (m *Matrix) Ratios() Ratios {
	ratios := make(Ratios)
	if len(m.cells) == 0 {
		return ratios
	}
	counts := make(map[Cell]int)
	for _, cell := range m.cells {
		counts[cell]++
	}
	total := float64(len(m.cells))
	for cell, count := range counts {
		ratios[cell] = float64(count) / total
	}
	return ratios
}
