package features

import (
	"fmt"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/go-playground/validator/v10"
	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/jengzang/trip-features-go/internal/stats"
)

// OutOfBounds is the square id of points outside the fitted region
const OutOfBounds = -1

const (
	lowerEdgeQuantile = 0.01
	upperEdgeQuantile = 0.99

	// minimum rows per worker before a transform is split
	minChunkRows = 1024
)

// PointKind selects the pickup or the dropoff grid
type PointKind string

const (
	Pickup  PointKind = "pickup"
	Dropoff PointKind = "dropoff"
)

// Valid reports whether k names one of the two grids
func (k PointKind) Valid() bool {
	return k == Pickup || k == Dropoff
}

// GridConfig configures a GridIndexer
type GridConfig struct {
	HorBins int `json:"hor_bins" validate:"min=1"`
	VerBins int `json:"ver_bins" validate:"min=1"`
	Workers int `json:"workers" validate:"min=0"`
}

// GridState holds the fitted bin edges. Longitude sequences have HorBins+1
// entries and latitude sequences VerBins+1.
type GridState struct {
	HorBins          int       `json:"hor_bins"`
	VerBins          int       `json:"ver_bins"`
	PickupLongEdges  []float64 `json:"pickup_long_edges"`
	PickupLatEdges   []float64 `json:"pickup_lat_edges"`
	DropoffLongEdges []float64 `json:"dropoff_long_edges"`
	DropoffLatEdges  []float64 `json:"dropoff_lat_edges"`
}

func (s GridState) edges(kind PointKind) (long, lat []float64) {
	if kind == Dropoff {
		return s.DropoffLongEdges, s.DropoffLatEdges
	}
	return s.PickupLongEdges, s.PickupLatEdges
}

// Cell is one square of a fitted grid. Bounds.X spans longitude, Bounds.Y latitude.
type Cell struct {
	ID     int     `json:"id"`
	Column int     `json:"column"`
	Row    int     `json:"row"`
	Bounds r2.Rect `json:"-"`
}

// GridIndexer maps pickup and dropoff coordinates onto a hor_bins x ver_bins
// grid spanning the 1st to 99th percentile of the training coordinates.
type GridIndexer struct {
	log   *zap.Logger
	cfg   GridConfig
	state GridState
}

var validate = validator.New()

// NewGridIndexer creates an unfitted indexer
func NewGridIndexer(cfg GridConfig, log *zap.Logger) (*GridIndexer, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid grid config: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GridIndexer{
		log:   log,
		cfg:   cfg,
		state: GridState{HorBins: cfg.HorBins, VerBins: cfg.VerBins},
	}, nil
}

// RestoreGridIndexer rebuilds a fitted indexer from a saved state. The bin
// counts come from the state.
func RestoreGridIndexer(state GridState, workers int, log *zap.Logger) (*GridIndexer, error) {
	g, err := NewGridIndexer(GridConfig{HorBins: state.HorBins, VerBins: state.VerBins, Workers: workers}, log)
	if err != nil {
		return nil, err
	}
	if err := checkEdges(state.PickupLongEdges, state.HorBins); err != nil {
		return nil, fmt.Errorf("pickup longitude: %w", err)
	}
	if err := checkEdges(state.PickupLatEdges, state.VerBins); err != nil {
		return nil, fmt.Errorf("pickup latitude: %w", err)
	}
	if err := checkEdges(state.DropoffLongEdges, state.HorBins); err != nil {
		return nil, fmt.Errorf("dropoff longitude: %w", err)
	}
	if err := checkEdges(state.DropoffLatEdges, state.VerBins); err != nil {
		return nil, fmt.Errorf("dropoff latitude: %w", err)
	}
	g.state = cloneGridState(state)
	return g, nil
}

// an empty sequence is an unfitted axis
func checkEdges(edges []float64, bins int) error {
	if len(edges) != 0 && len(edges) != bins+1 {
		return fmt.Errorf("expected %d edges, got %d", bins+1, len(edges))
	}
	return nil
}

// Config returns the indexer configuration
func (g *GridIndexer) Config() GridConfig {
	return g.cfg
}

// State returns a copy of the fitted state
func (g *GridIndexer) State() GridState {
	return cloneGridState(g.state)
}

func cloneGridState(s GridState) GridState {
	return GridState{
		HorBins:          s.HorBins,
		VerBins:          s.VerBins,
		PickupLongEdges:  append([]float64(nil), s.PickupLongEdges...),
		PickupLatEdges:   append([]float64(nil), s.PickupLatEdges...),
		DropoffLongEdges: append([]float64(nil), s.DropoffLongEdges...),
		DropoffLatEdges:  append([]float64(nil), s.DropoffLatEdges...),
	}
}

// Fit learns the bin edges of the four coordinate axes
func (g *GridIndexer) Fit(df dataframe.DataFrame) error {
	axes := []struct {
		column string
		bins   int
	}{
		{ColPickupLongitude, g.cfg.HorBins},
		{ColPickupLatitude, g.cfg.VerBins},
		{ColDropoffLongitude, g.cfg.HorBins},
		{ColDropoffLatitude, g.cfg.VerBins},
	}

	edges := make([][]float64, len(axes))
	for i, axis := range axes {
		values, err := floatColumn(df, axis.column)
		if err != nil {
			return err
		}
		edges[i] = quantileEdges(values, axis.bins)

		g.log.Debug("grid axis fitted",
			zap.String("column", axis.column),
			zap.Int("valid_rows", stats.CountValid(values)),
			zap.Float64s("edges", edges[i]),
		)
	}

	g.state = GridState{
		HorBins:          g.cfg.HorBins,
		VerBins:          g.cfg.VerBins,
		PickupLongEdges:  edges[0],
		PickupLatEdges:   edges[1],
		DropoffLongEdges: edges[2],
		DropoffLatEdges:  edges[3],
	}

	pickup, dropoff := g.Bounds()
	g.log.Info("grid indexer fitted",
		zap.Int("rows", df.Nrow()),
		zap.Int("hor_bins", g.cfg.HorBins),
		zap.Int("ver_bins", g.cfg.VerBins),
		zap.Stringer("pickup_bounds", pickup),
		zap.Stringer("dropoff_bounds", dropoff),
	)
	return nil
}

// quantileEdges spans bins+1 evenly spaced edges between the 1st and 99th percentile.
func quantileEdges(values []float64, bins int) []float64 {
	q := stats.Quantiles(values, lowerEdgeQuantile, upperEdgeQuantile)
	x0, xn := q[0], q[1]

	edges := floats.Span(make([]float64, bins+1), x0, xn)
	edges[bins] = xn
	return edges
}

// Transform appends the pickup_square and dropoff_square columns
func (g *GridIndexer) Transform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	cols := make([][]float64, 4)
	for i, name := range []string{ColPickupLongitude, ColPickupLatitude, ColDropoffLongitude, ColDropoffLatitude} {
		values, err := floatColumn(df, name)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		cols[i] = values
	}

	pickup, err := g.locateAll(cols[0], cols[1], g.state.PickupLongEdges, g.state.PickupLatEdges)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	dropoff, err := g.locateAll(cols[2], cols[3], g.state.DropoffLongEdges, g.state.DropoffLatEdges)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	out := df.
		Mutate(series.New(pickup, series.Int, ColPickupSquare)).
		Mutate(series.New(dropoff, series.Int, ColDropoffSquare))
	if err := out.Error(); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to append square columns: %w", err)
	}
	return out, nil
}

// locateAll resolves every point, splitting rows into contiguous chunks when
// more than one worker is configured.
func (g *GridIndexer) locateAll(lngs, lats, longEdges, latEdges []float64) ([]int, error) {
	squares := make([]int, len(lngs))

	workers := g.cfg.Workers
	if limit := len(lngs) / minChunkRows; workers > limit {
		workers = limit
	}
	if workers <= 1 {
		for i := range lngs {
			squares[i] = LocateCell(lngs[i], lats[i], longEdges, latEdges)
		}
		return squares, nil
	}

	chunk := (len(lngs) + workers - 1) / workers
	var eg errgroup.Group
	eg.SetLimit(workers)
	for start := 0; start < len(lngs); start += chunk {
		start := start
		end := min(start+chunk, len(lngs))
		eg.Go(func() error {
			for i := start; i < end; i++ {
				squares[i] = LocateCell(lngs[i], lats[i], longEdges, latEdges)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return squares, nil
}

// LocateCell returns the row-major square id of (lng, lat) on the grid given
// by the edge sequences, or OutOfBounds when the point lies outside the
// closed region [longEdges[0], longEdges[last]] x [latEdges[0], latEdges[last]].
// A coordinate equal to the last edge belongs to the final bin of its axis.
// Unfitted (fewer than two) edges and NaN coordinates yield OutOfBounds. A NaN
// coordinate is never treated as bin 0 of its axis, unlike a plain edge scan
// that skips every comparison.
func LocateCell(lng, lat float64, longEdges, latEdges []float64) int {
	if len(longEdges) < 2 || len(latEdges) < 2 {
		return OutOfBounds
	}
	if !region(longEdges, latEdges).ContainsPoint(r2.Point{X: lng, Y: lat}) {
		return OutOfBounds
	}

	column := binIndex(longEdges, lng)
	row := binIndex(latEdges, lat)
	return column + row*(len(longEdges)-1)
}

func region(longEdges, latEdges []float64) r2.Rect {
	return r2.Rect{
		X: r1.Interval{Lo: longEdges[0], Hi: longEdges[len(longEdges)-1]},
		Y: r1.Interval{Lo: latEdges[0], Hi: latEdges[len(latEdges)-1]},
	}
}

// binIndex is the first n with edges[n] > v, minus one, for v within
// [edges[0], edges[last]].
func binIndex(edges []float64, v float64) int {
	n := sort.Search(len(edges), func(i int) bool { return edges[i] > v })
	if n == len(edges) {
		// v equals the last edge
		return len(edges) - 2
	}
	return n - 1
}

// Bounds returns the covered pickup and dropoff regions. An unfitted grid
// yields empty rectangles.
func (g *GridIndexer) Bounds() (pickup, dropoff r2.Rect) {
	return g.bounds(Pickup), g.bounds(Dropoff)
}

func (g *GridIndexer) bounds(kind PointKind) r2.Rect {
	long, lat := g.state.edges(kind)
	if len(long) < 2 || len(lat) < 2 {
		return r2.EmptyRect()
	}
	return region(long, lat)
}

// Cells lists every square of the pickup or dropoff grid in id order.
// An unfitted grid has no cells.
func (g *GridIndexer) Cells(kind PointKind) []Cell {
	long, lat := g.state.edges(kind)
	if len(long) < 2 || len(lat) < 2 {
		return nil
	}

	cols := len(long) - 1
	rows := len(lat) - 1
	cells := make([]Cell, 0, cols*rows)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			cells = append(cells, Cell{
				ID:     col + row*cols,
				Column: col,
				Row:    row,
				Bounds: r2.Rect{
					X: r1.Interval{Lo: long[col], Hi: long[col+1]},
					Y: r1.Interval{Lo: lat[row], Hi: lat[row+1]},
				},
			})
		}
	}
	return cells
}
