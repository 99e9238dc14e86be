package features

import (
	"errors"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipeline(t *testing.T) (*Pipeline, *TrafficClassifier, *GridIndexer) {
	t.Helper()
	traffic := newClassifier(t, MatchCoordinates)
	grid := newIndexer(t, GridConfig{HorBins: 4, VerBins: 2})
	return NewPipeline(traffic, grid), traffic, grid
}

func TestPipelineAppendsAllColumns(t *testing.T) {
	p, _, _ := newPipeline(t)
	train := uniformFrame(t)

	out, err := FitTransform(p, train)
	require.NoError(t, err)

	for _, name := range []string{ColTraffic, ColNoTraffic, ColPickupSquare, ColDropoffSquare} {
		assert.Contains(t, out.Names(), name)
	}
	assert.Equal(t, train.Nrow(), out.Nrow())
	assert.Equal(t, train.Ncol()+4, out.Ncol())
	assert.Len(t, p.Steps(), 2)
}

func TestPipelineMatchesComponents(t *testing.T) {
	p, _, _ := newPipeline(t)
	train := congestedFrame(t)
	require.NoError(t, p.Fit(train))

	traffic := newClassifier(t, MatchCoordinates)
	grid := newIndexer(t, GridConfig{HorBins: 4, VerBins: 2})
	require.NoError(t, traffic.Fit(train))
	require.NoError(t, grid.Fit(train))

	input := uniformFrame(t)
	got, err := p.Transform(input)
	require.NoError(t, err)

	// components are independent, so the order of the steps does not matter
	reversed, err := grid.Transform(input)
	require.NoError(t, err)
	reversed, err = traffic.Transform(reversed)
	require.NoError(t, err)

	for _, name := range []string{ColTraffic, ColNoTraffic} {
		assert.Equal(t, boolColumn(t, reversed, name), boolColumn(t, got, name))
	}
	for _, name := range []string{ColPickupSquare, ColDropoffSquare} {
		assert.Equal(t, intValues(t, reversed, name), intValues(t, got, name))
	}
}

type failingStep struct {
	err error
}

func (f failingStep) Fit(dataframe.DataFrame) error { return f.err }

func (f failingStep) Transform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	return df, f.err
}

func TestPipelineWrapsStepErrors(t *testing.T) {
	boom := errors.New("boom")
	traffic := newClassifier(t, MatchCoordinates)

	p := NewPipeline(traffic, failingStep{err: boom})
	err := p.Fit(congestedFrame(t))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "step 1")

	_, err = p.Transform(congestedFrame(t))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "step 1")
}

func TestPipelineMissingColumn(t *testing.T) {
	p, _, _ := newPipeline(t)
	df := dataframe.New(series.New([]int{1}, series.Int, ColDayOfWeek))

	err := p.Fit(df)
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "step 0")
}

func TestFitTransformStopsOnFitError(t *testing.T) {
	boom := errors.New("boom")
	_, err := FitTransform(failingStep{err: boom}, congestedFrame(t))
	require.ErrorIs(t, err, boom)
}
