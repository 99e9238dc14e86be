package features

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
)

// Transformer learns statistics from a training frame and appends derived
// columns to any frame afterwards.
type Transformer interface {
	// Fit learns the state used by Transform
	Fit(df dataframe.DataFrame) error

	// Transform returns a copy of df with the derived columns appended
	Transform(df dataframe.DataFrame) (dataframe.DataFrame, error)
}

// FitTransform fits t on df and transforms the same frame.
func FitTransform(t Transformer, df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := t.Fit(df); err != nil {
		return dataframe.DataFrame{}, err
	}
	return t.Transform(df)
}

// Pipeline chains transformers. Step i is fitted on the output of steps 0..i-1.
type Pipeline struct {
	steps []Transformer
}

// NewPipeline creates a pipeline running steps in the given order
func NewPipeline(steps ...Transformer) *Pipeline {
	return &Pipeline{steps: steps}
}

// Steps returns the pipeline steps in order
func (p *Pipeline) Steps() []Transformer {
	return p.steps
}

// Fit fits every step in order
func (p *Pipeline) Fit(df dataframe.DataFrame) error {
	current := df
	for i, step := range p.steps {
		if err := step.Fit(current); err != nil {
			return fmt.Errorf("failed to fit step %d: %w", i, err)
		}
		if i == len(p.steps)-1 {
			break
		}
		next, err := step.Transform(current)
		if err != nil {
			return fmt.Errorf("failed to transform step %d: %w", i, err)
		}
		current = next
	}
	return nil
}

// Transform applies every step in order
func (p *Pipeline) Transform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	current := df
	for i, step := range p.steps {
		next, err := step.Transform(current)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("failed to transform step %d: %w", i, err)
		}
		current = next
	}
	return current, nil
}
