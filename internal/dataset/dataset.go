// Package dataset builds labelled collections of normal and anomalous series
// for training and evaluating classifiers.
package dataset

import (
	"context"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/synthdata/internal/foundation"
	"git.home.luguber.info/inful/synthdata/internal/sampling"
	"git.home.luguber.info/inful/synthdata/internal/stats"
)

// Labels used in exported tables.
const (
	LabelNormal    = 0
	LabelAnomalous = 1
)

// SeriesOptions configures a single series. Sigma is a standard deviation.
type SeriesOptions struct {
	Size     int     `json:"size" yaml:"size"`
	Fraction float64 `json:"anomaly_frac" yaml:"anomaly_frac"`
	Scale    float64 `json:"anomaly_scale" yaml:"anomaly_scale"`
	Loc      float64 `json:"loc" yaml:"loc"`
	Sigma    float64 `json:"scale" yaml:"scale"`
}

// DefaultSeriesOptions returns 1000 points with 2% anomalies.
func DefaultSeriesOptions() SeriesOptions {
	return SeriesOptions{Size: 1000, Fraction: 0.02, Scale: 2, Loc: 0, Sigma: 1}
}

func (o SeriesOptions) validation(prefix string) *foundation.Validation {
	v := foundation.NewValidation(prefix)
	v.Check(o.Size > 0, "size", o.Size, "must be positive")
	v.Check(o.Fraction >= 0 && o.Fraction < 1, "anomaly_frac", o.Fraction, "must be in [0, 1)")
	v.Check(o.Scale >= 0, "anomaly_scale", o.Scale, "must not be negative")
	v.Check(o.Sigma >= 0, "scale", o.Sigma, "must not be negative")
	return v
}

// Validate reports every invalid field.
func (o SeriesOptions) Validate() error { return o.validation("series").Err() }

// SeriesWithAnomalies draws o.Size values from N(Loc, Sigma) and replaces
// int(Size*Fraction) of them with values spread Scale ranges beyond the
// observed minimum and maximum. The returned indices are sorted.
func SeriesWithAnomalies(o SeriesOptions, src *sampling.Source) ([]float64, []int, error) {
	if err := o.Validate(); err != nil {
		return nil, nil, err
	}
	values := src.Normal(o.Size, o.Loc, o.Sigma)
	k := int(float64(o.Size) * o.Fraction)
	if k == 0 {
		return values, nil, nil
	}

	s := stats.Summarize(values)
	lo := s.Min - o.Scale*s.Range()
	hi := s.Max + o.Scale*s.Range()
	idx, err := src.Choose(o.Size, k)
	if err != nil {
		return nil, nil, err
	}
	for _, i := range idx {
		values[i] = o.Loc + src.Uniform(lo, hi)
	}
	slices.Sort(idx)
	return values, idx, nil
}

// CollectionOptions configures a labelled collection.
type CollectionOptions struct {
	N             int           `json:"n" yaml:"n"`
	ProbAnomalous float64       `json:"prob_anomalous" yaml:"prob_anomalous"`
	Series        SeriesOptions `json:"series" yaml:"series"`
}

// DefaultCollectionOptions returns ten series, each anomalous with probability 0.1.
func DefaultCollectionOptions() CollectionOptions {
	return CollectionOptions{N: 10, ProbAnomalous: 0.1, Series: DefaultSeriesOptions()}
}

// Validate reports every invalid field.
func (o CollectionOptions) Validate() error {
	v := foundation.NewValidation("dataset")
	v.Check(o.N > 0, "n", o.N, "must be positive")
	v.Check(o.ProbAnomalous >= 0 && o.ProbAnomalous < 1, "prob_anomalous", o.ProbAnomalous,
		"probability of anomaly cannot be equal to or greater than 1.0")
	v.Merge(o.Series.validation("dataset.series"))
	return v.Err()
}

// Sample is one labelled series.
type Sample struct {
	ID             string    `json:"id"`
	Values         []float64 `json:"ts"`
	Label          int       `json:"anomalous"`
	AnomalyIndices []int     `json:"anomaly_indices,omitempty"`
}

// Anomalous reports whether the sample carries the anomalous label.
func (s Sample) Anomalous() bool { return s.Label == LabelAnomalous }

// Collection is an ordered set of samples.
type Collection struct {
	Samples []Sample `json:"samples"`
}

// Counts returns how many samples are normal and anomalous.
func (c Collection) Counts() (normal, anomalous int) {
	for _, s := range c.Samples {
		if s.Anomalous() {
			anomalous++
		} else {
			normal++
		}
	}
	return normal, anomalous
}

// Len returns the number of samples.
func (c Collection) Len() int { return len(c.Samples) }

// Points returns the total number of values across samples.
func (c Collection) Points() int {
	n := 0
	for _, s := range c.Samples {
		n += len(s.Values)
	}
	return n
}

func sample(i int, o CollectionOptions, src *sampling.Source) (Sample, error) {
	so := o.Series
	label := LabelNormal
	if src.Float64() < o.ProbAnomalous {
		label = LabelAnomalous
	} else {
		so.Fraction = 0
	}
	values, idx, err := SeriesWithAnomalies(so, src)
	if err != nil {
		return Sample{}, err
	}
	return Sample{ID: strconv.Itoa(i), Values: values, Label: label, AnomalyIndices: idx}, nil
}

// Generate builds the collection sequentially from one source.
func Generate(o CollectionOptions, src *sampling.Source) (*Collection, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	c := &Collection{Samples: make([]Sample, o.N)}
	for i := range o.N {
		s, err := sample(i, o, src)
		if err != nil {
			return nil, err
		}
		c.Samples[i] = s
	}
	return c, nil
}

// GenerateParallel builds the collection with up to workers goroutines. Each
// sample draws from src.Derive(i), so the output depends on the seed only and
// not on the worker count. It differs from Generate for the same seed.
func GenerateParallel(ctx context.Context, o CollectionOptions, src *sampling.Source, workers int) (*Collection, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 1
	}
	c := &Collection{Samples: make([]Sample, o.N)}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range o.N {
		child := src.Derive(i)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := sample(i, o, child)
			if err != nil {
				return err
			}
			c.Samples[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return c, nil
}
