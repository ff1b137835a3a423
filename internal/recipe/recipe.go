// Package recipe describes one generation run declaratively and executes it.
//
// Recipes are read from YAML or JSON, listed in the configuration file,
// posted to the HTTP API and scheduled by the daemon. Each recipe has a kind
// and exactly one matching body:
//
//	name: daily-drift
//	kind: series
//	seed: 42
//	series:
//	  start: "2021-01-01 00:00:00"
//	  end: "2021-01-02 00:00:00"
//	  process_minutes: 10
//	  anomaly: {mode: chunk, chunks: 4, fraction: 0.05, scale: 2}
//	  drift: {pct_mean: 20}
package recipe

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/synthdata/internal/dataset"
	"git.home.luguber.info/inful/synthdata/internal/foundation"
	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
	"git.home.luguber.info/inful/synthdata/internal/foundation/normalization"
	"git.home.luguber.info/inful/synthdata/internal/pattern"
	"git.home.luguber.info/inful/synthdata/internal/timeseries"
)

// Kind selects the generator a recipe drives.
type Kind string

const (
	KindSeries  Kind = "series"
	KindPattern Kind = "pattern"
	KindDataset Kind = "dataset"
)

// AnomalyMode selects point or chunked anomalies.
type AnomalyMode string

const (
	ModePoint AnomalyMode = "point"
	ModeChunk AnomalyMode = "chunk"
)

var kindNormalizer = normalization.NewNormalizer("kind", map[string]Kind{
	"series":  KindSeries,
	"pattern": KindPattern,
	"dataset": KindDataset,
}, "")

var modeNormalizer = normalization.NewNormalizer("anomaly mode", map[string]AnomalyMode{
	"point":  ModePoint,
	"chunk":  ModeChunk,
	"chunks": ModeChunk,
}, ModePoint)

// Recipe is one generation run.
type Recipe struct {
	Name    string         `yaml:"name" json:"name"`
	Kind    Kind           `yaml:"kind" json:"kind"`
	Seed    uint64         `yaml:"seed,omitempty" json:"seed,omitempty"`
	Format  string         `yaml:"format,omitempty" json:"format,omitempty"`
	Plot    string         `yaml:"plot,omitempty" json:"plot,omitempty"`
	Series  *SeriesRecipe  `yaml:"series,omitempty" json:"series,omitempty"`
	Pattern *PatternRecipe `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Dataset *DatasetRecipe `yaml:"dataset,omitempty" json:"dataset,omitempty"`
}

// SeriesRecipe drives a timeseries.Generator.
type SeriesRecipe struct {
	Start          string         `yaml:"start,omitempty" json:"start,omitempty"`
	End            string         `yaml:"end,omitempty" json:"end,omitempty"`
	ProcessMinutes float64        `yaml:"process_minutes,omitempty" json:"process_minutes,omitempty"`
	Loc            float64        `yaml:"loc" json:"loc"`
	Scale          float64        `yaml:"scale,omitempty" json:"scale,omitempty"`
	Anomaly        *AnomalyRecipe `yaml:"anomaly,omitempty" json:"anomaly,omitempty"`
	Drift          *DriftRecipe   `yaml:"drift,omitempty" json:"drift,omitempty"`
}

// AnomalyRecipe configures the anomaly stage.
type AnomalyRecipe struct {
	Mode     AnomalyMode `yaml:"mode,omitempty" json:"mode,omitempty"`
	Fraction float64     `yaml:"fraction" json:"fraction"`
	Scale    float64     `yaml:"scale" json:"scale"`
	OneSided bool        `yaml:"one_sided,omitempty" json:"one_sided,omitempty"`
	Chunks   int         `yaml:"chunks,omitempty" json:"chunks,omitempty"`
}

// DriftRecipe configures the drift stage. At is empty for the midpoint.
type DriftRecipe struct {
	PctMean   float64 `yaml:"pct_mean" json:"pct_mean"`
	PctSpread float64 `yaml:"pct_spread,omitempty" json:"pct_spread,omitempty"`
	WidenTail bool    `yaml:"widen_tail,omitempty" json:"widen_tail,omitempty"`
	At        string  `yaml:"at,omitempty" json:"at,omitempty"`
}

// PatternRecipe configures pattern.Generate. A zero Length and nil pointers
// take the pattern defaults; an explicit zero is kept.
type PatternRecipe struct {
	Length                int      `yaml:"length,omitempty" json:"length,omitempty"`
	AvgPatternLength      *int     `yaml:"avg_pattern_length,omitempty" json:"avg_pattern_length,omitempty"`
	AvgAmplitude          *float64 `yaml:"avg_amplitude,omitempty" json:"avg_amplitude,omitempty"`
	DefaultVariance       *float64 `yaml:"default_variance,omitempty" json:"default_variance,omitempty"`
	VariancePatternLength *float64 `yaml:"variance_pattern_length,omitempty" json:"variance_pattern_length,omitempty"`
	VarianceAmplitude     *float64 `yaml:"variance_amplitude,omitempty" json:"variance_amplitude,omitempty"`
	Shapes                []string `yaml:"shapes,omitempty" json:"shapes,omitempty"`
	IncludeNegatives      *bool    `yaml:"include_negatives,omitempty" json:"include_negatives,omitempty"`
}

// DatasetRecipe configures dataset.GenerateParallel. Nil pointers take the
// dataset defaults.
type DatasetRecipe struct {
	N             int      `yaml:"n,omitempty" json:"n,omitempty"`
	ProbAnomalous *float64 `yaml:"prob_anomalous,omitempty" json:"prob_anomalous,omitempty"`
	Size          int      `yaml:"size,omitempty" json:"size,omitempty"`
	AnomalyFrac   *float64 `yaml:"anomaly_frac,omitempty" json:"anomaly_frac,omitempty"`
	AnomalyScale  *float64 `yaml:"anomaly_scale,omitempty" json:"anomaly_scale,omitempty"`
	Loc           float64  `yaml:"loc,omitempty" json:"loc,omitempty"`
	Scale         float64  `yaml:"scale,omitempty" json:"scale,omitempty"`
	Workers       int      `yaml:"workers,omitempty" json:"workers,omitempty"`
}

// ParseKind resolves a kind name.
func ParseKind(s string) (Kind, error) {
	k, err := kindNormalizer.Parse(s)
	if err != nil || k == "" {
		return "", errors.ValidationError("unknown recipe kind").
			WithContext("kind", s).
			WithContext("valid", kindNormalizer.ValidKeys()).
			Build()
	}
	return k, nil
}

// Normalize canonicalizes enum spellings in place.
func (r *Recipe) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	if k, err := ParseKind(string(r.Kind)); err == nil {
		r.Kind = k
	}
	if r.Kind == "" {
		switch {
		case r.Series != nil && r.Pattern == nil && r.Dataset == nil:
			r.Kind = KindSeries
		case r.Pattern != nil && r.Series == nil && r.Dataset == nil:
			r.Kind = KindPattern
		case r.Dataset != nil && r.Series == nil && r.Pattern == nil:
			r.Kind = KindDataset
		}
	}
	if r.Series != nil && r.Series.Anomaly != nil {
		r.Series.Anomaly.Mode = modeNormalizer.Normalize(string(r.Series.Anomaly.Mode))
	}
	r.Format = strings.ToLower(strings.TrimSpace(r.Format))
	r.Plot = strings.ToLower(strings.TrimSpace(r.Plot))
}

// DefaultMaxPoints caps how many values one recipe may generate unless the
// configuration says otherwise.
const DefaultMaxPoints = 20_000_000

// Validate checks kind/body consistency and every parameter it can check
// without running the generators, and rejects recipes that would generate
// more than DefaultMaxPoints values.
func (r Recipe) Validate() error {
	return r.ValidateWithin(DefaultMaxPoints)
}

// ValidateWithin is Validate with an explicit point limit; maxPoints <= 0
// disables the limit.
func (r Recipe) ValidateWithin(maxPoints int) error {
	v := foundation.NewValidation("recipe")
	v.Check(r.Name != "", "name", r.Name, "is required")
	_, kerr := ParseKind(string(r.Kind))
	v.Check(kerr == nil, "kind", r.Kind, "must be one of series, pattern, dataset")

	bodies := 0
	for _, set := range []bool{r.Series != nil, r.Pattern != nil, r.Dataset != nil} {
		if set {
			bodies++
		}
	}
	v.Check(bodies <= 1, "", bodies, "exactly one of series, pattern, dataset may be set")
	v.Check(r.Kind != KindPattern || r.Pattern != nil, "pattern", nil, "is required for kind pattern")
	v.Check(r.Kind != KindDataset || r.Dataset != nil, "dataset", nil, "is required for kind dataset")
	v.Check(r.Kind != KindSeries || (r.Pattern == nil && r.Dataset == nil), "series", nil, "kind series takes a series body")

	if r.Plot != "" {
		v.Check(plotFormats[r.Plot], "plot", r.Plot, "must be png, svg or pdf")
	}
	if r.Format != "" {
		_, ok := formatNames[r.Format]
		v.Check(ok, "format", r.Format, "must be csv, json or ndjson")
	}

	switch {
	case r.Kind == KindSeries:
		v.Merge(r.seriesBody().validation())
	case r.Kind == KindPattern && r.Pattern != nil:
		if _, err := r.Pattern.Options(); err != nil {
			v.Check(false, "pattern", nil, "%s", errors.MessageOf(err))
		}
	case r.Kind == KindDataset && r.Dataset != nil:
		if err := r.Dataset.Options().Validate(); err != nil {
			v.Check(false, "dataset", nil, "%s", errors.MessageOf(err))
		}
	}
	if maxPoints > 0 {
		est := r.EstimatedPoints()
		v.Check(est <= float64(maxPoints), "points", est, "recipe would generate %.0f values, limit is %d", est, maxPoints)
	}
	return v.Err()
}

// EstimatedPoints is the number of values Execute would generate: every
// series stage holds a full timeline, a dataset holds N series of Size
// values. It is a float so absurd recipes cannot overflow it.
func (r Recipe) EstimatedPoints() float64 {
	switch r.Kind {
	case KindSeries:
		s := r.seriesBody()
		tl, err := s.Timeline()
		if err != nil {
			return 0
		}
		stages := 1.0
		if s.Anomaly != nil {
			stages++
		}
		if s.Drift != nil {
			stages++
		}
		return float64(tl.Size()) * stages
	case KindPattern:
		if r.Pattern == nil {
			return 0
		}
		o, _ := r.Pattern.Options()
		return float64(o.Length)
	case KindDataset:
		if r.Dataset == nil {
			return 0
		}
		o := r.Dataset.Options()
		return float64(o.N) * float64(o.Series.Size)
	}
	return 0
}

var plotFormats = map[string]bool{"png": true, "svg": true, "pdf": true}

var formatNames = map[string]struct{}{"csv": {}, "json": {}, "ndjson": {}, "jsonl": {}}

func (r Recipe) seriesBody() SeriesRecipe {
	if r.Series == nil {
		return SeriesRecipe{}
	}
	return *r.Series
}

// Timeline resolves the timeline, applying defaults for empty fields.
func (s SeriesRecipe) Timeline() (timeseries.Timeline, error) {
	start, end, minutes := s.Start, s.End, s.ProcessMinutes
	if start == "" {
		start = timeseries.DefaultStart
	}
	if end == "" {
		end = timeseries.DefaultEnd
	}
	if minutes == 0 {
		minutes = timeseries.DefaultProcessMinutes
	}
	return timeseries.ParseTimeline(start, end, minutes)
}

// NormalScale returns Scale, defaulting to 1.
func (s SeriesRecipe) NormalScale() float64 {
	if s.Scale == 0 {
		return 1
	}
	return s.Scale
}

func (s SeriesRecipe) validation() *foundation.Validation {
	v := foundation.NewValidation("recipe.series")
	_, err := s.Timeline()
	v.Check(err == nil, "timeline", s.Start+".."+s.End, "invalid timeline")
	v.Check(s.Scale >= 0, "scale", s.Scale, "must not be negative")
	if a := s.Anomaly; a != nil {
		v.Check(a.Fraction > 0 && a.Fraction < 1, "anomaly.fraction", a.Fraction, "must be between 0.0 and 1.0")
		v.Check(a.Scale > 0, "anomaly.scale", a.Scale, "must be greater than 0.0")
		if modeNormalizer.Normalize(string(a.Mode)) == ModeChunk {
			v.Check(a.Chunks > 0, "anomaly.chunks", a.Chunks, "must be a positive integer")
		}
	}
	if d := s.Drift; d != nil && d.At != "" {
		_, err := timeseries.ParseTime(d.At)
		v.Check(err == nil, "drift.at", d.At, "invalid time")
	}
	return v
}

// Options converts the recipe to pattern.Options.
func (p PatternRecipe) Options() (pattern.Options, error) {
	o := pattern.DefaultOptions()
	if p.Length != 0 {
		o.Length = p.Length
	}
	if p.AvgPatternLength != nil {
		o.AvgPatternLength = *p.AvgPatternLength
	}
	if p.AvgAmplitude != nil {
		o.AvgAmplitude = *p.AvgAmplitude
	}
	if p.DefaultVariance != nil {
		o.DefaultVariance = *p.DefaultVariance
	}
	if p.VariancePatternLength != nil {
		o.VariancePatternLength = *p.VariancePatternLength
	}
	if p.VarianceAmplitude != nil {
		o.VarianceAmplitude = *p.VarianceAmplitude
	}
	if p.IncludeNegatives != nil {
		o.IncludeNegatives = *p.IncludeNegatives
	}
	if len(p.Shapes) > 0 {
		shapes, err := pattern.ParseShapes(p.Shapes)
		if err != nil {
			return o, err
		}
		o.Shapes = shapes
	}
	return o, o.Validate()
}

// Options converts the recipe to dataset.CollectionOptions.
func (d DatasetRecipe) Options() dataset.CollectionOptions {
	o := dataset.DefaultCollectionOptions()
	if d.N != 0 {
		o.N = d.N
	}
	if d.ProbAnomalous != nil {
		o.ProbAnomalous = *d.ProbAnomalous
	}
	if d.Size != 0 {
		o.Series.Size = d.Size
	}
	if d.AnomalyFrac != nil {
		o.Series.Fraction = *d.AnomalyFrac
	}
	if d.AnomalyScale != nil {
		o.Series.Scale = *d.AnomalyScale
	}
	o.Series.Loc = d.Loc
	if d.Scale != 0 {
		o.Series.Sigma = d.Scale
	}
	return o
}

// Decode reads a recipe from YAML or JSON and validates it. JSON is valid
// YAML, so one decoder serves both.
func Decode(data []byte) (Recipe, error) {
	return DecodeWithin(data, DefaultMaxPoints)
}

// DecodeWithin is Decode with an explicit point limit.
func DecodeWithin(data []byte, maxPoints int) (Recipe, error) {
	r, err := decode(data)
	if err != nil {
		return Recipe{}, err
	}
	return r, r.ValidateWithin(maxPoints)
}

func decode(data []byte) (Recipe, error) {
	var r Recipe
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		return Recipe{}, errors.WrapError(err, errors.CategoryValidation, "failed to parse recipe").Build()
	}
	r.Normalize()
	return r, nil
}

// LoadFile reads and validates a recipe file. A recipe without a name is
// named after the file.
func LoadFile(path string) (Recipe, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return Recipe{}, errors.NotFoundError("recipe file not found").WithContext("path", path).Build()
		}
		return Recipe{}, errors.WrapError(err, errors.CategoryConfig, "failed to read recipe").WithContext("path", path).Build()
	}
	r, err := decode(data)
	if err != nil {
		return Recipe{}, err
	}
	if r.Name == "" {
		r.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return r, r.Validate()
}

// JSON renders the recipe for hashing and storage.
func (r Recipe) JSON() ([]byte, error) {
	return json.Marshal(r)
}
