package timeseries

import (
	"slices"
	"time"
)

// Stage identifies one output of the Generator.
type Stage string

const (
	StageNormal  Stage = "normal"
	StageAnomaly Stage = "anomaly"
	StageDrifted Stage = "drifted"
)

// Stages lists the stages in pipeline order.
var Stages = []Stage{StageNormal, StageAnomaly, StageDrifted}

// Column is the value column name used in exported tables.
func (s Stage) Column() string { return string(s) + "_data" }

// Frame is a two-column table: a timestamp column and one value column.
type Frame struct {
	Stage  Stage       `json:"stage"`
	Column string      `json:"column"`
	Time   []time.Time `json:"time"`
	Values []float64   `json:"values"`
}

func newFrame(stage Stage, times []time.Time, values []float64) Frame {
	return Frame{
		Stage:  stage,
		Column: stage.Column(),
		Time:   times,
		Values: slices.Clone(values),
	}
}

// Len returns the number of rows.
func (f Frame) Len() int { return len(f.Values) }
