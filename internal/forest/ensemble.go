// Package forest implements the tree-ensemble regressors behind the price
// model: a bagged random forest and squared-loss gradient boosting.
package forest

import (
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// Kind selects the ensemble algorithm.
type Kind string

const (
	RandomForest     Kind = "random_forest"
	GradientBoosting Kind = "gradient_boosting"
)

// Params configures a fit. Zero values fall back to Defaults for the kind.
type Params struct {
	Kind           Kind
	Trees          int
	MaxDepth       int // 0 means unlimited
	MinSamplesLeaf int
	LearningRate   float64
	Seed           int64
}

// Defaults returns the parameters used when a field is left zero.
func Defaults(kind Kind) Params {
	if kind == GradientBoosting {
		return Params{Kind: kind, Trees: 1000, MaxDepth: 6, MinSamplesLeaf: 1, LearningRate: 0.1, Seed: 42}
	}
	return Params{Kind: RandomForest, Trees: 150, MaxDepth: 0, MinSamplesLeaf: 1, Seed: 42}
}

func (p Params) withDefaults() Params {
	d := Defaults(p.Kind)
	if p.Kind == "" {
		p.Kind = d.Kind
	}
	if p.Trees <= 0 {
		p.Trees = d.Trees
	}
	if p.MaxDepth < 0 {
		p.MaxDepth = d.MaxDepth
	}
	if p.MinSamplesLeaf <= 0 {
		p.MinSamplesLeaf = d.MinSamplesLeaf
	}
	if p.LearningRate <= 0 {
		p.LearningRate = d.LearningRate
	}
	return p
}

// Ensemble is a fitted model. It is never mutated after Fit returns and is
// safe for concurrent use.
type Ensemble struct {
	Kind         Kind
	Features     int
	Base         float64
	LearningRate float64
	Trees        []Tree
}

// Predict returns the prediction for a single input row.
func (e *Ensemble) Predict(x []float64) float64 {
	switch e.Kind {
	case GradientBoosting:
		out := e.Base
		for i := range e.Trees {
			out += e.LearningRate * e.Trees[i].Predict(x)
		}
		return out
	default:
		if len(e.Trees) == 0 {
			return e.Base
		}
		var sum float64
		for i := range e.Trees {
			sum += e.Trees[i].Predict(x)
		}
		return sum / float64(len(e.Trees))
	}
}

// Fit trains an ensemble on rows x with targets y.
func Fit(x [][]float64, y []float64, p Params) (*Ensemble, error) {
	if len(x) == 0 {
		return nil, errors.New("no training rows")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("rows/targets mismatch: %d != %d", len(x), len(y))
	}
	width := len(x[0])
	for i, row := range x {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), width)
		}
	}

	p = p.withDefaults()
	switch p.Kind {
	case RandomForest:
		return fitForest(x, y, width, p), nil
	case GradientBoosting:
		return fitBoosting(x, y, width, p), nil
	default:
		return nil, fmt.Errorf("unknown ensemble kind %q", p.Kind)
	}
}

func fitForest(x [][]float64, y []float64, width int, p Params) *Ensemble {
	rng := rand.New(rand.NewSource(p.Seed))
	seeds := make([]int64, p.Trees)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	trees := make([]Tree, p.Trees)
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup
	for i := range trees {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			r := rand.New(rand.NewSource(seeds[i]))
			idx := make([]int, len(x))
			for k := range idx {
				idx[k] = r.Intn(len(x))
			}
			trees[i] = buildTree(x, y, idx, p.MaxDepth, p.MinSamplesLeaf)
		}(i)
	}
	wg.Wait()

	return &Ensemble{
		Kind:     RandomForest,
		Features: width,
		Base:     stat.Mean(y, nil),
		Trees:    trees,
	}
}

func fitBoosting(x [][]float64, y []float64, width int, p Params) *Ensemble {
	e := &Ensemble{
		Kind:         GradientBoosting,
		Features:     width,
		Base:         stat.Mean(y, nil),
		LearningRate: p.LearningRate,
		Trees:        make([]Tree, 0, p.Trees),
	}

	idx := make([]int, len(x))
	pred := make([]float64, len(x))
	for i := range idx {
		idx[i] = i
		pred[i] = e.Base
	}
	residual := make([]float64, len(y))
	for t := 0; t < p.Trees; t++ {
		for i := range y {
			residual[i] = y[i] - pred[i]
		}
		tree := buildTree(x, residual, idx, p.MaxDepth, p.MinSamplesLeaf)
		for i := range pred {
			pred[i] += p.LearningRate * tree.Predict(x[i])
		}
		e.Trees = append(e.Trees, tree)
	}
	return e
}
