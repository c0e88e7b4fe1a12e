package forest

import (
	"encoding/gob"
	"fmt"
	"io"
)

// Encode writes the ensemble in gob format.
func (e *Ensemble) Encode(w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(e); err != nil {
		return fmt.Errorf("encode ensemble: %w", err)
	}
	return nil
}

// Decode reads an ensemble written by Encode.
func Decode(r io.Reader) (*Ensemble, error) {
	var e Ensemble
	if err := gob.NewDecoder(r).Decode(&e); err != nil {
		return nil, fmt.Errorf("decode ensemble: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("decode ensemble: %w", err)
	}
	return &e, nil
}

// Validate checks that every tree can be walked for an input of e.Features
// columns. Child indexes must point forward, so a walk always terminates.
func (e *Ensemble) Validate() error {
	if e.Features <= 0 {
		return fmt.Errorf("missing feature count")
	}
	for t, tree := range e.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", t)
		}
		for i, n := range tree.Nodes {
			if n.Feature < 0 {
				continue
			}
			if n.Feature >= e.Features {
				return fmt.Errorf("tree %d node %d: feature %d out of range", t, i, n.Feature)
			}
			for _, child := range [2]int32{n.Left, n.Right} {
				if int(child) <= i || int(child) >= len(tree.Nodes) {
					return fmt.Errorf("tree %d node %d: child %d out of range", t, i, child)
				}
			}
		}
	}
	return nil
}
