package plan

import "github.com/peaql/peaql/catalog"

// Statements is a compiled `Statements` block: sub-plans executed strictly
// in textual order, the last one's Result reported as the block's own.
type Statements struct {
	Plans []Plan
}

func (s *Statements) Execute(cat *catalog.Catalog) (*Result, error) {
	var last *Result
	for _, p := range s.Plans {
		r, err := p.Execute(cat)
		if err != nil {
			return nil, err
		}
		last = r
	}
	if last == nil {
		return &Result{}, nil
	}
	return last, nil
}
