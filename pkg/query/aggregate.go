package query

import (
	"math"
	"sort"

	"github.com/cuemby/graphdb/pkg/graph"
	"github.com/cuemby/graphdb/pkg/values"
)

// CollectNodes resolves the working set to full node records, in id
// order.
func (p *Pipeline) CollectNodes() ([]*graph.Node, error) {
	if p.err != nil {
		return nil, p.err
	}
	nodes := make([]*graph.Node, 0, len(p.ids))
	for _, id := range p.ids {
		n, err := p.db.GetNode(id)
		if err != nil {
			if !p.recordErr(err) {
				return nil, p.err
			}
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// CollectNodesCached is CollectNodes, consulting and populating the
// database's query cache by this pipeline's Fingerprint (spec §4.6). A
// pipeline built with New rather than NewCached behaves like plain
// CollectNodes.
func (p *Pipeline) CollectNodesCached() ([]*graph.Node, error) {
	if !p.useCache {
		return p.CollectNodes()
	}
	if p.err != nil {
		return nil, p.err
	}
	fp := p.Fingerprint()
	if cached, ok := p.db.QueryCache().Get(fp); ok {
		if nodes, ok2 := cached.([]*graph.Node); ok2 {
			return nodes, nil
		}
	}
	nodes, err := p.CollectNodes()
	if err != nil {
		return nil, err
	}
	p.db.QueryCache().Put(fp, nodes, p.touchedLabels(), p.touchedProps())
	return nodes, nil
}

// Count returns the size of the working set without resolving records.
func (p *Pipeline) Count() (int64, error) {
	if p.err != nil {
		return 0, p.err
	}
	return int64(len(p.ids)), nil
}

func (p *Pipeline) numericSamples(prop string) ([]float64, error) {
	if p.err != nil {
		return nil, p.err
	}
	samples := make([]float64, 0, len(p.ids))
	for _, id := range p.ids {
		n, err := p.db.GetNode(id)
		if err != nil {
			if !p.recordErr(err) {
				return nil, p.err
			}
			continue
		}
		v, ok := n.Props[prop]
		if !ok {
			continue
		}
		num, isNum := v.Numeric()
		if !isNum {
			continue
		}
		samples = append(samples, num)
	}
	return samples, nil
}

// SumInt returns the sum of prop across the working set as an Int (the
// samples are summed as float64 and the total is truncated toward zero,
// matching a property expected to hold integers).
func (p *Pipeline) SumInt(prop string) (values.Value, error) {
	samples, err := p.numericSamples(prop)
	if err != nil {
		return values.Null(), err
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return values.Int(int64(sum)), nil
}

// AvgInt returns the arithmetic mean of prop, truncated to an Int. Null on
// an empty working set.
func (p *Pipeline) AvgInt(prop string) (values.Value, error) {
	samples, err := p.numericSamples(prop)
	if err != nil {
		return values.Null(), err
	}
	if len(samples) == 0 {
		return values.Null(), nil
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return values.Int(int64(sum / float64(len(samples)))), nil
}

// PercentileCont returns the pct-th percentile of prop using linear
// interpolation between adjacent ordered samples (spec §4.6). Null on an
// empty working set or pct outside [0, 1].
func (p *Pipeline) PercentileCont(prop string, pct float64) (values.Value, error) {
	samples, err := p.numericSamples(prop)
	if err != nil {
		return values.Null(), err
	}
	if len(samples) == 0 || pct < 0 || pct > 1 {
		return values.Null(), nil
	}
	sort.Float64s(samples)
	if len(samples) == 1 {
		return values.Float(samples[0]), nil
	}

	rank := pct * float64(len(samples)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return values.Float(samples[lo]), nil
	}
	frac := rank - float64(lo)
	return values.Float(samples[lo] + (samples[hi]-samples[lo])*frac), nil
}

func sampleVariance(samples []float64) (float64, bool) {
	if len(samples) < 2 {
		return 0, false
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	mean := sum / float64(len(samples))
	var sq float64
	for _, s := range samples {
		d := s - mean
		sq += d * d
	}
	return sq / float64(len(samples)-1), true
}

// Variance returns the sample variance (n-1 divisor) of prop. Null for
// fewer than 2 samples.
func (p *Pipeline) Variance(prop string) (values.Value, error) {
	samples, err := p.numericSamples(prop)
	if err != nil {
		return values.Null(), err
	}
	v, ok := sampleVariance(samples)
	if !ok {
		return values.Null(), nil
	}
	return values.Float(v), nil
}

// Stdev returns the sample standard deviation of prop. Null for fewer
// than 2 samples.
func (p *Pipeline) Stdev(prop string) (values.Value, error) {
	samples, err := p.numericSamples(prop)
	if err != nil {
		return values.Null(), err
	}
	v, ok := sampleVariance(samples)
	if !ok {
		return values.Null(), nil
	}
	return values.Float(math.Sqrt(v)), nil
}
