package patch

import (
	"fmt"
	"math"

	"github.com/TheFaucett/stock-game-sub000/internal/calculator"
	"github.com/TheFaucett/stock-game-sub000/internal/model"
)

// Field names an instrument attribute a layer may write.
type Field string

const (
	Price      Field = "price"
	Volatility Field = "volatility"
	Anchor     Field = "anchor"
	Drift      Field = "drift"
	History    Field = "history"
)

// Append is a bounded-size array append. Cap 0 means uncapped.
type Append struct {
	Values []float64
	Cap    int
}

// Patch accumulates assignments, increments and appends for one instrument.
type Patch struct {
	Set  map[Field]float64
	Inc  map[Field]float64
	Push map[Field]Append
}

// New returns an empty patch.
func New() *Patch {
	return &Patch{
		Set:  make(map[Field]float64),
		Inc:  make(map[Field]float64),
		Push: make(map[Field]Append),
	}
}

// Assign records an assignment; a later assignment to the same field wins.
func (p *Patch) Assign(f Field, v float64) *Patch {
	p.Set[f] = v
	return p
}

// Add records an increment; increments to the same field sum.
func (p *Patch) Add(f Field, delta float64) *Patch {
	p.Inc[f] += delta
	return p
}

// Append records values to push onto an array field, keeping at most limit
// entries after application.
func (p *Patch) Append(f Field, limit int, values ...float64) *Patch {
	p.Push[f] = mergeAppend(p.Push[f], Append{Values: values, Cap: limit})
	return p
}

// Empty reports whether the patch carries no operations.
func (p *Patch) Empty() bool {
	return p == nil || len(p.Set)+len(p.Inc)+len(p.Push) == 0
}

// Merge combines a and b, with b treated as the later layer. Neither input
// is modified.
func Merge(a, b *Patch) *Patch {
	out := New()
	for _, p := range []*Patch{a, b} {
		if p == nil {
			continue
		}
		for f, v := range p.Set {
			out.Set[f] = v
		}
		for f, v := range p.Inc {
			out.Inc[f] += v
		}
		for f, ap := range p.Push {
			out.Push[f] = mergeAppend(out.Push[f], ap)
		}
	}
	return out
}

func mergeAppend(a, b Append) Append {
	vals := make([]float64, 0, len(a.Values)+len(b.Values))
	vals = append(vals, a.Values...)
	vals = append(vals, b.Values...)
	limit := minCap(a, b)
	return Append{Values: calculator.TrimTail(vals, limit), Cap: limit}
}

// minCap picks the smaller cap, treating 0 as uncapped.
func minCap(a, b Append) int {
	switch {
	case a.Cap == 0:
		return b.Cap
	case b.Cap == 0:
		return a.Cap
	case a.Cap < b.Cap:
		return a.Cap
	default:
		return b.Cap
	}
}

// MergeAll folds per-ticker patch layers in order; later layers win on
// conflicting assignments.
func MergeAll(layers ...map[string]*Patch) map[string]*Patch {
	out := make(map[string]*Patch)
	for _, layer := range layers {
		for ticker, p := range layer {
			if p == nil {
				continue
			}
			out[ticker] = Merge(out[ticker], p)
		}
	}
	return out
}

// Apply writes p onto inst: assignments first, then increments, then
// appends. Price is floored at model.MinPrice, volatility clamped to the
// global bounds, and the newest history entry always equals the realized
// price. On error inst is left untouched.
func Apply(inst *model.Instrument, p *Patch) error {
	if p.Empty() {
		return nil
	}
	next := *inst
	prev := inst.Price

	scalar := func(f Field) (*float64, error) {
		switch f {
		case Price:
			return &next.Price, nil
		case Volatility:
			return &next.Volatility, nil
		case Anchor:
			return &next.Anchor, nil
		case Drift:
			return &next.Drift, nil
		}
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownField, f)
	}

	for f, v := range p.Set {
		dst, err := scalar(f)
		if err != nil {
			return err
		}
		*dst = v
	}
	for f, v := range p.Inc {
		dst, err := scalar(f)
		if err != nil {
			return err
		}
		*dst += v
	}

	if !finite(next.Price, next.Volatility, next.Anchor, next.Drift) {
		return fmt.Errorf("patch %s: non-finite result", inst.Ticker)
	}
	next.Price = math.Max(next.Price, model.MinPrice)
	next.Volatility = model.ClampVolatility(next.Volatility)
	if next.Anchor <= 0 {
		next.Anchor = next.Price
	}

	for f, ap := range p.Push {
		if f != History {
			return fmt.Errorf("%w: %s", model.ErrUnknownField, f)
		}
		if !finite(ap.Values...) {
			return fmt.Errorf("patch %s: non-finite history value", inst.Ticker)
		}
		hist := make([]float64, 0, len(inst.History)+len(ap.Values))
		hist = append(hist, inst.History...)
		hist = append(hist, ap.Values...)
		next.History = calculator.TrimTail(hist, ap.Cap)
	}
	if n := len(next.History); n > 0 {
		next.History = append([]float64(nil), next.History...)
		next.History[n-1] = next.Price
	}

	if prev > 0 {
		next.LastChange = (next.Price - prev) / prev * 100
	}
	*inst = next
	return nil
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
