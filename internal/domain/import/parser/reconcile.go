package parser

// Reconciler keeps one candidate per DedupKey: the one with the largest
// absolute amount. Ties keep the earlier candidate. Output order is the order
// in which each key was first seen.
type Reconciler struct {
	index map[DedupKey]int
	out   []Candidate
}

func NewReconciler() *Reconciler {
	return &Reconciler{index: make(map[DedupKey]int)}
}

// Add offers c. It reports whether c was kept, either as a new key or as a
// replacement for a smaller amount.
func (r *Reconciler) Add(c Candidate) bool {
	key := c.Key()
	i, ok := r.index[key]
	if !ok {
		r.index[key] = len(r.out)
		r.out = append(r.out, c)
		return true
	}
	if c.Amount.Abs().GreaterThan(r.out[i].Amount.Abs()) {
		r.out[i] = c
		return true
	}
	return false
}

func (r *Reconciler) Len() int {
	return len(r.out)
}

// Candidates returns a copy of the kept candidates.
func (r *Reconciler) Candidates() []Candidate {
	out := make([]Candidate, len(r.out))
	copy(out, r.out)
	return out
}

// Reconcile applies the max-amount-per-key rule to cands.
func Reconcile(cands []Candidate) []Candidate {
	r := NewReconciler()
	for _, c := range cands {
		r.Add(c)
	}
	return r.Candidates()
}
