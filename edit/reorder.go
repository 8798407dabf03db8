package edit

// Staging computes a tentative frame permutation independent of the
// committed collection. The staged order only becomes authoritative on
// Commit; structural edits outside the staging flow reset it to
// identity, discarding any pending reorder.
type Staging struct {
	order []int // order[pos] = committed frame index displayed at pos
}

// NewStaging returns an identity staging over frameCount frames.
func NewStaging(frameCount int) *Staging {
	st := &Staging{}
	st.Reset(frameCount)
	return st
}

// Reset replaces the staged order with identity over frameCount
// frames.
func (st *Staging) Reset(frameCount int) {
	st.order = make([]int, frameCount)
	for i := range st.order {
		st.order[i] = i
	}
}

// Order returns a copy of the staged display order.
func (st *Staging) Order() []int {
	return append([]int(nil), st.order...)
}

// Dirty reports whether the staged order differs from identity.
func (st *Staging) Dirty() bool {
	for pos, orig := range st.order {
		if pos != orig {
			return true
		}
	}
	return false
}

// Stage replaces the staged order. Anything that is not a permutation
// of the current frame set is rejected with ErrInvalidPermutation.
func (st *Staging) Stage(order []int) error {
	if err := validatePermutation(order, len(st.order)); err != nil {
		return err
	}
	st.order = append([]int(nil), order...)
	return nil
}

// MoveUp swaps the staged position of the given committed frame index
// with its predecessor. No-op at the first position or when the frame
// is unknown.
func (st *Staging) MoveUp(frame int) {
	pos := displayPosition(st.order, frame)
	if pos <= 0 {
		return
	}
	st.order[pos-1], st.order[pos] = st.order[pos], st.order[pos-1]
}

// MoveDown swaps the staged position of the given committed frame
// index with its successor. No-op at the last position or when the
// frame is unknown.
func (st *Staging) MoveDown(frame int) {
	pos := displayPosition(st.order, frame)
	if pos < 0 || pos >= len(st.order)-1 {
		return
	}
	st.order[pos], st.order[pos+1] = st.order[pos+1], st.order[pos]
}

// Commit returns the staged order for the caller to apply to the
// authoritative collection, and resets staging to identity over the
// new order. When nothing is staged it returns ok=false and no order;
// that is a no-op result, not an error.
func (st *Staging) Commit() (order []int, ok bool) {
	if !st.Dirty() {
		return nil, false
	}
	order = st.Order()
	st.Reset(len(st.order))
	return order, true
}

// Cancel discards the staged order, returning to the last committed
// order.
func (st *Staging) Cancel() {
	st.Reset(len(st.order))
}
