// Package interception runs ordered chains of request and object
// reference interceptors. A request visits the chain forward while it is
// sent and backwards while its reply is processed.
package interception

// Flow is a cursor over a chain of n interceptors. The cursor starts in
// front of the chain and moves by a signed step.
type Flow struct {
	n      int
	cursor int
	step   int
}

// NewFlow returns a forward flow over n interceptors.
func NewFlow(n int) Flow {
	f := Flow{n: n, step: 1}
	f.ResetToStart()
	return f
}

// Current returns the index of the interceptor under the cursor.
func (f *Flow) Current() int {
	return f.cursor
}

// HasNext reports whether a further interceptor exists in the current
// direction.
func (f *Flow) HasNext() bool {
	next := f.cursor + f.step
	return next >= 0 && next < f.n
}

// ProceedToNext moves to the next interceptor. At the end of the chain
// the cursor is parked behind the last element in the direction of travel
// and false is returned.
func (f *Flow) ProceedToNext() bool {
	if f.HasNext() {
		f.cursor += f.step
		return true
	}
	if f.step > 0 {
		f.cursor = f.n
	} else {
		f.cursor = -1
	}
	return false
}

// ResetToStart parks the cursor in front of the first element in the
// direction of travel.
func (f *Flow) ResetToStart() {
	if f.step > 0 {
		f.cursor = -1
	} else {
		f.cursor = f.n
	}
}

func (f *Flow) IsInRequestDirection() bool {
	return f.step > 0
}

func (f *Flow) IsInReplyDirection() bool {
	return f.step < 0
}

// SwitchToReplyDirection reverses a forward flow. The interceptor under
// the cursor is not visited again.
func (f *Flow) SwitchToReplyDirection() {
	if f.step > 0 {
		f.step = -f.step
	}
}

func (f *Flow) SwitchToRequestDirection() {
	if f.step < 0 {
		f.step = -f.step
	}
}
