package offline

import "sort"

// Transport holds callbacks scheduled at absolute times and fires them, in
// time order, as the pass renders. Nothing fires before Start.
type Transport struct {
	bpm     float64
	events  []event
	started bool
	offset  float64
	next    int
}

type event struct {
	at       float64
	seq      int
	callback func(at float64)
}

func (t *Transport) SetBPM(bpm float64) { t.bpm = bpm }

func (t *Transport) BPM() float64 { return t.bpm }

// Schedule registers callback to fire at the given time, in seconds of
// transport time. Events with equal times fire in scheduling order.
func (t *Transport) Schedule(at float64, callback func(at float64)) {
	t.events = append(t.events, event{at: at, seq: len(t.events), callback: callback})
}

// Start starts the transport at offset seconds of transport time, which is
// mapped to the start of the pass. Events before the offset never fire.
func (t *Transport) Start(offset float64) {
	sort.SliceStable(t.events, func(i, j int) bool {
		return t.events[i].at < t.events[j].at
	})
	t.started = true
	t.offset = offset
	t.next = 0
	for t.next < len(t.events) && t.events[t.next].at < offset {
		t.next++
	}
}

// Pending returns the number of events that have not fired yet.
func (t *Transport) Pending() int {
	return len(t.events) - t.next
}

// dispatch fires every event that falls before until, given in seconds of
// pass time.
func (t *Transport) dispatch(until float64) {
	if !t.started {
		return
	}
	for t.next < len(t.events) {
		e := t.events[t.next]
		at := e.at - t.offset
		if at >= until {
			return
		}
		t.next++
		e.callback(at)
	}
}
