package generation

import (
	"sync"

	"studio/server/internal/model"
)

// ControlState is what a client needs to render one generator: whether it can
// accept a submission and, if not, which request holds it.
type ControlState struct {
	Status    model.RequestStatus `json:"status"`
	RequestID string              `json:"request_id,omitempty"`
	Last      model.RequestStatus `json:"last_outcome,omitempty"`
}

// Controls holds one state machine per variant:
// idle -> validating -> (rejected | in_flight) -> (succeeded | failed) -> idle.
// Rejected, succeeded and failed are transient; the control rests in idle and
// remembers the last outcome.
type Controls struct {
	mu    sync.Mutex
	state map[model.Variant]ControlState
}

func NewControls() *Controls {
	c := &Controls{state: map[model.Variant]ControlState{}}
	for _, v := range model.Variants {
		c.state[v] = ControlState{Status: model.RequestIdle}
	}
	return c
}

// Begin moves an idle control into validation. Any other state means a
// request already holds the control.
func (c *Controls) Begin(v model.Variant) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state[v]
	if st.Status != model.RequestIdle {
		return ErrRequestInFlight
	}
	st.Status = model.RequestValidating
	c.state[v] = st
	return nil
}

func (c *Controls) Reject(v model.Variant) {
	c.settle(v, model.RequestValidating, model.RequestRejected)
}

func (c *Controls) Launch(v model.Variant, requestID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state[v]
	if st.Status != model.RequestValidating {
		return
	}
	c.state[v] = ControlState{Status: model.RequestInFlight, RequestID: requestID, Last: st.Last}
}

func (c *Controls) Finish(v model.Variant, outcome model.RequestStatus) {
	c.settle(v, model.RequestInFlight, outcome)
}

func (c *Controls) settle(v model.Variant, from, outcome model.RequestStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state[v].Status != from {
		return
	}
	c.state[v] = ControlState{Status: model.RequestIdle, Last: outcome}
}

func (c *Controls) State(v model.Variant) ControlState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state[v]
}

func (c *Controls) Snapshot() map[model.Variant]ControlState {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[model.Variant]ControlState, len(c.state))
	for v, st := range c.state {
		out[v] = st
	}
	return out
}
