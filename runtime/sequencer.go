package runtime

import "fmt"

// StepOutcome is the result of a step as seen by the sequencer.
type StepOutcome int

const (
	OutcomeSucceeded StepOutcome = iota
	OutcomeFailed
)

func (o StepOutcome) String() string {
	if o == OutcomeSucceeded {
		return "succeeded"
	}
	return "failed"
}

// Sequencer is the ordered step registry. Transitions only ever move
// forward: a success goes to the next step, a failure stays put, and the
// last step leads to StepTerminal.
type Sequencer struct {
	order []StepID
	index map[StepID]int
}

func NewSequencer(flow *Flow) (*Sequencer, error) {
	if flow == nil || len(flow.Steps) == 0 {
		return nil, fmt.Errorf("flow has no steps")
	}

	s := &Sequencer{
		order: make([]StepID, 0, len(flow.Steps)),
		index: make(map[StepID]int, len(flow.Steps)),
	}
	for i, step := range flow.Steps {
		if step.ID == "" || step.ID == StepTerminal {
			return nil, fmt.Errorf("step %d: invalid step id %q", i, step.ID)
		}
		if _, dup := s.index[step.ID]; dup {
			return nil, fmt.Errorf("duplicate step id %q", step.ID)
		}
		s.index[step.ID] = i
		s.order = append(s.order, step.ID)
	}
	return s, nil
}

// First returns the step a new flow starts at.
func (s *Sequencer) First() StepID {
	return s.order[0]
}

// Advance returns the step to show after current resolved with outcome.
// Unknown steps and StepTerminal map to themselves.
func (s *Sequencer) Advance(current StepID, outcome StepOutcome) StepID {
	if outcome != OutcomeSucceeded {
		return current
	}
	return s.Next(current)
}

// Next returns the step after current in the fixed order.
func (s *Sequencer) Next(current StepID) StepID {
	i, ok := s.index[current]
	if !ok {
		return current
	}
	if i == len(s.order)-1 {
		return StepTerminal
	}
	return s.order[i+1]
}

// Position returns the zero-based position of id in the sequence.
func (s *Sequencer) Position(id StepID) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

func (s *Sequencer) Steps() []StepID {
	return append([]StepID(nil), s.order...)
}
