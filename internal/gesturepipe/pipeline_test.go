package gesturepipe

import "testing"

// Two concurrently tracked hands run fully independent state machines, so
// a stable gesture on one does not affect or get affected by the other.
func TestPipeline_TwoIndependentHands(t *testing.T) {
	p := NewPipeline(DefaultIntakeParams(), DefaultClassifierParams(), DefaultStateMachineParams())

	left := openPalmObservation()
	right := closedFistObservation()

	var events []GestureEvent
	for frame := 1; frame <= 5; frame++ {
		now := int64(frame) * 33
		events = p.Step([]HandObservation{left, right}, now)
	}

	if len(events) != 2 {
		t.Fatalf("expected both hands to emit at frame 5, got %d: %+v", len(events), events)
	}

	byHand := map[HandId]Label{}
	for _, ev := range events {
		byHand[ev.HandId] = ev.Label
	}
	if byHand[0] != OpenPalm && byHand[1] != OpenPalm {
		t.Fatalf("expected one hand to emit OPEN_PALM, got %+v", events)
	}
	if byHand[0] != ClosedFist && byHand[1] != ClosedFist {
		t.Fatalf("expected one hand to emit CLOSED_FIST, got %+v", events)
	}
}

func TestPipeline_RetirementResetsClassifierAndState(t *testing.T) {
	p := NewPipeline(IntakeParams{MatchDistance: 0.15, MissFramesToRetire: 3}, DefaultClassifierParams(), DefaultStateMachineParams())

	obs := openPalmObservation()
	for frame := 1; frame <= 5; frame++ {
		p.Step([]HandObservation{obs}, int64(frame)*33)
	}
	if p.ActiveHandCount() != 1 {
		t.Fatalf("expected one active hand, got %d", p.ActiveHandCount())
	}

	// Stop observing it; after MissFramesToRetire frames it must retire and
	// its classifier history/state must be forgotten.
	for frame := 6; frame <= 9; frame++ {
		p.Step(nil, int64(frame)*33)
	}
	if p.ActiveHandCount() != 0 {
		t.Fatalf("expected the hand to retire, still have %d active", p.ActiveHandCount())
	}
	if _, ok := p.classifier.hands[0]; ok {
		t.Fatalf("expected classifier history for hand 0 to be forgotten on retirement")
	}
}

func TestPipeline_ClearHistory(t *testing.T) {
	p := NewPipeline(DefaultIntakeParams(), DefaultClassifierParams(), DefaultStateMachineParams())
	obs := openPalmObservation()
	for frame := 1; frame <= 5; frame++ {
		p.Step([]HandObservation{obs}, int64(frame)*33)
	}

	p.ClearHistory()
	if len(p.classifier.hands) != 0 {
		t.Fatalf("expected ClearHistory to wipe classifier state")
	}
	for _, s := range p.states {
		if s.st != idle || len(s.buffer) != 0 {
			t.Fatalf("expected ClearHistory to reset every hand state machine")
		}
	}
}
