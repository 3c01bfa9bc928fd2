package gesturepipe

// Pipeline owns the per-frame transformation from landmark observations to
// emitted gesture events: Intake -> Classifier -> per-hand HandState. It is
// designed to be driven exclusively by a single owner (the vision loop);
// nothing here is safe for concurrent use.
type Pipeline struct {
	intake     *Intake
	classifier *Classifier
	states     [maxHands]*HandState
	smParams   StateMachineParams
}

// NewPipeline wires the three stages together with the given parameters.
func NewPipeline(intakeParams IntakeParams, classifierParams ClassifierParams, smParams StateMachineParams) *Pipeline {
	p := &Pipeline{
		intake:     NewIntake(intakeParams),
		classifier: NewClassifier(classifierParams),
		smParams:   smParams,
	}
	for i := range p.states {
		p.states[i] = NewHandState(HandId(i), smParams)
	}
	return p
}

// Step processes one frame's worth of hand observations and returns every
// GestureEvent emitted this frame, in a stable (ascending HandId) order.
func (p *Pipeline) Step(observations []HandObservation, nowMs int64) []GestureEvent {
	assignments, retired := p.intake.Process(observations)

	for _, id := range retired {
		p.classifier.Forget(id)
		p.states[id].Reset()
	}

	present := [maxHands]bool{}
	detections := [maxHands]RawDetection{}
	for _, a := range assignments {
		det, ok := p.classifier.Classify(a.Id, a.Observation, nowMs)
		present[a.Id] = ok
		detections[a.Id] = det
	}

	var events []GestureEvent
	for i := 0; i < maxHands; i++ {
		ev, ok := p.states[i].Step(detections[i], present[i], nowMs)
		if ok {
			events = append(events, ev)
		}
	}
	return events
}

// ClearHistory atomically resets all per-hand classifier history and state
// machine state, implementing the clear_gesture_history control message.
func (p *Pipeline) ClearHistory() {
	p.classifier.Reset()
	for i := range p.states {
		p.states[i].Reset()
	}
}

// ActiveHandCount returns the number of currently active (non-retired)
// hand identities, used for the broadcaster's status messages.
func (p *Pipeline) ActiveHandCount() int {
	count := 0
	for i := range p.intake.hands {
		if p.intake.hands[i].active {
			count++
		}
	}
	return count
}
