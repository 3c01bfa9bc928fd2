package gesturepipe

// IntakeParams configures hand identity assignment and retirement.
type IntakeParams struct {
	// MatchDistance is the max wrist-position Euclidean distance (in
	// normalized coordinates) used to match an untracked observation to
	// an existing hand.
	MatchDistance float64
	// MissFramesToRetire is the number of consecutive missed frames
	// after which a HandId is retired.
	MissFramesToRetire int
}

// DefaultIntakeParams returns the default intake settings.
func DefaultIntakeParams() IntakeParams {
	return IntakeParams{
		MatchDistance:      0.15,
		MissFramesToRetire: 10,
	}
}

// ClassifierParams configures the geometric gesture heuristics.
type ClassifierParams struct {
	// SwipeWindowSize caps the position history ring; PushWindowSize caps
	// the size and wrist-z rings.
	SwipeWindowSize int
	PushWindowSize  int

	SwipeDxThreshold float64
	SwipeDyThreshold float64
	CrossAxisRatio   float64

	PushSizeIncreaseThreshold float64
	PushZThreshold            float64

	PinchEnter float64
	PinchExit  float64

	OpenPalmFingerThreshold float64
	OpenPalmMinFingers      int

	ClosedFistDistanceThreshold float64
	ClosedFistMinFingers        int
}

// DefaultClassifierParams returns the default heuristic thresholds.
func DefaultClassifierParams() ClassifierParams {
	return ClassifierParams{
		SwipeWindowSize: 8,
		PushWindowSize:  8,

		SwipeDxThreshold: 0.08,
		SwipeDyThreshold: 0.08,
		CrossAxisRatio:   0.8,

		PushSizeIncreaseThreshold: 0.15,
		PushZThreshold:            0.10,

		PinchEnter: 0.05,
		PinchExit:  0.07,

		OpenPalmFingerThreshold: 0.02,
		OpenPalmMinFingers:      3,

		ClosedFistDistanceThreshold: 0.10,
		ClosedFistMinFingers:        4,
	}
}

// StateMachineParams configures per-hand stability/cooldown behavior.
type StateMachineParams struct {
	StabilityFrames        int
	CooldownMs             int64
	AllowSameGestureRepeat bool
	// SameGestureLockoutMs defaults to CooldownMs when zero.
	SameGestureLockoutMs int64
}

// DefaultStateMachineParams returns the default stability/cooldown settings.
func DefaultStateMachineParams() StateMachineParams {
	return StateMachineParams{
		StabilityFrames:        5,
		CooldownMs:             1000,
		AllowSameGestureRepeat: false,
	}
}

func (p StateMachineParams) lockoutMs() int64 {
	if p.SameGestureLockoutMs > 0 {
		return p.SameGestureLockoutMs
	}
	return p.CooldownMs
}
