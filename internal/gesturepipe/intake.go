package gesturepipe

import (
	"math"
	"sort"
)

// maxHands is the number of hand identities the core supports.
const maxHands = 2

// trackedHand is intake's bookkeeping for one active HandId.
type trackedHand struct {
	id        HandId
	lastWrist Landmark
	missed    int
	active    bool
}

// Intake assigns stable HandIds to incoming per-frame observations and
// drives retirement of hands that stop being observed.
type Intake struct {
	params IntakeParams
	hands  [maxHands]trackedHand
}

// NewIntake creates an Intake with the given parameters.
func NewIntake(params IntakeParams) *Intake {
	in := &Intake{params: params}
	for i := range in.hands {
		in.hands[i].id = HandId(i)
	}
	return in
}

// Assignment pairs a stable HandId with the observation it matched this
// frame.
type Assignment struct {
	Id          HandId
	Observation HandObservation
}

// Process assigns HandIds to this frame's observations and returns the
// list of hands that should be torn down (retired) this frame, in addition
// to the assignments. At most 2 observations are kept; if more arrive, the
// ones with the lowest tracker score are discarded silently.
func (in *Intake) Process(observations []HandObservation) (assignments []Assignment, retired []HandId) {
	observations = keepBestTwo(observations)

	assignedSlot := make([]int, len(observations))
	for i := range assignedSlot {
		assignedSlot[i] = -1
	}
	usedSlot := [maxHands]bool{}

	// Pass 1: honor the extractor's own tracking id, if present and the
	// corresponding slot is active.
	for oi, obs := range observations {
		if obs.TrackId == nil {
			continue
		}
		id := *obs.TrackId
		if id < 0 || id >= maxHands {
			continue
		}
		if !in.hands[id].active || usedSlot[id] {
			continue
		}
		assignedSlot[oi] = id
		usedSlot[id] = true
	}

	// Pass 2: for observations without a usable tracking id, match to the
	// closest active, unclaimed hand by wrist distance within threshold.
	for oi, obs := range observations {
		if assignedSlot[oi] >= 0 {
			continue
		}
		best := -1
		bestDist := math.Inf(1)
		for i := range in.hands {
			if !in.hands[i].active || usedSlot[i] {
				continue
			}
			d := wristDistance(obs, in.hands[i].lastWrist)
			if d < in.params.MatchDistance && d < bestDist {
				best = i
				bestDist = d
			}
		}
		if best >= 0 {
			assignedSlot[oi] = best
			usedSlot[best] = true
		}
	}

	// Pass 3: remaining unmatched observations allocate the lowest free
	// HandId.
	for oi := range observations {
		if assignedSlot[oi] >= 0 {
			continue
		}
		for i := range in.hands {
			if in.hands[i].active || usedSlot[i] {
				continue
			}
			assignedSlot[oi] = i
			usedSlot[i] = true
			break
		}
	}

	for oi, obs := range observations {
		if assignedSlot[oi] < 0 {
			continue
		}
		slot := assignedSlot[oi]
		in.commit(HandId(slot), obs)
		assignments = append(assignments, Assignment{Id: HandId(slot), Observation: obs})
	}

	// Any active hand not claimed this frame accrues a miss; past the
	// threshold it's retired.
	for i := range in.hands {
		if !in.hands[i].active || usedSlot[i] {
			continue
		}
		in.hands[i].missed++
		if in.hands[i].missed >= in.params.MissFramesToRetire {
			in.hands[i].active = false
			in.hands[i].missed = 0
			retired = append(retired, HandId(i))
		}
	}

	return assignments, retired
}

func (in *Intake) commit(id HandId, obs HandObservation) {
	in.hands[id].active = true
	in.hands[id].missed = 0
	in.hands[id].lastWrist = obs.Points[Wrist]
}

func wristDistance(obs HandObservation, wrist Landmark) float64 {
	dx := obs.Points[Wrist].X - wrist.X
	dy := obs.Points[Wrist].Y - wrist.Y
	dz := obs.Points[Wrist].Z - wrist.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// keepBestTwo returns at most 2 observations, preferring the highest
// tracker scores when more than 2 arrive.
func keepBestTwo(observations []HandObservation) []HandObservation {
	if len(observations) <= maxHands {
		return observations
	}
	kept := make([]HandObservation, len(observations))
	copy(kept, observations)
	sort.Slice(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })
	return kept[:maxHands]
}
