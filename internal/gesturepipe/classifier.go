package gesturepipe

import "math"

// historyEntry is one frame's worth of position/size history for a hand.
type historyEntry struct {
	center    [2]float64
	timestamp int64
}

// handHistory is the classifier's per-hand rolling state.
type handHistory struct {
	position []historyEntry
	size     []float64
	sizeZ    []float64 // wrist z, parallel to size
	pinching bool
}

// Classifier maps a single HandObservation, plus that hand's short
// history, to at most one RawDetection per frame.
type Classifier struct {
	params ClassifierParams
	hands  map[HandId]*handHistory
}

// NewClassifier creates a Classifier with the given parameters.
func NewClassifier(params ClassifierParams) *Classifier {
	return &Classifier{
		params: params,
		hands:  make(map[HandId]*handHistory),
	}
}

// Reset clears all per-hand history, as if no hand had ever been observed.
// Used to implement the clear_gesture_history control message atomically.
func (c *Classifier) Reset() {
	c.hands = make(map[HandId]*handHistory)
}

// Forget discards the history for a single retired hand.
func (c *Classifier) Forget(id HandId) {
	delete(c.hands, id)
}

func (c *Classifier) historyFor(id HandId) *handHistory {
	h, ok := c.hands[id]
	if !ok {
		h = &handHistory{}
		c.hands[id] = h
	}
	return h
}

// Classify runs the priority-ordered gesture heuristics for one hand's
// observation at the given timestamp (ms since epoch). It returns
// (detection, true) if a gesture was detected, or (zero, false) otherwise.
//
// Any landmark out of [0,1] or NaN is treated as "no detection" for this
// hand, though the history buffers still advance so a later valid frame
// doesn't see a stale jump.
func (c *Classifier) Classify(id HandId, obs HandObservation, timestampMs int64) (RawDetection, bool) {
	h := c.historyFor(id)

	if !landmarksValid(obs) {
		c.appendHistory(h, obs, timestampMs)
		return RawDetection{}, false
	}

	center := handCenter(obs)
	size := handSize(obs)
	meta := Metadata{
		HandCenter:      center,
		HandSize:        size,
		WristZ:          obs.Points[Wrist].Z,
		FingersExtended: countExtendedFingers(obs, c.params.OpenPalmFingerThreshold),
	}

	c.appendHistory(h, obs, timestampMs)

	if d, ok := c.classifySwipe(h, meta); ok {
		return d, true
	}
	if d, ok := c.classifyPush(h, meta); ok {
		return d, true
	}
	if d, ok := c.classifyPinch(h, obs, meta); ok {
		return d, true
	}
	if d, ok := classifyOpenPalm(obs, meta, c.params); ok {
		return d, true
	}
	if d, ok := classifyClosedFist(obs, meta, c.params); ok {
		return d, true
	}
	return RawDetection{}, false
}

func (c *Classifier) appendHistory(h *handHistory, obs HandObservation, timestampMs int64) {
	posW := c.params.SwipeWindowSize
	if posW <= 0 {
		posW = 1
	}
	sizeW := c.params.PushWindowSize
	if sizeW <= 0 {
		sizeW = 1
	}

	center := meanOfAllLandmarks(obs)
	h.position = append(h.position, historyEntry{center: center, timestamp: timestampMs})
	if len(h.position) > posW {
		h.position = h.position[len(h.position)-posW:]
	}

	size := handSize(obs)
	h.size = append(h.size, size)
	if len(h.size) > sizeW {
		h.size = h.size[len(h.size)-sizeW:]
	}

	h.sizeZ = append(h.sizeZ, obs.Points[Wrist].Z)
	if len(h.sizeZ) > sizeW {
		h.sizeZ = h.sizeZ[len(h.sizeZ)-sizeW:]
	}
}

// classifySwipe detects a horizontal or vertical swipe once the position
// window is full. The dominant axis must exceed its threshold and the cross
// axis must stay within crossAxisRatio of it.
func (c *Classifier) classifySwipe(h *handHistory, meta Metadata) (RawDetection, bool) {
	w := c.params.SwipeWindowSize
	if len(h.position) < w {
		return RawDetection{}, false
	}

	first := h.position[0]
	last := h.position[len(h.position)-1]
	dx := last.center[0] - first.center[0]
	dy := last.center[1] - first.center[1]

	thresh := c.params.SwipeDxThreshold
	if math.Abs(dx) > thresh && math.Abs(dy) <= c.params.CrossAxisRatio*math.Abs(dx) {
		label := SwipeRight
		if dx < 0 {
			label = SwipeLeft
		}
		h.position = h.position[:0]
		conf := math.Min(1, math.Abs(dx)/(2*thresh))
		return RawDetection{Label: label, Confidence: conf, Metadata: meta}, true
	}

	threshY := c.params.SwipeDyThreshold
	if math.Abs(dy) > threshY && math.Abs(dx) <= c.params.CrossAxisRatio*math.Abs(dy) {
		// Image convention: y increases downward, so SWIPE_UP is dy<0.
		label := SwipeDown
		if dy < 0 {
			label = SwipeUp
		}
		h.position = h.position[:0]
		conf := math.Min(1, math.Abs(dy)/(2*threshY))
		return RawDetection{Label: label, Confidence: conf, Metadata: meta}, true
	}

	return RawDetection{}, false
}

// classifyPush detects a push toward the camera: apparent hand size grew
// and wrist z decreased across the full size window.
func (c *Classifier) classifyPush(h *handHistory, meta Metadata) (RawDetection, bool) {
	w := c.params.PushWindowSize
	if len(h.size) < w || len(h.sizeZ) < w {
		return RawDetection{}, false
	}

	firstSize := h.size[0]
	lastSize := h.size[len(h.size)-1]
	if firstSize == 0 {
		return RawDetection{}, false
	}
	dSize := (lastSize - firstSize) / firstSize

	firstZ := h.sizeZ[0]
	lastZ := h.sizeZ[len(h.sizeZ)-1]
	dz := firstZ - lastZ

	if dSize > c.params.PushSizeIncreaseThreshold && dz > c.params.PushZThreshold {
		h.size = h.size[:0]
		h.sizeZ = h.sizeZ[:0]
		h.position = h.position[:0]
		conf := math.Min(1, dSize/(2*c.params.PushSizeIncreaseThreshold))
		return RawDetection{Label: PushForward, Confidence: conf, Metadata: meta}, true
	}

	return RawDetection{}, false
}

// classifyPinch tracks the thumb-index pinch (continuous,
// hysteresis). Pinch events bypass the static fallback even on a no-op
// PINCH_HOLD frame.
func (c *Classifier) classifyPinch(h *handHistory, obs HandObservation, meta Metadata) (RawDetection, bool) {
	d := distance(obs.Points[ThumbTip], obs.Points[IndexTip])

	switch {
	case !h.pinching && d < c.params.PinchEnter:
		h.pinching = true
		return RawDetection{Label: PinchStart, Confidence: pinchConfidence(d, c.params.PinchExit), Metadata: meta}, true
	case h.pinching && d > c.params.PinchExit:
		h.pinching = false
		return RawDetection{Label: PinchEnd, Confidence: pinchConfidence(d, c.params.PinchExit), Metadata: meta}, true
	case h.pinching:
		return RawDetection{Label: PinchHold, Confidence: pinchConfidence(d, c.params.PinchExit), Metadata: meta}, true
	default:
		return RawDetection{}, false
	}
}

func pinchConfidence(d, pinchExit float64) float64 {
	r := d / pinchExit
	if r < 0 {
		r = 0
	}
	if r > 1 {
		r = 1
	}
	return 1 - r
}

// classifyOpenPalm counts extended non-thumb fingers.
func classifyOpenPalm(obs HandObservation, meta Metadata, params ClassifierParams) (RawDetection, bool) {
	e := countExtendedFingers(obs, params.OpenPalmFingerThreshold)
	if e < params.OpenPalmMinFingers {
		return RawDetection{}, false
	}
	return RawDetection{Label: OpenPalm, Confidence: float64(e) / 4, Metadata: meta}, true
}

// classifyClosedFist counts fingertips curled in toward the palm center.
func classifyClosedFist(obs HandObservation, meta Metadata, params ClassifierParams) (RawDetection, bool) {
	center := palmCenter(obs)
	tips := []int{ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip}
	closed := 0
	for _, tip := range tips {
		if distance(obs.Points[tip], Landmark{X: center[0], Y: center[1], Z: center[2]}) < params.ClosedFistDistanceThreshold {
			closed++
		}
	}
	if closed < params.ClosedFistMinFingers {
		return RawDetection{}, false
	}
	return RawDetection{Label: ClosedFist, Confidence: float64(closed) / 5, Metadata: meta}, true
}

// countExtendedFingers counts the four non-thumb fingers whose tip.y is
// above (smaller than) pip.y by more than the threshold.
func countExtendedFingers(obs HandObservation, threshold float64) int {
	pairs := [][2]int{
		{IndexTip, IndexPIP},
		{MiddleTip, MiddlePIP},
		{RingTip, RingPIP},
		{PinkyTip, PinkyPIP},
	}
	count := 0
	for _, p := range pairs {
		tip, pip := obs.Points[p[0]], obs.Points[p[1]]
		if tip.Y < pip.Y-threshold {
			count++
		}
	}
	return count
}

// palmCenter is the arithmetic mean of WRIST and the four MCP joints.
func palmCenter(obs HandObservation) [3]float64 {
	pts := []int{Wrist, IndexMCP, MiddleMCP, RingMCP, PinkyMCP}
	var sx, sy, sz float64
	for _, i := range pts {
		sx += obs.Points[i].X
		sy += obs.Points[i].Y
		sz += obs.Points[i].Z
	}
	n := float64(len(pts))
	return [3]float64{sx / n, sy / n, sz / n}
}

// handSize is the Euclidean distance between WRIST and MIDDLE_MCP.
func handSize(obs HandObservation) float64 {
	return distance(obs.Points[Wrist], obs.Points[MiddleMCP])
}

// handCenter is the arithmetic mean of all 21 landmarks (2D, for history).
func handCenter(obs HandObservation) [2]float64 {
	return meanOfAllLandmarks(obs)
}

func meanOfAllLandmarks(obs HandObservation) [2]float64 {
	var sx, sy float64
	for _, p := range obs.Points {
		sx += p.X
		sy += p.Y
	}
	n := float64(NumLandmarks)
	return [2]float64{sx / n, sy / n}
}

func distance(a, b Landmark) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// landmarksValid rejects a frame whose landmarks are out of the
// normalized [0,1] range on x/y, or carry a NaN anywhere.
func landmarksValid(obs HandObservation) bool {
	for _, p := range obs.Points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) {
			return false
		}
		if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
			return false
		}
	}
	return true
}
