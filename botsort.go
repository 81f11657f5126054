package botsort

import (
	"math"
	"sort"
)

// Config holds the Tracker construction parameters exposed by spec §6.
type Config struct {
	// TrackHighThresh is the minimum confidence for stage-1 association.
	TrackHighThresh float32
	// NewTrackThresh is the minimum confidence to spawn a new identity.
	NewTrackThresh float32
	// TrackBuffer is the lost-track retention window, in "30-fps frames".
	TrackBuffer int
	// MatchThresh is the stage-1 cost gate.
	MatchThresh float32
	// ProximityThresh and AppearanceThresh gate the IoU/embedding fusion.
	ProximityThresh  float32
	AppearanceThresh float32
	// GMCMethod selects a GMC backend: "orb", "sparse_optical_flow", "ecc",
	// or "none".
	GMCMethod string
	// FrameRate is used to scale TrackBuffer into frames and to set the
	// Kalman filter's motion-model dt.
	FrameRate float32
	// Lambda weights motion vs. appearance cost in fuse_motion.
	Lambda float32
	// FeatureExtractor enables Re-ID when non-nil. Detections without a
	// precomputed Embedding are passed through it on demand.
	FeatureExtractor FeatureExtractor
	// ReIDModelWeights and FP16Inference are passed through unused by this
	// module; they exist so a caller's FeatureExtractor factory can be
	// configured alongside the tracker, per spec §6's optional fields.
	ReIDModelWeights string
	FP16Inference    bool
}

// DefaultConfig returns the spec §6 default parameters.
func DefaultConfig() Config {
	return Config{
		TrackHighThresh:  0.6,
		NewTrackThresh:   0.7,
		TrackBuffer:      30,
		MatchThresh:      0.8,
		ProximityThresh:  0.5,
		AppearanceThresh: 0.25,
		GMCMethod:        GMCNone,
		FrameRate:        30,
		Lambda:           0.98,
	}
}

const removedRetention = 4096

// TrackInfo is a read-only snapshot of a Track, returned by value so
// callers cannot mutate the Tracker's internal state (spec §4.6 step 11).
type TrackInfo struct {
	TrackID     int
	BBox        TLWH
	Score       float32
	ClassID     int
	State       TrackState
	FrameID     int
	StartFrame  int
	TrackletLen int
}

func (t *Track) info() TrackInfo {
	return TrackInfo{
		TrackID:     t.trackID,
		BBox:        t.TLWH(),
		Score:       t.score,
		ClassID:     t.classID,
		State:       t.state,
		FrameID:     t.frameID,
		StartFrame:  t.startFrame,
		TrackletLen: t.trackletLen,
	}
}

// Tracker is the frame-synchronous controller orchestrating the two-stage
// association, lifecycle transitions, and pool bookkeeping of spec §4.6.
// It owns every Track it creates; it is not reentrant (spec §5).
type Tracker struct {
	cfg         Config
	kf          *KalmanFilter
	gmc         GMCBackend
	maxTimeLost int

	frameID      int
	trackIDNext  int
	trackedPool  []*Track
	lostPool     []*Track
	removedPool  []*Track

	embeddingDim int

	diag diagnostics
}

// New constructs a Tracker from cfg, applying defaults to zero fields of
// Config to support partially-specified configs the way DefaultConfig()'s
// values are phrased as "defaults" rather than requirements.
func New(cfg Config) (*Tracker, error) {
	def := DefaultConfig()
	if cfg.TrackHighThresh == 0 {
		cfg.TrackHighThresh = def.TrackHighThresh
	}
	if cfg.NewTrackThresh == 0 {
		cfg.NewTrackThresh = def.NewTrackThresh
	}
	if cfg.TrackBuffer == 0 {
		cfg.TrackBuffer = def.TrackBuffer
	}
	if cfg.MatchThresh == 0 {
		cfg.MatchThresh = def.MatchThresh
	}
	if cfg.ProximityThresh == 0 {
		cfg.ProximityThresh = def.ProximityThresh
	}
	if cfg.AppearanceThresh == 0 {
		cfg.AppearanceThresh = def.AppearanceThresh
	}
	if cfg.FrameRate == 0 {
		cfg.FrameRate = def.FrameRate
	}
	if cfg.Lambda == 0 {
		cfg.Lambda = def.Lambda
	}

	gmc, err := NewGMC(cfg.GMCMethod)
	if err != nil {
		return nil, err
	}

	maxTimeLost := int(math.Round(float64(cfg.FrameRate) / 30.0 * float64(cfg.TrackBuffer)))

	return &Tracker{
		cfg:         cfg,
		kf:          NewKalmanFilter(cfg.FrameRate, DefaultStdWeightPosition, DefaultStdWeightVelocity),
		gmc:         gmc,
		maxTimeLost: maxTimeLost,
	}, nil
}

// Close releases the GMC backend's resources.
func (t *Tracker) Close() {
	t.gmc.Close()
}

// Diagnostics returns a snapshot of accumulated per-kind error counts (§7).
func (t *Tracker) Diagnostics() DiagnosticsSnapshot {
	return t.diag.snapshot()
}

func (t *Tracker) nextTrackID() int {
	t.trackIDNext++
	return t.trackIDNext
}

func (t *Tracker) useReID() bool {
	return t.cfg.FeatureExtractor != nil
}

// Track runs one frame of the BoT-SORT pipeline: clamp/split detections,
// predict + GMC-rectify live tracks, two-stage association plus the
// unconfirmed-track stage, lifecycle transitions, and pool maintenance.
// It always returns the current active-track list (spec §5, §7): no error
// kind aborts the frame.
func (t *Tracker) Track(frame Frame, detections []Detection) []TrackInfo {
	t.frameID++

	detsHigh, detsLow := t.prepareDetections(frame, detections)

	var unconfirmed, confirmed []*Track
	for _, tr := range t.trackedPool {
		if tr.IsActivated() {
			confirmed = append(confirmed, tr)
		} else {
			unconfirmed = append(unconfirmed, tr)
		}
	}

	pool := mergeByID(confirmed, t.lostPool)
	multiPredict(pool, t.kf)

	h, err := t.gmc.Apply(frame, detections)
	if err != nil {
		t.diag.record(KindBackendFailure, "gmc: "+err.Error(), t.frameID)
		h = identityHomography()
	}
	multiGMC(pool, h)
	multiGMC(unconfirmed, h)

	var activated, refind []*Track

	// Stage 1: pool x dets_high, fused IoU + appearance cost.
	iouCost := iouDistance(pool, detsHigh)
	fuseScore(iouCost, detsHigh)

	embCost := NewMatrix(0, 0)
	if t.useReID() {
		embCost = embeddingDistance(pool, detsHigh)
		fuseMotion(t.kf, embCost, pool, detsHigh, false, t.cfg.Lambda)
	}

	finalCost := fuseIoUWithEmb(iouCost, embCost, t.cfg.ProximityThresh, t.cfg.AppearanceThresh)
	stage1 := linearAssignment(finalCost, t.cfg.MatchThresh)

	for _, m := range stage1.Matches {
		tr, det := pool[m[0]], detsHigh[m[1]]

		if tr.State() == StateTracked {
			t.update(tr, det, t.frameID)
			activated = append(activated, tr)
		} else {
			t.reActivate(tr, det, t.frameID, false)
			refind = append(refind, tr)
		}
	}

	var remainTracked []*Track
	for _, idx := range stage1.UnmatchedTracks {
		if pool[idx].State() == StateTracked {
			remainTracked = append(remainTracked, pool[idx])
		}
	}

	var remainDetsHigh []*Track
	for _, idx := range stage1.UnmatchedDets {
		remainDetsHigh = append(remainDetsHigh, detsHigh[idx])
	}

	// Stage 2: still-Tracked unmatched x dets_low, IoU only, fixed gate 0.5.
	iouCost2 := iouDistance(remainTracked, detsLow)
	stage2 := linearAssignment(iouCost2, 0.5)

	for _, m := range stage2.Matches {
		tr, det := remainTracked[m[0]], detsLow[m[1]]
		if tr.State() == StateTracked {
			t.update(tr, det, t.frameID)
			activated = append(activated, tr)
		} else {
			t.reActivate(tr, det, t.frameID, false)
			refind = append(refind, tr)
		}
	}

	var newlyLost []*Track
	for _, idx := range stage2.UnmatchedTracks {
		tr := remainTracked[idx]
		if tr.State() != StateLost {
			tr.markLost()
			newlyLost = append(newlyLost, tr)
		}
	}

	// Stage 3: unconfirmed x stage-1-unmatched dets_high, IoU + score, gate 0.7.
	iouCost3 := iouDistance(unconfirmed, remainDetsHigh)
	fuseScore(iouCost3, remainDetsHigh)
	stage3 := linearAssignment(iouCost3, 0.7)

	for _, m := range stage3.Matches {
		tr, det := unconfirmed[m[0]], remainDetsHigh[m[1]]
		t.update(tr, det, t.frameID)
		activated = append(activated, tr)
	}

	var newlyRemoved []*Track
	for _, idx := range stage3.UnmatchedTracks {
		tr := unconfirmed[idx]
		tr.markRemoved()
		newlyRemoved = append(newlyRemoved, tr)
	}

	// New tracks: unmatched high-confidence detections above new_track_thresh.
	for _, idx := range stage3.UnmatchedDets {
		det := remainDetsHigh[idx]
		if det.Score() < t.cfg.NewTrackThresh {
			continue
		}
		det.activate(t.frameID, t.nextTrackID())
		activated = append(activated, det)
	}

	// Reap: lost tracks exceeding the retention window.
	for _, tr := range t.lostPool {
		if t.frameID-tr.FrameID() > t.maxTimeLost {
			tr.markRemoved()
			newlyRemoved = append(newlyRemoved, tr)
		}
	}

	// Pool maintenance (spec §4.6 step 10).
	var stillTracked []*Track
	for _, tr := range t.trackedPool {
		if tr.State() == StateTracked {
			stillTracked = append(stillTracked, tr)
		}
	}
	newTrackedPool := mergeByID(stillTracked, activated, refind)

	removedIDs := idSet(t.removedPool)
	for _, tr := range newlyRemoved {
		removedIDs[tr.TrackID()] = true
	}
	trimmedLost := subtractByID(subtractByID(t.lostPool, newTrackedPool), removedIDs)
	newLostPool := mergeByID(trimmedLost, newlyLost)

	newTrackedPool, newLostPool = removeDuplicates(newTrackedPool, newLostPool)

	t.removedPool = append(t.removedPool, newlyRemoved...)
	if len(t.removedPool) > removedRetention {
		t.removedPool = t.removedPool[len(t.removedPool)-removedRetention:]
	}

	t.trackedPool = newTrackedPool
	t.lostPool = newLostPool

	var out []TrackInfo
	for _, tr := range t.trackedPool {
		if tr.IsActivated() {
			out = append(out, tr.info())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackID < out[j].TrackID })

	return out
}

// prepareDetections clamps detections to the frame, drops invalid ones
// (spec §7 InvalidInput), fills in embeddings via FeatureExtractor when
// Re-ID is enabled and a detection doesn't already carry one, and splits
// the result into high/low-confidence hypothesis tracks (spec §4.6 step 1).
func (t *Tracker) prepareDetections(frame Frame, detections []Detection) (high, low []*Track) {
	cols, rows := frame.Cols(), frame.Rows()

	for _, det := range detections {
		if det.Confidence != det.Confidence { // NaN check
			t.diag.record(KindInvalidInput, "confidence is NaN", t.frameID)
			continue
		}
		if det.BBox.Width() < 0 || det.BBox.Height() < 0 {
			t.diag.record(KindInvalidInput, "negative bbox dimension", t.frameID)
			continue
		}
		if det.Confidence <= 0.1 {
			continue
		}

		box := clampTLWH(det.BBox, cols, rows)
		if box.Height() <= 0 {
			t.diag.record(KindInvalidInput, "degenerate bbox height after clamp", t.frameID)
			continue
		}

		embedding := det.Embedding
		if t.useReID() && embedding == nil {
			feat, err := t.cfg.FeatureExtractor.Extract(frame, box)
			if err != nil {
				t.diag.record(KindBackendFailure, "feature extractor: "+err.Error(), t.frameID)
			} else {
				embedding = feat
			}
		}

		if embedding != nil {
			if t.embeddingDim == 0 {
				t.embeddingDim = len(embedding)
			} else if len(embedding) != t.embeddingDim {
				t.diag.record(KindInvalidInput, "embedding dimension mismatch", t.frameID)
				continue
			}
		}

		tr := newTrack(t.kf, box, det.Confidence, det.ClassID, embedding)

		switch {
		case det.Confidence >= t.cfg.TrackHighThresh:
			high = append(high, tr)
		default:
			low = append(low, tr)
		}
	}

	return high, low
}

// mergeByID unions tracks across lists by track_id, later lists winning on
// conflict, preserving each id's first-seen position for deterministic
// output ordering.
func mergeByID(lists ...[]*Track) []*Track {
	byID := make(map[int]*Track)
	var order []int

	for _, list := range lists {
		for _, tr := range list {
			id := tr.TrackID()
			if _, seen := byID[id]; !seen {
				order = append(order, id)
			}
			byID[id] = tr
		}
	}

	out := make([]*Track, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

func idSet(tracks []*Track) map[int]bool {
	set := make(map[int]bool, len(tracks))
	for _, tr := range tracks {
		set[tr.TrackID()] = true
	}
	return set
}

// subtractByID returns tracks from a whose track_id is not present in b.
func subtractByID(a []*Track, b interface{}) []*Track {
	var excluded map[int]bool
	switch v := b.(type) {
	case []*Track:
		excluded = idSet(v)
	case map[int]bool:
		excluded = v
	}

	var out []*Track
	for _, tr := range a {
		if !excluded[tr.TrackID()] {
			out = append(out, tr)
		}
	}
	return out
}

// removeDuplicates drops the shorter-lived of any tracked/lost pair whose
// IoU exceeds 0.15, per spec §4.6 step 10.
func removeDuplicates(tracked, lost []*Track) (trackedOut, lostOut []*Track) {
	dropTracked := make([]bool, len(tracked))
	dropLost := make([]bool, len(lost))

	for i, a := range tracked {
		for j, b := range lost {
			if IoU(a.TLBR(), b.TLBR()) <= 0.15 {
				continue
			}
			if a.FrameID()-a.StartFrame() > b.FrameID()-b.StartFrame() {
				dropLost[j] = true
			} else {
				dropTracked[i] = true
			}
		}
	}

	for i, tr := range tracked {
		if !dropTracked[i] {
			trackedOut = append(trackedOut, tr)
		}
	}
	for j, tr := range lost {
		if !dropLost[j] {
			lostOut = append(lostOut, tr)
		}
	}
	return trackedOut, lostOut
}
