package botsort

import "gonum.org/v1/gonum/mat"

// TrackState is the lifecycle state of a Track, per spec §3.
type TrackState int

const (
	// StateNew marks a track created this frame, not yet confirmed.
	StateNew TrackState = iota
	// StateTracked marks an actively associated track.
	StateTracked
	// StateLost marks a track that failed association this frame.
	StateLost
	// StateRemoved marks a track permanently retired.
	StateRemoved
)

func (s TrackState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateTracked:
		return "tracked"
	case StateLost:
		return "lost"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// emaAlpha is the smoothing factor for the ReID embedding EMA, per §4.2.
const emaAlpha = 0.9

// Track is one tracking hypothesis, owned exclusively by the Tracker that
// created it. Grounded on the teacher's tracker/strack.go, extended with
// GMC application and the appearance-embedding fusion BoT-SORT adds on top
// of plain ByteTrack.
type Track struct {
	kf *KalmanFilter

	mean StateMean
	cov  Covariance

	trackID   int
	state     TrackState
	activated bool

	score   float32
	classID int

	startFrame      int
	frameID         int
	trackletLen     int
	timeSinceUpdate int

	smoothFeat []float32
	currFeat   []float32
}

// newTrack constructs a Track from a detection's box/score/class. It is
// unexported: tracks are only ever created through Tracker.Track so that
// track_id assignment stays centralized (spec §9 ownership note).
func newTrack(kf *KalmanFilter, box TLWH, score float32, classID int, embedding []float32) *Track {
	t := &Track{
		kf:      kf,
		state:   StateNew,
		score:   score,
		classID: classID,
		cov:     Covariance{mat.NewDense(8, 8, nil)},
	}
	t.setBox(box)
	t.currFeat = embedding
	return t
}

// setBox seeds mean[:4] from a TLWH box ahead of Activate; mean[4:] (velocity)
// is zeroed by KalmanFilter.Initiate.
func (t *Track) setBox(box TLWH) {
	xyah := box.ToXYAH()
	for i := 0; i < 4; i++ {
		t.mean[i] = xyah[i]
	}
}

// TrackID returns the stable identity assigned on activation, or 0 if the
// track has never been activated.
func (t *Track) TrackID() int { return t.trackID }

// State returns the current lifecycle state.
func (t *Track) State() TrackState { return t.state }

// IsActivated reports whether the track has been confirmed (spec §3).
func (t *Track) IsActivated() bool { return t.activated }

// Score returns the last associated detection confidence.
func (t *Track) Score() float32 { return t.score }

// ClassID returns the object class label.
func (t *Track) ClassID() int { return t.classID }

// FrameID returns the frame at which this track was last touched.
func (t *Track) FrameID() int { return t.frameID }

// StartFrame returns the frame this identity was first activated on.
func (t *Track) StartFrame() int { return t.startFrame }

// TrackletLen returns the length, in frames, of the current unbroken
// tracked run (reset on re-activation).
func (t *Track) TrackletLen() int { return t.trackletLen }

// TimeSinceUpdate returns frames elapsed since the last successful
// association.
func (t *Track) TimeSinceUpdate() int { return t.timeSinceUpdate }

// TLWH returns the current bounding box in top-left/width/height form.
func (t *Track) TLWH() TLWH {
	return FromXYAH(XYAH{t.mean[0], t.mean[1], t.mean[2], t.mean[3]})
}

// TLBR returns the current bounding box in top-left/bottom-right form.
func (t *Track) TLBR() TLBR {
	return t.TLWH().ToTLBR()
}

// SmoothFeature returns the EMA-smoothed unit-norm embedding, or nil if
// this track has never been given an embedding.
func (t *Track) SmoothFeature() []float32 { return t.smoothFeat }

// activate assigns a fresh identity and initializes the Kalman state.
// frameID==1 bootstraps an immediately-activated track, per §4.2.
func (t *Track) activate(frameID, trackID int) {
	t.kf.Initiate(&t.mean, &t.cov, t.TLWH().ToXYAH())

	t.state = StateTracked
	t.activated = frameID == 1
	t.trackID = trackID
	t.frameID = frameID
	t.startFrame = frameID
	t.trackletLen = 0
	t.timeSinceUpdate = 0

	t.absorbFeature()
}

// reActivate re-confirms a Lost track against a fresh detection, preserving
// its identity unless newID requests a fresh one.
func (d *Tracker) reActivate(t *Track, det *Track, frameID int, newID bool) {
	if err := t.kf.Update(&t.mean, &t.cov, det.TLWH().ToXYAH()); err != nil {
		d.diag.record(KindNumericDegenerate, "re_activate: "+err.Error(), frameID)
	}

	t.state = StateTracked
	t.activated = true
	t.score = det.score
	t.classID = det.classID
	if newID {
		t.trackID = d.nextTrackID()
	}
	t.frameID = frameID
	t.trackletLen = 0
	t.timeSinceUpdate = 0

	t.currFeat = det.currFeat
	t.absorbFeature()
}

// update applies a successful association's detection to an already-Tracked
// track.
func (d *Tracker) update(t *Track, det *Track, frameID int) {
	if err := t.kf.Update(&t.mean, &t.cov, det.TLWH().ToXYAH()); err != nil {
		d.diag.record(KindNumericDegenerate, "update: "+err.Error(), frameID)
	}

	t.state = StateTracked
	t.activated = true
	t.score = det.score
	t.classID = det.classID
	t.frameID = frameID
	t.trackletLen++
	t.timeSinceUpdate = 0

	t.currFeat = det.currFeat
	t.absorbFeature()
}

// absorbFeature folds currFeat into the EMA-smoothed embedding, per §4.2.
// Whether Re-ID is enabled at all is the Tracker's concern (cfg.FeatureExtractor
// / per-detection Embedding); a Track only needs to know whether it currently
// has an observed feature to fold in, so a transient extraction failure on
// one frame never permanently locks a track out of appearance fusion.
func (t *Track) absorbFeature() {
	if t.currFeat == nil {
		return
	}

	norm := normalize(t.currFeat)

	if t.smoothFeat == nil {
		t.smoothFeat = make([]float32, len(norm))
		copy(t.smoothFeat, norm)
		return
	}

	for i := range norm {
		t.smoothFeat[i] = emaAlpha*t.smoothFeat[i] + (1-emaAlpha)*norm[i]
	}
	t.smoothFeat = normalize(t.smoothFeat)
}

// markLost transitions a Tracked track to Lost.
func (t *Track) markLost() { t.state = StateLost }

// markRemoved transitions a track to Removed.
func (t *Track) markRemoved() { t.state = StateRemoved }

// multiPredict batches the Kalman predict step across tracks. Any track not
// currently Tracked has its velocity components zeroed first so that
// lost/unconfirmed tracks do not drift under a stale velocity estimate,
// per §4.2. Each predicted track's time-since-update counter advances by one
// frame; a successful association later in the frame resets it to zero.
func multiPredict(tracks []*Track, kf *KalmanFilter) {
	for _, t := range tracks {
		if t.state != StateTracked {
			for i := 4; i < 8; i++ {
				t.mean[i] = 0
			}
		}
		kf.Predict(&t.mean, &t.cov)
		t.timeSinceUpdate++
	}
}

// multiGMC rectifies each track's mean/covariance to the new frame's
// coordinate system using homography H. The 2x2 linear part of H is lifted
// into an 8x8 block-diagonal transform (applied identically to the position
// and velocity sub-blocks) so that covariance transforms as H8*cov*H8^T,
// per §4.2.
func multiGMC(tracks []*Track, h Homography) {
	if h == identityHomography() {
		return
	}

	r00, r01, t0 := float64(h[0][0]), float64(h[0][1]), float64(h[0][2])
	r10, r11, t1 := float64(h[1][0]), float64(h[1][1]), float64(h[1][2])

	h8 := mat.NewDense(8, 8, nil)
	for i := 0; i < 8; i++ {
		h8.Set(i, i, 1)
	}
	// position block (cx, cy)
	h8.Set(0, 0, r00)
	h8.Set(0, 1, r01)
	h8.Set(1, 0, r10)
	h8.Set(1, 1, r11)
	// velocity block (vx, vy) — linear part only, no translation
	h8.Set(4, 4, r00)
	h8.Set(4, 5, r01)
	h8.Set(5, 4, r10)
	h8.Set(5, 5, r11)

	for _, t := range tracks {
		cx, cy := float64(t.mean[0]), float64(t.mean[1])
		t.mean[0] = float32(r00*cx + r01*cy + t0)
		t.mean[1] = float32(r10*cx + r11*cy + t1)

		vx, vy := float64(t.mean[4]), float64(t.mean[5])
		t.mean[4] = float32(r00*vx + r01*vy)
		t.mean[5] = float32(r10*vx + r11*vy)

		if t.cov.Dense == nil {
			continue
		}
		var tmp mat.Dense
		tmp.Mul(h8, t.cov.Dense)
		var newCov mat.Dense
		newCov.Mul(&tmp, h8.T())
		t.cov.Dense = &newCov
	}
}
