package botsort

import "gocv.io/x/gocv"

// Detection is one per-frame detector output, consumed as an immutable
// input record (spec §3). Embedding is present iff Re-ID is enabled.
type Detection struct {
	BBox       TLWH
	Confidence float32
	ClassID    int
	Embedding  []float32
}

// Homography is a 3x3 matrix taking the previous frame's coordinate system
// to the current frame's, produced by a GMCBackend (spec §4.3).
type Homography [3][3]float32

func identityHomography() Homography {
	return Homography{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

// Frame is the opaque image handle GMC backends and the feature extractor
// operate on (spec §6). MatFrame is the gocv-backed implementation used
// throughout this module; callers may supply any other Frame implementation
// for the FeatureExtractor/GMCBackend interfaces so long as ToMat gives
// access to the same pixels a gocv-based backend expects.
type Frame interface {
	Cols() int
	Rows() int
	ToMat() gocv.Mat
}

// MatFrame adapts a gocv.Mat to the Frame interface. It does not own the
// Mat's lifetime; the caller remains responsible for closing it.
type MatFrame struct {
	Mat gocv.Mat
}

// Cols returns the frame width in pixels.
func (f MatFrame) Cols() int { return f.Mat.Cols() }

// Rows returns the frame height in pixels.
func (f MatFrame) Rows() int { return f.Mat.Rows() }

// ToMat returns the underlying gocv.Mat.
func (f MatFrame) ToMat() gocv.Mat { return f.Mat }

// FeatureExtractor produces a fixed-dimension unit-norm appearance
// embedding for one detection box (spec §6). Implementations own any model
// runtime; this module only calls Extract.
type FeatureExtractor interface {
	Extract(frame Frame, bbox TLWH) ([]float32, error)
}

// GMCBackend estimates camera motion between consecutive frames (spec §4.3).
// Implementations own their own previous-frame/feature state across calls.
type GMCBackend interface {
	Apply(frame Frame, detections []Detection) (Homography, error)
	Close()
}
