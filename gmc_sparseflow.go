package botsort

import (
	"sort"

	"gocv.io/x/gocv"
)

// sparseFlowGMC estimates camera translation from sparse Lucas-Kanade
// optical flow on background corner features, masking out detection boxes
// so foreground object motion isn't mistaken for camera motion. Grounded on
// other_examples/DeadLemon-tracker__main.go's stabilizeFrame, generalized
// from a whole-frame stabilizer into a per-frame homography estimator that
// masks detections and keeps state across calls per spec §4.3.
type sparseFlowGMC struct {
	prevGray gocv.Mat
	haveMask bool
}

func newSparseFlowGMC() *sparseFlowGMC {
	return &sparseFlowGMC{prevGray: gocv.NewMat()}
}

func (g *sparseFlowGMC) Close() {
	g.prevGray.Close()
}

func (g *sparseFlowGMC) Apply(frame Frame, detections []Detection) (Homography, error) {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame.ToMat(), &gray, gocv.ColorBGRToGray)

	if g.prevGray.Empty() {
		gray.CopyTo(&g.prevGray)
		return identityHomography(), nil
	}

	mask := detectionMask(gray.Rows(), gray.Cols(), detections)
	defer mask.Close()

	prevPts := gocv.NewMat()
	defer prevPts.Close()
	gocv.GoodFeaturesToTrackWithParams(g.prevGray, &prevPts, 200, 0.01, 30, mask, 3, false, 0.04)

	if prevPts.Empty() {
		gray.CopyTo(&g.prevGray)
		return identityHomography(), nil
	}

	nextPts := gocv.NewMat()
	status := gocv.NewMat()
	flowErr := gocv.NewMat()
	defer nextPts.Close()
	defer status.Close()
	defer flowErr.Close()

	gocv.CalcOpticalFlowPyrLK(g.prevGray, gray, prevPts, &nextPts, &status, &flowErr)

	var dxs, dys []float64
	for i := 0; i < status.Rows(); i++ {
		if status.GetUCharAt(i, 0) == 0 {
			continue
		}
		dx := nextPts.GetFloatAt(i, 0) - prevPts.GetFloatAt(i, 0)
		dy := nextPts.GetFloatAt(i, 1) - prevPts.GetFloatAt(i, 1)
		dxs = append(dxs, float64(dx))
		dys = append(dys, float64(dy))
	}

	gray.CopyTo(&g.prevGray)

	if len(dxs) == 0 {
		return identityHomography(), nil
	}

	dx, dy := median(dxs), median(dys)

	h := identityHomography()
	h[0][2] = float32(dx)
	h[1][2] = float32(dy)
	return h, nil
}

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
