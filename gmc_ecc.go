package botsort

import "gocv.io/x/gocv"

// eccGMC estimates camera motion via Enhanced Correlation Coefficient (ECC)
// image alignment, the "ecc" GMC backend in BoTSORT.cpp's GMC_method_map.
// The current frame's detection boxes are masked out of the input image so
// the alignment locks onto background structure; the template (previous
// frame) is not masked.
type eccGMC struct {
	prevGray gocv.Mat
	have     bool
}

func newEccGMC() *eccGMC {
	return &eccGMC{prevGray: gocv.NewMat()}
}

func (g *eccGMC) Close() {
	g.prevGray.Close()
}

func (g *eccGMC) Apply(frame Frame, detections []Detection) (Homography, error) {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame.ToMat(), &gray, gocv.ColorBGRToGray)

	if !g.have || g.prevGray.Empty() {
		gray.CopyTo(&g.prevGray)
		g.have = true
		return identityHomography(), nil
	}

	mask := detectionMask(gray.Rows(), gray.Cols(), detections)
	defer mask.Close()

	warp := gocv.Eye(2, 3, gocv.MatTypeCV32F)
	defer warp.Close()

	criteria := gocv.NewTermCriteria(gocv.TermCriteriaCount+gocv.TermCriteriaEPS, 50, 1e-4)

	_, err := gocv.FindTransformECC(g.prevGray, gray, &warp, gocv.MotionEuclidean, criteria, mask, 5)

	h := identityHomography()
	if err == nil && warp.Rows() == 2 && warp.Cols() == 3 {
		for i := 0; i < 2; i++ {
			for j := 0; j < 3; j++ {
				h[i][j] = float32(warp.GetFloatAt(i, j))
			}
		}
	}

	gray.CopyTo(&g.prevGray)

	return h, nil
}
