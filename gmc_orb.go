package botsort

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// blackRGBA paints mask regions that should be excluded from feature
// detection (detection boxes, treated as foreground).
var blackRGBA = color.RGBA{}

// orbGMC estimates camera motion via ORB keypoint matching plus a robust
// homography fit (RANSAC), the standard BoT-SORT "orb" GMC backend.
// Grounded on BoTSORT.cpp's GMC_method_map["orb"] and on gocv's ORB/
// BFMatcher/FindHomography bindings, the same family of gocv calls the
// teacher pack uses for feature-based image analysis.
type orbGMC struct {
	orb      gocv.ORB
	matcher  gocv.BFMatcher
	prevGray gocv.Mat
	prevKP   []gocv.KeyPoint
	prevDesc gocv.Mat
	have     bool
}

func newOrbGMC() *orbGMC {
	return &orbGMC{
		orb:      gocv.NewORB(),
		matcher:  gocv.NewBFMatcher(),
		prevGray: gocv.NewMat(),
		prevDesc: gocv.NewMat(),
	}
}

func (g *orbGMC) Close() {
	g.orb.Close()
	g.matcher.Close()
	g.prevGray.Close()
	g.prevDesc.Close()
}

func (g *orbGMC) Apply(frame Frame, detections []Detection) (Homography, error) {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame.ToMat(), &gray, gocv.ColorBGRToGray)

	mask := detectionMask(gray.Rows(), gray.Cols(), detections)
	defer mask.Close()

	kp, desc := g.orb.DetectAndCompute(gray, mask)
	defer desc.Close()

	if !g.have || g.prevDesc.Empty() || desc.Empty() {
		gray.CopyTo(&g.prevGray)
		g.prevDesc.Close()
		g.prevDesc = desc.Clone()
		g.prevKP = kp
		g.have = true
		return identityHomography(), nil
	}

	matches := g.matcher.KnnMatch(desc, g.prevDesc, 2)

	var srcPts, dstPts []gocv.Point2f
	for _, m := range matches {
		if len(m) < 2 {
			continue
		}
		if m[0].Distance >= 0.75*m[1].Distance {
			continue
		}
		cur := kp[m[0].QueryIdx]
		prev := g.prevKP[m[0].TrainIdx]
		srcPts = append(srcPts, gocv.Point2f{X: prev.X, Y: prev.Y})
		dstPts = append(dstPts, gocv.Point2f{X: cur.X, Y: cur.Y})
	}

	h := identityHomography()
	if len(srcPts) >= 4 {
		srcMat := gocv.NewPoint2fVectorFromPoints(srcPts)
		dstMat := gocv.NewPoint2fVectorFromPoints(dstPts)
		defer srcMat.Close()
		defer dstMat.Close()

		maskOut := gocv.NewMat()
		defer maskOut.Close()

		homMat := gocv.FindHomography(srcMat.ToMat(), dstMat.ToMat(), gocv.HomographyMethodRANSAC, 3, &maskOut, 2000, 0.995)
		defer homMat.Close()

		if !homMat.Empty() && homMat.Rows() == 3 && homMat.Cols() == 3 {
			for i := 0; i < 3; i++ {
				for j := 0; j < 3; j++ {
					h[i][j] = float32(homMat.GetDoubleAt(i, j))
				}
			}
		}
	}

	gray.CopyTo(&g.prevGray)
	g.prevDesc.Close()
	g.prevDesc = desc.Clone()
	g.prevKP = kp

	return h, nil
}

// detectionMask returns a frame-sized mask with detection boxes zeroed out,
// so ORB features are only found on the (assumed static) background.
func detectionMask(rows, cols int, detections []Detection) gocv.Mat {
	mask := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8U)
	mask.SetTo(gocv.NewScalar(255, 0, 0, 0))
	for _, d := range detections {
		tlbr := d.BBox.ToTLBR()
		r := image.Rect(
			clampInt(int(tlbr[0]), 0, cols),
			clampInt(int(tlbr[1]), 0, rows),
			clampInt(int(tlbr[2]), 0, cols),
			clampInt(int(tlbr[3]), 0, rows),
		)
		gocv.Rectangle(&mask, r, blackRGBA, -1)
	}
	return mask
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
