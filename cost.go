package botsort

// Chi-square 95% quantiles used to gate Mahalanobis distance in fuseMotion,
// per spec §4.4.
const (
	chi2Threshold4DOF = 9.4877
	chi2Threshold2DOF = 5.9915
)

// gatedCost marks a track/detection pair rejected by motion gating. It only
// needs to compare larger than any appearance/proximity threshold in
// fuseIoUWithEmb, not to be a true LAPJV sentinel.
const gatedCost float32 = 1e6

// iouDistance builds the |tracks| x |dets| cost matrix of 1-IoU. Returns an
// empty (n,0) or (0,m) matrix if either side is empty, without allocating,
// per spec §4.4 and §9.
func iouDistance(tracks, dets []*Track) *Matrix {
	m := NewMatrix(len(tracks), len(dets))
	if m.Empty() {
		return m
	}

	for i, t := range tracks {
		tb := t.TLBR()
		for j, d := range dets {
			m.Set(i, j, 1-IoU(tb, d.TLBR()))
		}
	}
	return m
}

// embeddingDistance builds the |tracks| x |dets| cost matrix of
// 1-cos(smooth_feat, embedding), clipped to >= 0. Callers must not invoke
// this when Re-ID is disabled (spec §4.4).
func embeddingDistance(tracks, dets []*Track) *Matrix {
	m := NewMatrix(len(tracks), len(dets))
	if m.Empty() {
		return m
	}

	for i, t := range tracks {
		for j, d := range dets {
			if t.smoothFeat == nil || d.currFeat == nil {
				m.Set(i, j, 1)
				continue
			}
			m.Set(i, j, cosineDistance(t.smoothFeat, d.currFeat))
		}
	}
	return m
}

// fuseScore biases the cost matrix toward high-confidence detections:
// cost' = 1 - (1-cost)*confidence, per spec §4.4.
func fuseScore(cost *Matrix, dets []*Track) {
	if cost.Empty() {
		return
	}
	for i := 0; i < cost.Rows; i++ {
		row := cost.Row(i)
		for j, d := range dets {
			row[j] = 1 - (1-row[j])*d.Score()
		}
	}
}

// fuseMotion gates and re-weights an embedding-distance cost matrix using
// Kalman gating distance: entries beyond the chi-square threshold become
// infeasible (a large sentinel); surviving entries are
// lambda*cost + (1-lambda)*gating_distance. The gating distance is the raw
// squared Mahalanobis distance; it is not normalized, so a surviving entry
// can exceed 1.
func fuseMotion(kf *KalmanFilter, cost *Matrix, tracks, dets []*Track, onlyPosition bool, lambda float32) {
	if cost.Empty() {
		return
	}

	threshold := chi2Threshold4DOF
	if onlyPosition {
		threshold = chi2Threshold2DOF
	}

	measurements := make([]XYAH, len(dets))
	for j, d := range dets {
		measurements[j] = d.TLWH().ToXYAH()
	}

	for i, t := range tracks {
		gating := kf.GatingDistance(&t.mean, &t.cov, measurements, onlyPosition)
		row := cost.Row(i)
		for j, g := range gating {
			if g > threshold {
				row[j] = gatedCost
				continue
			}
			row[j] = lambda*row[j] + (1-lambda)*float32(g)
		}
	}
}

// fuseIoUWithEmb combines geometric and appearance cost per spec §4.4: if
// Re-ID is disabled (embCost empty), the IoU cost is returned unchanged;
// otherwise entries failing either the proximity or appearance gate are
// rejected in the embedding matrix before taking the entrywise minimum.
func fuseIoUWithEmb(iouCost, embCost *Matrix, proximityThresh, appearanceThresh float32) *Matrix {
	if embCost.Empty() {
		return iouCost
	}

	out := iouCost.Clone()
	for i := 0; i < out.Rows; i++ {
		iouRow := iouCost.Row(i)
		embRow := embCost.Row(i)
		outRow := out.Row(i)
		for j := range outRow {
			e := embRow[j]
			if iouRow[j] > proximityThresh || e > appearanceThresh {
				e = 1
			}
			if e < outRow[j] {
				outRow[j] = e
			}
		}
	}
	return out
}
