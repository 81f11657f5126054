package botsort

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func floatsEqual32(a, b []float32, epsilon float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if diff := a[i] - b[i]; diff > epsilon || diff < -epsilon {
			return false
		}
	}
	return true
}

// TestKalmanInitiate checks the initial mean/covariance seeded from a single
// measurement, mirroring the teacher's TestKalmanFilter structure.
func TestKalmanInitiate(t *testing.T) {
	kf := NewKalmanFilter(30, DefaultStdWeightPosition, DefaultStdWeightVelocity)

	var mean StateMean
	cov := &Covariance{mat.NewDense(8, 8, nil)}

	kf.Initiate(&mean, cov, XYAH{100, 200, 1, 50})

	want := StateMean{100, 200, 1, 50, 0, 0, 0, 0}
	if !floatsEqual32(mean[:], want[:], 1e-4) {
		t.Errorf("expected mean %v, got %v", want, mean)
	}

	wantVar0 := float64(2 * DefaultStdWeightPosition * 50)
	wantVar0 *= wantVar0
	if diff := cov.At(0, 0) - wantVar0; math.Abs(diff) > 1e-4 {
		t.Errorf("expected cov[0][0] %v, got %v", wantVar0, cov.At(0, 0))
	}
}

// TestKalmanPredictUpdateRoundTrip exercises predict then update and checks
// the state converges toward a stationary measurement.
func TestKalmanPredictUpdateRoundTrip(t *testing.T) {
	kf := NewKalmanFilter(30, DefaultStdWeightPosition, DefaultStdWeightVelocity)

	var mean StateMean
	cov := &Covariance{mat.NewDense(8, 8, nil)}
	kf.Initiate(&mean, cov, XYAH{100, 200, 1, 50})

	for i := 0; i < 20; i++ {
		kf.Predict(&mean, cov)
		if err := kf.Update(&mean, cov, XYAH{100, 200, 1, 50}); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}

	got := XYAH{mean[0], mean[1], mean[2], mean[3]}
	want := XYAH{100, 200, 1, 50}
	if !floatsEqual32(got[:], want[:], 1e-2) {
		t.Errorf("expected converged xyah %v, got %v", want, got)
	}
}

// TestKalmanTLBRRoundTrip is property 6: tlbr -> state -> tlbr within
// epsilon on an unchanged track.
func TestKalmanTLBRRoundTrip(t *testing.T) {
	box := TLWH{10, 20, 30, 40}
	xyah := box.ToXYAH()
	back := FromXYAH(xyah)

	if !floatsEqual32(box[:], back[:], 1e-4) {
		t.Errorf("round trip mismatch: started %v, got back %v", box, back)
	}
}

// TestKalmanGatingDistanceZeroAtMean checks that a measurement equal to the
// projected mean gates to zero distance.
func TestKalmanGatingDistanceZeroAtMean(t *testing.T) {
	kf := NewKalmanFilter(30, DefaultStdWeightPosition, DefaultStdWeightVelocity)

	var mean StateMean
	cov := &Covariance{mat.NewDense(8, 8, nil)}
	kf.Initiate(&mean, cov, XYAH{100, 200, 1, 50})

	dist := kf.GatingDistance(&mean, cov, []XYAH{{100, 200, 1, 50}}, false)
	if len(dist) != 1 {
		t.Fatalf("expected 1 distance, got %d", len(dist))
	}
	if dist[0] > 1e-6 {
		t.Errorf("expected ~0 gating distance at the mean, got %v", dist[0])
	}
}

// TestKalmanGatingDistanceGrowsWithOffset sanity-checks monotonicity: a
// farther measurement never gates to a smaller distance.
func TestKalmanGatingDistanceGrowsWithOffset(t *testing.T) {
	kf := NewKalmanFilter(30, DefaultStdWeightPosition, DefaultStdWeightVelocity)

	var mean StateMean
	cov := &Covariance{mat.NewDense(8, 8, nil)}
	kf.Initiate(&mean, cov, XYAH{100, 200, 1, 50})

	near := kf.GatingDistance(&mean, cov, []XYAH{{105, 200, 1, 50}}, false)[0]
	far := kf.GatingDistance(&mean, cov, []XYAH{{150, 200, 1, 50}}, false)[0]

	if far <= near {
		t.Errorf("expected farther measurement to gate higher: near=%v far=%v", near, far)
	}
}
