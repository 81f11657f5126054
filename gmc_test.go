package botsort

import "testing"

func TestNewGMCUnknownMethod(t *testing.T) {
	if _, err := NewGMC("not-a-method"); err == nil {
		t.Errorf("expected an error for an unknown gmc_method")
	}
}

func TestNewGMCNoneIsIdentity(t *testing.T) {
	backend, err := NewGMC(GMCNone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer backend.Close()

	h, err := backend.Apply(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h != identityHomography() {
		t.Errorf("expected identity homography from the none backend, got %v", h)
	}
}

func TestNewGMCEmptyMethodDefaultsToNone(t *testing.T) {
	backend, err := NewGMC("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer backend.Close()

	if _, ok := backend.(noneGMC); !ok {
		t.Errorf("expected an empty gmc_method to resolve to the none backend")
	}
}

// TestMultiGMCIdentityIsNoOp is property 9: with gmc_method=none, a track's
// mean after multi_gmc equals its mean before.
func TestMultiGMCIdentityIsNoOp(t *testing.T) {
	kf := NewKalmanFilter(30, DefaultStdWeightPosition, DefaultStdWeightVelocity)
	tr := trackAt(kf, TLWH{10, 20, 30, 40}, 0.9)

	before := tr.mean
	multiGMC([]*Track{tr}, identityHomography())

	if tr.mean != before {
		t.Errorf("expected mean unchanged under identity homography: before %v, after %v", before, tr.mean)
	}
}

func TestMultiGMCTranslatesPosition(t *testing.T) {
	kf := NewKalmanFilter(30, DefaultStdWeightPosition, DefaultStdWeightVelocity)
	tr := trackAt(kf, TLWH{10, 20, 30, 40}, 0.9)

	h := identityHomography()
	h[0][2] = 5
	h[1][2] = -3

	cx, cy := tr.mean[0], tr.mean[1]
	multiGMC([]*Track{tr}, h)

	if got, want := tr.mean[0], cx+5; got != want {
		t.Errorf("expected cx translated to %v, got %v", want, got)
	}
	if got, want := tr.mean[1], cy-3; got != want {
		t.Errorf("expected cy translated to %v, got %v", want, got)
	}
}
