package botsort

import "testing"

func TestIoUIdenticalBoxes(t *testing.T) {
	a := TLBR{10, 10, 50, 50}
	if got := IoU(a, a); got != 1 {
		t.Errorf("expected IoU 1 for identical boxes, got %v", got)
	}
}

func TestIoUDisjointBoxes(t *testing.T) {
	a := TLBR{0, 0, 10, 10}
	b := TLBR{100, 100, 110, 110}
	if got := IoU(a, b); got != 0 {
		t.Errorf("expected IoU 0 for disjoint boxes, got %v", got)
	}
}

func TestIoUPartialOverlap(t *testing.T) {
	a := TLBR{0, 0, 10, 10}
	b := TLBR{5, 0, 15, 10}
	got := IoU(a, b)
	if got <= 0 || got >= 1 {
		t.Errorf("expected partial overlap IoU in (0,1), got %v", got)
	}
}

func TestTLWHTLBRRoundTrip(t *testing.T) {
	box := TLWH{5, 6, 20, 30}
	back := box.ToTLBR().ToTLWH()
	if back != box {
		t.Errorf("expected round trip %v, got %v", box, back)
	}
}

func TestClampTLWH(t *testing.T) {
	box := TLWH{-5, -5, 1000, 1000}
	clamped := clampTLWH(box, 640, 480)

	if clamped.X() != 0 || clamped.Y() != 0 {
		t.Errorf("expected clamped origin at (0,0), got (%v,%v)", clamped.X(), clamped.Y())
	}
	if clamped.Width() != 639 || clamped.Height() != 479 {
		t.Errorf("expected clamped dims (639,479), got (%v,%v)", clamped.Width(), clamped.Height())
	}
}
