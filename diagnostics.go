package botsort

import "sync"

// Kind categorizes a non-fatal error encountered while processing a frame,
// per spec §7. No error kind aborts the tracker; every frame returns the
// current active-track list regardless.
type Kind int

const (
	// KindInvalidInput marks a detection rejected at the frame boundary
	// (negative dimensions, NaN confidence, embedding dimension mismatch).
	KindInvalidInput Kind = iota
	// KindNumericDegenerate marks a skipped Kalman update (Cholesky failure).
	KindNumericDegenerate
	// KindBackendFailure marks a GMC or feature-extractor call that errored.
	KindBackendFailure
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNumericDegenerate:
		return "numeric_degenerate"
	case KindBackendFailure:
		return "backend_failure"
	default:
		return "unknown"
	}
}

const diagnosticRingSize = 64

// Diagnostic is one recorded non-fatal event.
type Diagnostic struct {
	Kind    Kind
	Detail  string
	FrameID int
}

// DiagnosticsSnapshot is a point-in-time read of the tracker's error
// counters and most recent events.
type DiagnosticsSnapshot struct {
	Counts [3]uint64
	Recent []Diagnostic
}

// diagnostics accumulates per-kind counts and a small ring of recent events.
// No logging library is wired here: spec §1 places logging on the external
// side of the interface boundary, same as the detector and feature
// extractor, so this module only counts and the caller decides how (or
// whether) to log.
type diagnostics struct {
	mu     sync.Mutex
	counts [3]uint64
	ring   []Diagnostic
	next   int
}

func (d *diagnostics) record(kind Kind, detail string, frameID int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.counts[kind]++

	entry := Diagnostic{Kind: kind, Detail: detail, FrameID: frameID}
	if len(d.ring) < diagnosticRingSize {
		d.ring = append(d.ring, entry)
		return
	}
	d.ring[d.next] = entry
	d.next = (d.next + 1) % diagnosticRingSize
}

func (d *diagnostics) snapshot() DiagnosticsSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := DiagnosticsSnapshot{Counts: d.counts}
	out.Recent = append(out.Recent, d.ring...)
	return out
}
