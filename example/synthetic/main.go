package main

import (
	"flag"
	"fmt"
	"log"

	botsort "github.com/corvid-vision/botsort"
	"gocv.io/x/gocv"
)

// syntheticFrame is a hardware-free Frame implementation: it only reports a
// resolution, since gmc_method=none never touches ToMat.
type syntheticFrame struct{ cols, rows int }

func (f syntheticFrame) Cols() int       { return f.cols }
func (f syntheticFrame) Rows() int       { return f.rows }
func (f syntheticFrame) ToMat() gocv.Mat { return gocv.Mat{} }

// scenario is one named synthetic sequence: a function producing the
// detections to feed the tracker on a given frame index, and the number of
// frames to run it for.
type scenario struct {
	name   string
	frames int
	build  func(frame int) []botsort.Detection
}

// scenarios mirrors the six tracking situations a real deployment hits:
// a steady single object, an occlusion short enough to survive the lost
// buffer, one long enough to exceed it, a detector that occasionally drops
// below the high-confidence threshold, a one-off false positive, and two
// overlapping objects.
var scenarios = []scenario{
	{
		name:   "steady-single-object",
		frames: 10,
		build: func(frame int) []botsort.Detection {
			return []botsort.Detection{
				{BBox: botsort.TLWH{100, 200, 50, 100}, Confidence: 0.9},
			}
		},
	},
	{
		name:   "occlusion-and-reappearance",
		frames: 21,
		build: func(frame int) []botsort.Detection {
			if frame >= 5 && frame < 20 {
				return nil
			}
			return []botsort.Detection{
				{BBox: botsort.TLWH{100, 200, 50, 100}, Confidence: 0.9},
			}
		},
	},
	{
		name:   "lost-track-exceeds-buffer",
		frames: 40,
		build: func(frame int) []botsort.Detection {
			if frame >= 5 && frame < 39 {
				return nil
			}
			return []botsort.Detection{
				{BBox: botsort.TLWH{100, 200, 50, 100}, Confidence: 0.9},
			}
		},
	},
	{
		name:   "low-confidence-rescue",
		frames: 10,
		build: func(frame int) []botsort.Detection {
			conf := float32(0.9)
			if frame%2 == 1 {
				conf = 0.3
			}
			return []botsort.Detection{
				{BBox: botsort.TLWH{100, 200, 50, 100}, Confidence: conf},
			}
		},
	},
	{
		name:   "one-off-false-positive",
		frames: 3,
		build: func(frame int) []botsort.Detection {
			if frame == 1 {
				return []botsort.Detection{
					{BBox: botsort.TLWH{300, 300, 50, 100}, Confidence: 0.9},
				}
			}
			return nil
		},
	},
	{
		name:   "two-overlapping-objects",
		frames: 5,
		build: func(frame int) []botsort.Detection {
			a := botsort.Detection{BBox: botsort.TLWH{100, 0, 50, 100}, Confidence: 0.9}
			b := botsort.Detection{BBox: botsort.TLWH{130, 0, 50, 100}, Confidence: 0.9}
			if frame%2 == 0 {
				return []botsort.Detection{a, b}
			}
			return []botsort.Detection{b, a}
		},
	},
}

func runScenario(s scenario, cfg botsort.Config) error {
	tracker, err := botsort.New(cfg)
	if err != nil {
		return fmt.Errorf("creating tracker: %w", err)
	}
	defer tracker.Close()

	frame := syntheticFrame{640, 480}

	log.Printf("=== scenario: %s ===", s.name)
	for f := 0; f < s.frames; f++ {
		dets := s.build(f)
		out := tracker.Track(frame, dets)

		log.Printf("frame %2d: %d detection(s) in, %d active track(s) out", f, len(dets), len(out))
		for _, info := range out {
			log.Printf("  track %d  state=%s  bbox=%v  score=%.2f", info.TrackID, info.State, info.BBox, info.Score)
		}
	}

	diag := tracker.Diagnostics()
	log.Printf("diagnostics: invalid_input=%d numeric_degenerate=%d backend_failure=%d",
		diag.Counts[botsort.KindInvalidInput], diag.Counts[botsort.KindNumericDegenerate], diag.Counts[botsort.KindBackendFailure])

	return nil
}

func main() {
	// disable logging timestamps, matching the demo binaries this was
	// modeled on
	log.SetFlags(0)

	name := flag.String("scenario", "", "name of a single scenario to run (default: run all of them)")
	trackBuffer := flag.Int("track-buffer", 30, "frames to retain a Lost track before reaping it")
	flag.Parse()

	cfg := botsort.DefaultConfig()
	cfg.TrackBuffer = *trackBuffer

	if *name != "" {
		for _, s := range scenarios {
			if s.name == *name {
				if err := runScenario(s, cfg); err != nil {
					log.Fatalf("scenario %s: %v", s.name, err)
				}
				return
			}
		}
		log.Fatalf("unknown scenario %q", *name)
	}

	for _, s := range scenarios {
		if err := runScenario(s, cfg); err != nil {
			log.Fatalf("scenario %s: %v", s.name, err)
		}
	}
}
