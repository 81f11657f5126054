package botsort

import "fmt"

// GMC method names accepted by NewGMC, per spec §4.3/§6.
const (
	GMCOrb        = "orb"
	GMCSparseFlow = "sparse_optical_flow"
	GMCEcc        = "ecc"
	GMCNone       = "none"
)

// NewGMC constructs a GMC backend by name. Unknown names return an error;
// callers that want to tolerate a bad config value should fall back to
// GMCNone themselves (this mirrors how the tracker treats a live backend
// failure per §7: identity homography, not a fatal error).
func NewGMC(method string) (GMCBackend, error) {
	switch method {
	case GMCOrb:
		return newOrbGMC(), nil
	case GMCSparseFlow:
		return newSparseFlowGMC(), nil
	case GMCEcc:
		return newEccGMC(), nil
	case GMCNone, "":
		return noneGMC{}, nil
	default:
		return nil, fmt.Errorf("botsort: unknown gmc_method %q", method)
	}
}
