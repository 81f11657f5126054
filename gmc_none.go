package botsort

// noneGMC always reports identity motion. It exists so a caller can select
// GMCNone explicitly, or leave GMCMethod unset, without special-casing a nil
// backend anywhere in Tracker.
type noneGMC struct{}

func (noneGMC) Apply(Frame, []Detection) (Homography, error) {
	return identityHomography(), nil
}

func (noneGMC) Close() {}
