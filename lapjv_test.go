package botsort

import "testing"

func matrixFrom(rows, cols int, data []float32) *Matrix {
	m := NewMatrix(rows, cols)
	copy(m.data, data)
	return m
}

func TestLinearAssignmentSquareMatrix(t *testing.T) {
	cost := matrixFrom(4, 4, []float32{
		4, 1, 3, 2,
		2, 0, 5, 3,
		3, 2, 2, 3,
		2, 3, 3, 2,
	})

	assoc := linearAssignment(cost, 1000)

	if len(assoc.Matches) != 4 {
		t.Fatalf("expected 4 matches, got %d", len(assoc.Matches))
	}
	if len(assoc.UnmatchedTracks) != 0 || len(assoc.UnmatchedDets) != 0 {
		t.Errorf("expected no unmatched rows/cols, got %v / %v", assoc.UnmatchedTracks, assoc.UnmatchedDets)
	}

	seenRows := make(map[int]bool)
	seenCols := make(map[int]bool)
	for _, m := range assoc.Matches {
		if seenRows[m[0]] || seenCols[m[1]] {
			t.Errorf("expected a one-to-one assignment, row/col reused by match %v", m)
		}
		seenRows[m[0]] = true
		seenCols[m[1]] = true
	}
}

// TestLinearAssignmentOptimality is property 7, restricted to exhaustively
// checkable matrix sizes: the solver's total cost over matched pairs must
// equal the brute-force optimum.
func TestLinearAssignmentOptimality(t *testing.T) {
	cases := [][][]float32{
		{{1, 2}, {2, 1}},
		{{5, 9, 1}, {10, 3, 2}, {8, 7, 4}},
		{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}},
	}

	for ci, rows := range cases {
		n := len(rows)
		flat := make([]float32, 0, n*n)
		for _, r := range rows {
			flat = append(flat, r...)
		}
		cost := matrixFrom(n, n, flat)

		assoc := linearAssignment(cost, 1e6)
		if len(assoc.Matches) != n {
			t.Fatalf("case %d: expected %d matches, got %d", ci, n, len(assoc.Matches))
		}

		var gotCost float32
		for _, m := range assoc.Matches {
			gotCost += rows[m[0]][m[1]]
		}

		wantCost := bruteForceOptimum(rows)
		if diff := gotCost - wantCost; diff > 1e-3 || diff < -1e-3 {
			t.Errorf("case %d: expected optimum %v, got %v", ci, wantCost, gotCost)
		}
	}
}

// bruteForceOptimum enumerates all permutations of columns for a small
// square cost matrix and returns the minimum total cost.
func bruteForceOptimum(rows [][]float32) float32 {
	n := len(rows)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	best := float32(1e18)
	var permute func(k int)
	permute = func(k int) {
		if k == n {
			var total float32
			for i, p := range perm {
				total += rows[i][p]
			}
			if total < best {
				best = total
			}
			return
		}
		for i := k; i < n; i++ {
			perm[k], perm[i] = perm[i], perm[k]
			permute(k + 1)
			perm[k], perm[i] = perm[i], perm[k]
		}
	}
	permute(0)
	return best
}

func TestLinearAssignmentRespectsThreshold(t *testing.T) {
	cost := matrixFrom(2, 2, []float32{
		0.1, 0.9,
		0.9, 0.1,
	})

	assoc := linearAssignment(cost, 0.5)
	if len(assoc.Matches) != 2 {
		t.Fatalf("expected 2 matches under a permissive threshold, got %d", len(assoc.Matches))
	}

	assoc = linearAssignment(cost, 0.05)
	if len(assoc.Matches) != 0 {
		t.Errorf("expected 0 matches once the threshold excludes every entry, got %d", len(assoc.Matches))
	}
	if len(assoc.UnmatchedTracks) != 2 || len(assoc.UnmatchedDets) != 2 {
		t.Errorf("expected all rows/cols unmatched, got %v / %v", assoc.UnmatchedTracks, assoc.UnmatchedDets)
	}
}

// TestLinearAssignmentGateMonotonicity is property 8: raising match_thresh
// never decreases the number of matches on a fixed cost matrix.
func TestLinearAssignmentGateMonotonicity(t *testing.T) {
	cost := matrixFrom(3, 3, []float32{
		0.2, 0.8, 0.9,
		0.8, 0.3, 0.7,
		0.9, 0.7, 0.4,
	})

	prev := -1
	for _, thresh := range []float32{0.1, 0.3, 0.5, 0.7, 1.0} {
		assoc := linearAssignment(cost, thresh)
		if len(assoc.Matches) < prev {
			t.Errorf("thresh %v: expected match count to be non-decreasing, got %d after %d", thresh, len(assoc.Matches), prev)
		}
		prev = len(assoc.Matches)
	}
}

func TestLinearAssignmentEmptyMatrix(t *testing.T) {
	cost := NewMatrix(3, 0)
	assoc := linearAssignment(cost, 0.5)

	if len(assoc.Matches) != 0 {
		t.Errorf("expected no matches on an empty matrix, got %d", len(assoc.Matches))
	}
	if len(assoc.UnmatchedTracks) != 3 {
		t.Errorf("expected 3 unmatched tracks, got %d", len(assoc.UnmatchedTracks))
	}
}

func TestLinearAssignmentRectangularMatrix(t *testing.T) {
	cost := matrixFrom(2, 3, []float32{
		0.1, 0.9, 0.9,
		0.9, 0.1, 0.9,
	})

	assoc := linearAssignment(cost, 0.5)
	if len(assoc.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(assoc.Matches))
	}
	if len(assoc.UnmatchedDets) != 1 {
		t.Errorf("expected 1 unmatched detection column, got %d", len(assoc.UnmatchedDets))
	}
}
