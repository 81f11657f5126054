package botsort

import "errors"

// AssociationData is the result of solving a gated linear assignment, per
// spec §4.5.
type AssociationData struct {
	Matches         [][2]int
	UnmatchedTracks []int
	UnmatchedDets   []int
}

// linearAssignment solves the dense Jonker-Volgenant assignment problem on
// cost under the given threshold gate. Pairs with cost > thresh never
// appear as matches (spec §4.5); an empty cost matrix returns all indices
// unmatched without invoking the solver (§7 "AssignmentInfeasible ... is
// not an error").
func linearAssignment(cost *Matrix, thresh float32) AssociationData {
	var out AssociationData

	if cost.Empty() {
		for i := 0; i < cost.Rows; i++ {
			out.UnmatchedTracks = append(out.UnmatchedTracks, i)
		}
		for j := 0; j < cost.Cols; j++ {
			out.UnmatchedDets = append(out.UnmatchedDets, j)
		}
		return out
	}

	nRows, nCols := cost.Rows, cost.Cols
	n := nRows + nCols
	sentinel := float64(thresh) + 1e-5

	padded := make([][]float64, n)
	for i := range padded {
		padded[i] = make([]float64, n)
		for j := range padded[i] {
			padded[i][j] = sentinel
		}
	}
	for i := 0; i < nRows; i++ {
		for j := 0; j < nCols; j++ {
			c := float64(cost.At(i, j))
			if c > float64(thresh) {
				c = sentinel
			}
			padded[i][j] = c
		}
	}
	for i := nRows; i < n; i++ {
		for j := nCols; j < n; j++ {
			padded[i][j] = 0
		}
	}

	x := make([]int, n)
	y := make([]int, n)

	if err := lapjvInternal(n, padded, x, y); err != nil {
		// Numerically infeasible padded matrix: treat as no matches rather
		// than propagating a fatal error out of the tracker (spec §5: a
		// frame must always complete).
		for i := 0; i < nRows; i++ {
			out.UnmatchedTracks = append(out.UnmatchedTracks, i)
		}
		for j := 0; j < nCols; j++ {
			out.UnmatchedDets = append(out.UnmatchedDets, j)
		}
		return out
	}

	rowsol := make([]int, nRows)
	colAssigned := make([]bool, nCols)

	for i := 0; i < nRows; i++ {
		j := x[i]
		if j >= nCols || float32(padded[i][j]) > thresh {
			rowsol[i] = -1
			continue
		}
		rowsol[i] = j
		colAssigned[j] = true
	}

	for i, j := range rowsol {
		if j < 0 {
			out.UnmatchedTracks = append(out.UnmatchedTracks, i)
			continue
		}
		out.Matches = append(out.Matches, [2]int{i, j})
	}
	for j := 0; j < nCols; j++ {
		if !colAssigned[j] {
			out.UnmatchedDets = append(out.UnmatchedDets, j)
		}
	}

	return out
}

// lapjvInternal is the Jonker-Volgenant solver: column reduction & reduction
// transfer, augmenting row reduction, then shortest-augmenting-path. Ported
// from the teacher's tracker/lapjv.go (already a pure function over a
// contiguous matrix, per spec §9), renamed to the spec's vocabulary.
func lapjvInternal(n int, cost [][]float64, x, y []int) error {
	freeRows := make([]int, n)
	v := make([]float64, n)

	free := ccrrtDense(n, cost, freeRows, x, y, v)

	for i := 0; free > 0 && i < 2; i++ {
		free = carrDense(n, cost, free, freeRows, x, y, v)
	}

	if free > 0 {
		return caDense(n, cost, free, freeRows, x, y, v)
	}
	return nil
}

func ccrrtDense(n int, cost [][]float64, freeRows, x, y []int, v []float64) int {
	const large = 1e9

	unique := make([]bool, n)
	for i := 0; i < n; i++ {
		x[i] = -1
		v[i] = large
		y[i] = 0
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if c := cost[i][j]; c < v[j] {
				v[j] = c
				y[j] = i
			}
		}
	}

	for i := range unique {
		unique[i] = true
	}

	for j := n; j > 0; {
		j--
		i := y[j]
		if x[i] < 0 {
			x[i] = j
		} else {
			unique[i] = false
			y[j] = -1
		}
	}

	nFree := 0
	for i := 0; i < n; i++ {
		if x[i] < 0 {
			freeRows[nFree] = i
			nFree++
			continue
		}
		if !unique[i] {
			continue
		}
		j := x[i]
		minVal := large
		for j2 := 0; j2 < n; j2++ {
			if j2 == j {
				continue
			}
			if c := cost[i][j2] - v[j2]; c < minVal {
				minVal = c
			}
		}
		v[j] -= minVal
	}

	return nFree
}

func carrDense(n int, cost [][]float64, nFreeRows int, freeRows, x, y []int, v []float64) int {
	const large = 1e9

	current := 0
	newFreeRows := 0
	rrCnt := 0

	for current < nFreeRows {
		rrCnt++
		freeI := freeRows[current]
		current++

		j1 := 0
		v1 := cost[freeI][0] - v[0]
		j2 := -1
		v2 := large

		for j := 1; j < n; j++ {
			c := cost[freeI][j] - v[j]
			if c < v2 {
				if c >= v1 {
					v2 = c
					j2 = j
				} else {
					v2 = v1
					v1 = c
					j2 = j1
					j1 = j
				}
			}
		}

		i0 := y[j1]
		v1New := v[j1] - (v2 - v1)
		v1Lowers := v1New < v[j1]

		if rrCnt < current*n {
			if v1Lowers {
				v[j1] = v1New
			} else if i0 >= 0 && j2 >= 0 {
				j1 = j2
				i0 = y[j2]
			}

			if i0 >= 0 {
				if v1Lowers {
					current--
					freeRows[current] = i0
				} else {
					freeRows[newFreeRows] = i0
					newFreeRows++
				}
			}
		} else if i0 >= 0 {
			freeRows[newFreeRows] = i0
			newFreeRows++
		}

		x[freeI] = j1
		y[j1] = freeI
	}

	return newFreeRows
}

func findDense(n, lo int, d []float64, cols, y []int) int {
	hi := lo + 1
	mind := d[cols[lo]]

	for k := hi; k < n; k++ {
		j := cols[k]
		if d[j] <= mind {
			if d[j] < mind {
				hi = lo
				mind = d[j]
			}
			cols[k] = cols[hi]
			cols[hi] = j
			hi++
		}
	}

	return hi
}

func scanDense(n int, cost [][]float64, lo, hi *int, d []float64, cols, pred, y []int, v []float64) int {
	for *lo != *hi {
		j := cols[*lo]
		*lo++
		i := y[j]
		mind := d[j]
		h := cost[i][j] - v[j] - mind

		for k := *hi; k < n; k++ {
			j = cols[k]
			credIJ := cost[i][j] - v[j] - h

			if credIJ < d[j] {
				d[j] = credIJ
				pred[j] = i

				if credIJ == mind {
					if y[j] < 0 {
						return j
					}
					cols[k] = cols[*hi]
					cols[*hi] = j
					(*hi)++
				}
			}
		}
	}

	return -1
}

func findPathDense(n int, cost [][]float64, startI int, y []int, v []float64, pred []int) int {
	lo, hi := 0, 0
	finalJ := -1
	nReady := 0
	cols := make([]int, n)
	d := make([]float64, n)

	for i := 0; i < n; i++ {
		cols[i] = i
		pred[i] = startI
		d[i] = cost[startI][i] - v[i]
	}

	for finalJ == -1 {
		if lo == hi {
			nReady = lo
			hi = findDense(n, lo, d, cols, y)
			for k := lo; k < hi; k++ {
				if j := cols[k]; y[j] < 0 {
					finalJ = j
				}
			}
		}
		if finalJ == -1 {
			finalJ = scanDense(n, cost, &lo, &hi, d, cols, pred, y, v)
		}
	}

	mind := d[cols[lo]]
	for k := 0; k < nReady; k++ {
		j := cols[k]
		v[j] += d[j] - mind
	}

	return finalJ
}

func caDense(n int, cost [][]float64, nFreeRows int, freeRows, x, y []int, v []float64) error {
	pred := make([]int, n)

	for _, freeI := range freeRows[:nFreeRows] {
		i := -1
		k := 0

		j := findPathDense(n, cost, freeI, y, v, pred)
		if j < 0 || j >= n {
			return errors.New("lapjv: shortest augmenting path search failed")
		}

		for i != freeI {
			i = pred[j]
			y[j] = i
			j, x[i] = x[i], j
			k++
			if k >= n {
				return errors.New("lapjv: augmenting path exceeded matrix size")
			}
		}
	}

	return nil
}
