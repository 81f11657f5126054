package botsort

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StateMean is the 8-dimensional Kalman state (cx, cy, a, h, vx, vy, va, vh).
type StateMean [8]float32

// Covariance is the 8x8 Kalman state covariance.
type Covariance struct {
	*mat.Dense
}

// KalmanFilter is an 8-state constant-velocity filter shared by all tracks;
// it holds no per-track state itself. Grounded on the teacher's
// tracker/kalmanfilter.go, generalized to take frame_rate into the motion
// model's dt per spec §4.1 ("dt = 1/frame_rate") rather than the teacher's
// fixed dt=1.
type KalmanFilter struct {
	stdWeightPosition float32
	stdWeightVelocity float32
	motionMat         *mat.Dense
	updateMat         *mat.Dense
}

// Default standard-deviation weights per spec §6.
const (
	DefaultStdWeightPosition = 1.0 / 20
	DefaultStdWeightVelocity = 1.0 / 160
)

// NewKalmanFilter builds a filter for the given frame rate and std weights.
func NewKalmanFilter(frameRate float32, stdWeightPosition, stdWeightVelocity float32) *KalmanFilter {
	const ndim = 4
	dt := float32(1.0)
	if frameRate > 0 {
		dt = 1.0 / frameRate
	}

	motionMat := mat.NewDense(8, 8, nil)
	for i := 0; i < 8; i++ {
		motionMat.Set(i, i, 1.0)
	}
	for i := 0; i < ndim; i++ {
		motionMat.Set(i, ndim+i, float64(dt))
	}

	updateMat := mat.NewDense(4, 8, nil)
	for i := 0; i < 4; i++ {
		updateMat.Set(i, i, 1.0)
	}

	return &KalmanFilter{
		stdWeightPosition: stdWeightPosition,
		stdWeightVelocity: stdWeightVelocity,
		motionMat:         motionMat,
		updateMat:         updateMat,
	}
}

// Initiate sets the mean/covariance from a single XYAH measurement.
func (kf *KalmanFilter) Initiate(mean *StateMean, cov *Covariance, measurement XYAH) {
	for i := 0; i < 4; i++ {
		mean[i] = measurement[i]
	}
	for i := 4; i < 8; i++ {
		mean[i] = 0
	}

	h := measurement[3]
	std := [8]float32{
		2 * kf.stdWeightPosition * h,
		2 * kf.stdWeightPosition * h,
		1e-2,
		2 * kf.stdWeightPosition * h,
		10 * kf.stdWeightVelocity * h,
		10 * kf.stdWeightVelocity * h,
		1e-5,
		10 * kf.stdWeightVelocity * h,
	}

	if cov.Dense == nil {
		cov.Dense = mat.NewDense(8, 8, nil)
	}
	for i := 0; i < 8; i++ {
		cov.Set(i, i, float64(std[i]*std[i]))
	}
}

// Predict advances mean/covariance one time step. Process noise is
// recomputed from the track's current height before applying, per §4.1.
func (kf *KalmanFilter) Predict(mean *StateMean, cov *Covariance) {
	h := mean[3]
	std := [8]float32{
		kf.stdWeightPosition * h,
		kf.stdWeightPosition * h,
		1e-2,
		kf.stdWeightPosition * h,
		kf.stdWeightVelocity * h,
		kf.stdWeightVelocity * h,
		1e-5,
		kf.stdWeightVelocity * h,
	}

	motionCov := mat.NewDense(8, 8, nil)
	for i := 0; i < 8; i++ {
		motionCov.Set(i, i, float64(std[i]*std[i]))
	}

	meanVec := mat.NewVecDense(8, nil)
	for i := 0; i < 8; i++ {
		meanVec.SetVec(i, float64(mean[i]))
	}
	meanMat := mat.NewDense(8, 1, meanVec.RawVector().Data)
	meanMat.Mul(kf.motionMat, meanMat)
	for i := 0; i < 8; i++ {
		mean[i] = float32(meanMat.At(i, 0))
	}

	c := cov.Dense
	c.Mul(kf.motionMat, c)
	c.Mul(c, kf.motionMat.T())
	c.Add(c, motionCov)
}

// Update performs the measurement update via Cholesky solve (no explicit
// matrix inverse, per §4.1). If factorization fails, the covariance is left
// unchanged and an error is returned so the caller can record a
// NumericDegenerate diagnostic and skip the update.
func (kf *KalmanFilter) Update(mean *StateMean, cov *Covariance, measurement XYAH) error {
	projMean, projCov := kf.project(mean, cov)

	chol := mat.Cholesky{}
	if ok := chol.Factorize(projCov); !ok {
		return errors.New("kalman: failed to factorize projected covariance")
	}

	b := mat.NewDense(8, 4, nil)
	b.Mul(cov.Dense, kf.updateMat.T())

	var kalmanGain mat.Dense
	if err := chol.SolveTo(&kalmanGain, b.T()); err != nil {
		return fmt.Errorf("kalman: failed to compute gain: %w", err)
	}

	innovation := make([]float64, 4)
	for i := 0; i < 4; i++ {
		innovation[i] = float64(measurement[i]) - projMean[i]
	}
	innovationVec := mat.NewVecDense(4, innovation)

	delta := mat.NewVecDense(8, nil)
	delta.MulVec(kalmanGain.T(), innovationVec)
	for i := 0; i < 8; i++ {
		mean[i] += float32(delta.AtVec(i))
	}

	tmp := mat.NewDense(8, 4, nil)
	tmp.Mul(kalmanGain.T(), projCov)
	tmp2 := mat.NewDense(8, 8, nil)
	tmp2.Mul(tmp, &kalmanGain)

	newCov := mat.NewDense(8, 8, nil)
	newCov.Sub(cov.Dense, tmp2)
	cov.Dense = newCov

	return nil
}

// project maps mean/covariance into measurement (XYAH) space.
func (kf *KalmanFilter) project(mean *StateMean, cov *Covariance) (projMean []float64, projCov *mat.SymDense) {
	h := mean[3]
	std := [4]float32{
		kf.stdWeightPosition * h,
		kf.stdWeightPosition * h,
		1e-1,
		kf.stdWeightPosition * h,
	}

	innovationCov := mat.NewSymDense(4, nil)
	for i := 0; i < 4; i++ {
		innovationCov.SetSym(i, i, float64(std[i]*std[i]))
	}

	meanData := make([]float64, 8)
	for i, v := range mean {
		meanData[i] = float64(v)
	}
	meanVec := mat.NewVecDense(8, meanData)

	projMeanVec := mat.NewVecDense(4, nil)
	projMeanVec.MulVec(kf.updateMat, meanVec)

	tmp := mat.NewDense(4, 8, nil)
	tmp.Mul(kf.updateMat, cov.Dense)
	tmp2 := mat.NewDense(4, 4, nil)
	tmp2.Mul(tmp, kf.updateMat.T())

	projCov = mat.NewSymDense(4, nil)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			projCov.SetSym(i, j, tmp2.At(i, j))
		}
	}
	projCov.AddSym(projCov, innovationCov)

	projMean = make([]float64, 4)
	for i := 0; i < 4; i++ {
		projMean[i] = projMeanVec.AtVec(i)
	}

	return projMean, projCov
}

// GatingDistance returns the squared Mahalanobis distance between the
// projected state and each of the given measurements, used by fuse_motion.
// When onlyPosition is true, only the (cx, cy) sub-block is used and the
// caller should compare against the 2-DOF chi-square threshold instead of
// the 4-DOF one.
func (kf *KalmanFilter) GatingDistance(mean *StateMean, cov *Covariance, measurements []XYAH, onlyPosition bool) []float64 {
	projMean, projCov := kf.project(mean, cov)

	dim := 4
	if onlyPosition {
		dim = 2
	}

	sub := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			sub.SetSym(i, j, projCov.At(i, j))
		}
	}

	var chol mat.Cholesky
	ok := chol.Factorize(sub)

	out := make([]float64, len(measurements))
	for i, m := range measurements {
		d := make([]float64, dim)
		for k := 0; k < dim; k++ {
			d[k] = float64(m[k]) - projMean[k]
		}
		dVec := mat.NewVecDense(dim, d)

		if !ok {
			// degenerate covariance: fall back to identity-weighted distance
			var sumSq float64
			for _, v := range d {
				sumSq += v * v
			}
			out[i] = sumSq
			continue
		}

		var z mat.VecDense
		if err := chol.SolveVecTo(&z, dVec); err != nil {
			var sumSq float64
			for _, v := range d {
				sumSq += v * v
			}
			out[i] = sumSq
			continue
		}

		var sumSq float64
		for k := 0; k < dim; k++ {
			sumSq += d[k] * z.AtVec(k)
		}
		out[i] = sumSq
	}

	return out
}
