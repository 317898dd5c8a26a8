package learning

import (
	"encoding/binary"
	"errors"
	"math"
)

// FeatureNames is the fixed 8-feature schema for the H2 per-driver
// effort regressor, matching learning_agent.py's
// DriverEffortLearner.FEATURE_NAMES exactly.
var FeatureNames = []string{
	"num_packages",
	"total_weight_kg",
	"num_stops",
	"route_difficulty_score",
	"estimated_time_minutes",
	"experience_days",
	"recent_avg_workload",
	"recent_hard_days",
}

const (
	minTrainingSamples = 10
	maxTrainingSamples = 100
)

// ModelBlob is the §9-mandated replacement for the original's pickled
// XGBoost model: a versioned feature schema plus an opaque payload,
// `{version, feature_names, payload_format, payload_bytes}`.
type ModelBlob struct {
	Version       int
	FeatureNames  []string
	PayloadFormat string // "sgd-linear-v1"
	PayloadBytes  []byte
}

// linearModel is a simple linear regressor (bias + one weight per
// feature) trained by gradient descent, grounded on the teacher's
// pkg/learning/sgd.go SGD optimizer — replacing the original's
// XGBoost regressor per spec §9's pickled-model re-architecture note.
type linearModel struct {
	Bias    float64
	Weights []float64
}

func newLinearModel(numFeatures int) *linearModel {
	return &linearModel{Weights: make([]float64, numFeatures)}
}

func (m *linearModel) predict(features []float64) float64 {
	y := m.Bias
	for i, f := range features {
		if i < len(m.Weights) {
			y += m.Weights[i] * f
		}
	}
	return y
}

// encode serializes the model into the opaque payload format
// "sgd-linear-v1": bias followed by each weight, as little-endian
// float64s.
func (m *linearModel) encode() []byte {
	buf := make([]byte, 8*(1+len(m.Weights)))
	binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(m.Bias))
	for i, w := range m.Weights {
		binary.LittleEndian.PutUint64(buf[8*(i+1):8*(i+2)], math.Float64bits(w))
	}
	return buf
}

func decodeLinearModel(payload []byte, numFeatures int) (*linearModel, error) {
	want := 8 * (1 + numFeatures)
	if len(payload) != want {
		return nil, errors.New("learning: model payload size mismatch")
	}
	m := newLinearModel(numFeatures)
	m.Bias = math.Float64frombits(binary.LittleEndian.Uint64(payload[0:8]))
	for i := range m.Weights {
		m.Weights[i] = math.Float64frombits(binary.LittleEndian.Uint64(payload[8*(i+1) : 8*(i+2)]))
	}
	return m, nil
}

// TrainingSample is one (features, observed effort) pair for the H2
// regressor, matching the driver's last up-to-100 DailyStats rows with
// actual_effort set.
type TrainingSample struct {
	Features []float64 // len == len(FeatureNames)
	Target   float64
}

// TrainedModel is a fitted regressor plus the fit diagnostics the
// Explainer consumes (spec §4.7's "personalized model vN (MSE X)").
type TrainedModel struct {
	Blob    ModelBlob
	Version int
	MSE     float64
	R2      float64
}

// Trainer fits the H2 per-driver effort regressor via SGD, mirroring
// the structure (learning rate, epoch loop, gradient update) of the
// teacher's pkg/learning/sgd.go SGD.Update, specialized to plain
// linear regression since no gradient-boosting library appears
// anywhere in the example pack.
type Trainer struct {
	LearningRate float64
	Epochs       int
}

// NewTrainer builds a Trainer with the teacher's default learning
// rate (pkg/learning/sgd.go's NewSGD default of 0.001).
func NewTrainer() *Trainer {
	return &Trainer{LearningRate: 0.001, Epochs: 200}
}

// Train fits a model on up to the most recent maxTrainingSamples
// samples; training is skipped (ok=false) when fewer than
// minTrainingSamples are available, matching
// learning_agent.py's MIN_TRAINING_SAMPLES gate.
func (t *Trainer) Train(samples []TrainingSample, previousVersion int) (TrainedModel, bool) {
	if len(samples) < minTrainingSamples {
		return TrainedModel{}, false
	}
	if len(samples) > maxTrainingSamples {
		samples = samples[len(samples)-maxTrainingSamples:]
	}

	numFeatures := len(FeatureNames)
	mean, std := featureStats(samples, numFeatures)
	model := newLinearModel(numFeatures)

	for epoch := 0; epoch < t.Epochs; epoch++ {
		for _, s := range samples {
			norm := normalize(s.Features, mean, std)
			pred := model.predict(norm)
			errTerm := pred - s.Target
			model.Bias -= t.LearningRate * errTerm
			for i, f := range norm {
				model.Weights[i] -= t.LearningRate * errTerm * f
			}
		}
	}

	mse, r2 := evaluate(model, samples, mean, std)

	// Fold the feature standardization into the encoded weights so a
	// decoded model (Predict) scores raw feature vectors directly.
	for i := range model.Weights {
		model.Weights[i] /= std[i]
		model.Bias -= model.Weights[i] * mean[i]
	}

	return TrainedModel{
		Blob: ModelBlob{
			Version:       previousVersion + 1,
			FeatureNames:  append([]string(nil), FeatureNames...),
			PayloadFormat: "sgd-linear-v1",
			PayloadBytes:  model.encode(),
		},
		Version: previousVersion + 1,
		MSE:     mse,
		R2:      r2,
	}, true
}

// Predict decodes a persisted ModelBlob and scores a feature vector.
func Predict(blob ModelBlob, features []float64) (float64, error) {
	if blob.PayloadFormat != "sgd-linear-v1" {
		return 0, errors.New("learning: unsupported model payload format")
	}
	m, err := decodeLinearModel(blob.PayloadBytes, len(blob.FeatureNames))
	if err != nil {
		return 0, err
	}
	return m.predict(features), nil
}

func featureStats(samples []TrainingSample, numFeatures int) (mean, std []float64) {
	mean = make([]float64, numFeatures)
	std = make([]float64, numFeatures)
	n := float64(len(samples))
	for _, s := range samples {
		for i := 0; i < numFeatures; i++ {
			mean[i] += s.Features[i]
		}
	}
	for i := range mean {
		mean[i] /= n
	}
	for _, s := range samples {
		for i := 0; i < numFeatures; i++ {
			d := s.Features[i] - mean[i]
			std[i] += d * d
		}
	}
	for i := range std {
		std[i] = math.Sqrt(std[i] / n)
		if std[i] == 0 {
			std[i] = 1
		}
	}
	return mean, std
}

func normalize(features, mean, std []float64) []float64 {
	out := make([]float64, len(features))
	for i, f := range features {
		out[i] = (f - mean[i]) / std[i]
	}
	return out
}

func evaluate(model *linearModel, samples []TrainingSample, mean, std []float64) (mse, r2 float64) {
	n := float64(len(samples))
	var sumSqErr, sumTarget float64
	for _, s := range samples {
		sumTarget += s.Target
	}
	targetMean := sumTarget / n

	var sumSqTotal float64
	for _, s := range samples {
		pred := model.predict(normalize(s.Features, mean, std))
		d := s.Target - pred
		sumSqErr += d * d
		dt := s.Target - targetMean
		sumSqTotal += dt * dt
	}
	mse = sumSqErr / n
	if sumSqTotal == 0 {
		r2 = 0
	} else {
		r2 = 1 - sumSqErr/sumSqTotal
	}
	return mse, r2
}
