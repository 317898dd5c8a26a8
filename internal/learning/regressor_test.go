package learning

import (
	"math"
	"testing"
)

func linearSamples(n int) []TrainingSample {
	samples := make([]TrainingSample, n)
	for i := 0; i < n; i++ {
		features := make([]float64, len(FeatureNames))
		features[0] = float64(i + 1) // num_packages
		target := 10.0 + 2.0*features[0]
		samples[i] = TrainingSample{Features: features, Target: target}
	}
	return samples
}

func TestTrainSkipsBelowMinimumSampleCount(t *testing.T) {
	trainer := NewTrainer()
	_, ok := trainer.Train(linearSamples(3), 0)
	if ok {
		t.Fatal("expected training to be skipped below the minimum sample count")
	}
}

func TestTrainFitsAndEncodesDecodesRoundTrip(t *testing.T) {
	trainer := &Trainer{LearningRate: 0.01, Epochs: 500}
	samples := linearSamples(20)

	trained, ok := trainer.Train(samples, 2)
	if !ok {
		t.Fatal("expected training to succeed with enough samples")
	}
	if trained.Version != 3 {
		t.Fatalf("expected version to increment from the previous version, got %d", trained.Version)
	}
	if trained.Blob.PayloadFormat != "sgd-linear-v1" {
		t.Fatalf("expected the sgd-linear-v1 payload format, got %q", trained.Blob.PayloadFormat)
	}
	if trained.MSE < 0 || math.IsNaN(trained.MSE) {
		t.Fatalf("expected a finite non-negative MSE, got %v", trained.MSE)
	}

	pred, err := Predict(trained.Blob, samples[0].Features)
	if err != nil {
		t.Fatalf("unexpected error decoding trained model: %v", err)
	}
	if math.IsNaN(pred) {
		t.Fatal("expected a finite prediction")
	}
}

func TestPredictRejectsUnknownPayloadFormat(t *testing.T) {
	_, err := Predict(ModelBlob{PayloadFormat: "pickle-v1"}, []float64{1})
	if err == nil {
		t.Fatal("expected an error for an unsupported payload format")
	}
}

func TestPredictRejectsMismatchedPayloadSize(t *testing.T) {
	blob := ModelBlob{PayloadFormat: "sgd-linear-v1", FeatureNames: FeatureNames, PayloadBytes: []byte{1, 2, 3}}
	_, err := Predict(blob, make([]float64, len(FeatureNames)))
	if err == nil {
		t.Fatal("expected an error for a payload size mismatch")
	}
}
