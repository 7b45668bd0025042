package neighbors

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/mat"

	"github.com/sasmita-sabat/censusml/pkg/errors"
)

func twoClusters() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(8, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
		5, 5,
		5, 6,
		6, 5,
		6, 6,
	})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})
	return X, y
}

func TestKNeighborsClassifier_Predict(t *testing.T) {
	X, y := twoClusters()

	for _, weights := range []string{WeightsUniform, WeightsDistance} {
		t.Run(weights, func(t *testing.T) {
			knn := NewKNeighborsClassifier(WithNNeighbors(3), WithWeights(weights))
			if err := knn.Fit(X, y); err != nil {
				t.Fatalf("Fit failed: %v", err)
			}

			pred, err := knn.Predict(mat.NewDense(2, 2, []float64{0.4, 0.6, 5.5, 5.2}))
			if err != nil {
				t.Fatalf("Predict failed: %v", err)
			}
			if pred.At(0, 0) != 0 || pred.At(1, 0) != 1 {
				t.Errorf("predictions = [%v %v], want [0 1]", pred.At(0, 0), pred.At(1, 0))
			}
		})
	}
}

func TestKNeighborsClassifier_KNeighbors(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 3, 10})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	knn := NewKNeighborsClassifier(WithNNeighbors(2))
	if err := knn.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	idx, dist, err := knn.KNeighbors(mat.NewDense(2, 1, []float64{2.9, 0.5}))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([][]int{{2, 1}, {0, 1}}, idx); diff != "" {
		t.Errorf("neighbour indices mismatch (-want +got):\n%s", diff)
	}
	if math.Abs(dist[0][0]-0.1) > 1e-9 || math.Abs(dist[0][1]-1.9) > 1e-9 {
		t.Errorf("distances = %v", dist[0])
	}
}

func TestKNeighborsClassifier_DistanceWeights(t *testing.T) {
	// one very close class-1 neighbour against two distant class-0 neighbours
	X := mat.NewDense(3, 1, []float64{0.1, 3, -3})
	y := mat.NewDense(3, 1, []float64{1, 0, 0})
	query := mat.NewDense(1, 1, []float64{0})

	uniform := NewKNeighborsClassifier(WithNNeighbors(3))
	distance := NewKNeighborsClassifier(WithNNeighbors(3), WithWeights(WeightsDistance))
	for _, knn := range []*KNeighborsClassifier{uniform, distance} {
		if err := knn.Fit(X, y); err != nil {
			t.Fatal(err)
		}
	}

	pu, _ := uniform.Predict(query)
	pd, _ := distance.Predict(query)
	if pu.At(0, 0) != 0 {
		t.Errorf("uniform vote should pick the majority class 0, got %v", pu.At(0, 0))
	}
	if pd.At(0, 0) != 1 {
		t.Errorf("distance vote should pick the close class 1, got %v", pd.At(0, 0))
	}

	proba, err := distance.PredictProba(query)
	if err != nil {
		t.Fatal(err)
	}
	// weights 10, 1/3, 1/3
	want := 10 / (10 + 2.0/3.0)
	if math.Abs(proba.At(0, 1)-want) > 1e-9 {
		t.Errorf("P(class 1) = %v, want %v", proba.At(0, 1), want)
	}
}

func TestKNeighborsClassifier_ExactMatchTakesAllWeight(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{0, 1, 1.1})
	y := mat.NewDense(3, 1, []float64{1, 0, 0})

	knn := NewKNeighborsClassifier(WithNNeighbors(3), WithWeights(WeightsDistance))
	if err := knn.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	proba, err := knn.PredictProba(mat.NewDense(1, 1, []float64{0}))
	if err != nil {
		t.Fatal(err)
	}
	if proba.At(0, 1) != 1 {
		t.Errorf("exact match should get probability 1, got %v", proba.At(0, 1))
	}
}

func TestKNeighborsClassifier_ManyBlocks(t *testing.T) {
	n := 700
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		if i >= n/2 {
			y.Set(i, 0, 1)
		}
	}

	knn := NewKNeighborsClassifier(WithNNeighbors(5))
	if err := knn.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	pred, err := knn.Predict(X)
	if err != nil {
		t.Fatal(err)
	}

	wrong := 0
	for i := 0; i < n; i++ {
		if pred.At(i, 0) != y.At(i, 0) {
			wrong++
		}
	}
	// only rows next to the class boundary can be misclassified
	if wrong > 4 {
		t.Errorf("%d rows misclassified", wrong)
	}
}

func TestKNeighborsClassifier_Errors(t *testing.T) {
	knn := NewKNeighborsClassifier()
	_, err := knn.Predict(mat.NewDense(1, 2, nil))
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Errorf("Predict before Fit = %v, want NotFittedError", err)
	}

	X := mat.NewDense(3, 2, []float64{0, 0, 1, 1, 2, 2})
	y := mat.NewDense(3, 1, []float64{0, 1, 0})
	if err := knn.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if _, err := knn.Predict(X); err == nil {
		t.Error("n_neighbors=5 with 3 training samples should fail")
	}

	if err := knn.SetParams(map[string]interface{}{"weights": "gaussian"}); err == nil {
		t.Error("unknown weights should be rejected")
	}
	if err := knn.SetParams(map[string]interface{}{"n_neighbors": 0}); err == nil {
		t.Error("n_neighbors=0 should be rejected")
	}
}

func TestKNeighborsClassifier_ParamsAndClone(t *testing.T) {
	knn := NewKNeighborsClassifier()
	err := knn.SetParams(map[string]interface{}{"n_neighbors": 8, "weights": "distance"})
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]interface{}{"n_neighbors": 8, "weights": "distance"}
	if diff := cmp.Diff(want, knn.GetParams()); diff != "" {
		t.Errorf("GetParams() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, knn.Clone().GetParams()); diff != "" {
		t.Errorf("Clone().GetParams() mismatch (-want +got):\n%s", diff)
	}
}
