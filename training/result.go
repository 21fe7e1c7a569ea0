package training

// TestMetrics carries the held-out evaluation scores. For regression runs
// the service maps R² into the accuracy/precision/f1 slots so the same
// shape serves both task types.
type TestMetrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1Score   float64 `json:"f1_score"`
}

// TrainMetrics carries the training-set scores.
type TrainMetrics struct {
	Accuracy float64 `json:"accuracy"`
}

// RegressionMetrics is present only for regression targets.
type RegressionMetrics struct {
	MSE     float64 `json:"mse"`
	RMSE    float64 `json:"rmse"`
	MAE     float64 `json:"mae"`
	R2Score float64 `json:"r2_score"`
}

// Predictions pairs held-out actuals with model outputs for charting.
type Predictions struct {
	Actual    []float64 `json:"actual"`
	Predicted []float64 `json:"predicted"`
}

// Result is the ML service's training response. One Result supersedes the
// previous run's wholesale; nothing is merged.
type Result struct {
	TestMetrics       TestMetrics        `json:"test_metrics"`
	TrainMetrics      TrainMetrics       `json:"train_metrics"`
	ConfusionMatrix   [][]int            `json:"confusion_matrix"`
	RegressionMetrics *RegressionMetrics `json:"regression_metrics,omitempty"`
	FeatureImportance map[string]float64 `json:"feature_importance,omitempty"`
	NTrainSamples     int                `json:"n_train_samples"`
	NTestSamples      int                `json:"n_test_samples"`
	NFeatures         int                `json:"n_features"`
	FeatureNames      []string           `json:"feature_names"`
	TargetName        string             `json:"target_name"`
	Predictions       *Predictions       `json:"predictions,omitempty"`
}

// IsRegression reports whether the run was scored as regression.
func (r *Result) IsRegression() bool {
	return r.RegressionMetrics != nil
}
