package training

import (
	"github.com/Mohammedsanin/NeuroBlock/pipeline"
)

// Preprocessing is the request block the ML service consumes. It folds the
// builder's preprocess stage (scaling) and feature stage (missing values,
// encoding) into one object; that flattening is part of the service's wire
// contract.
type Preprocessing struct {
	Standardization  bool                     `json:"standardization"`
	Normalization    bool                     `json:"normalization"`
	HandleMissing    bool                     `json:"handle_missing"`
	MissingStrategy  pipeline.MissingStrategy `json:"missing_strategy"`
	EncodeCategories bool                     `json:"encode_categories"`
}

// Request is the training call payload. Field names and nesting match the
// ML service exactly.
type Request struct {
	SessionID       string                   `json:"session_id"`
	InputFeatures   []string                 `json:"input_features"`
	TargetVariable  string                   `json:"target_variable"`
	Preprocessing   Preprocessing            `json:"preprocessing"`
	SplitRatio      int                      `json:"split_ratio"`
	ModelType       pipeline.ModelType       `json:"model_type"`
	Hyperparameters pipeline.Hyperparameters `json:"hyperparameters"`
}

// NewRequest assembles the training payload from a pipeline snapshot. The
// caller has already verified readiness; this is a pure mapping.
func NewRequest(snap pipeline.Snapshot) Request {
	return Request{
		SessionID:      snap.Dataset.SessionID,
		InputFeatures:  snap.Dataset.InputFeatures,
		TargetVariable: snap.Dataset.TargetVariable,
		Preprocessing: Preprocessing{
			Standardization:  snap.Preprocess.Standardization,
			Normalization:    snap.Preprocess.Normalization,
			HandleMissing:    snap.Feature.HandleMissing,
			MissingStrategy:  snap.Feature.MissingStrategy,
			EncodeCategories: snap.Feature.EncodeCategories,
		},
		SplitRatio:      snap.Split.TrainPercent,
		ModelType:       snap.Model.Type,
		Hyperparameters: snap.Model.Hyperparameters,
	}
}
