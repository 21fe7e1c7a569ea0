package stage

// defaultDescriptors is the built-in catalog. Labels and descriptions are
// the strings shown on the canvas cards; row/column are the auto-arrange
// slots.
var defaultDescriptors = []Descriptor{
	{
		Kind:        KindDataset,
		Label:       "Dataset",
		Description: "Upload a CSV or Excel file. Columns are profiled so later stages know what they are working with.",
		Row:         0,
		Column:      0,
	},
	{
		Kind:        KindPreprocess,
		Label:       "Preprocessing",
		Description: "Scale numeric features with standardization or normalization so no single column dominates training.",
		Row:         0,
		Column:      1,
	},
	{
		Kind:        KindFeature,
		Label:       "Feature Engineering",
		Description: "Handle missing values, encode categorical columns, and derive new features from existing ones.",
		Row:         0,
		Column:      2,
	},
	{
		Kind:        KindSplit,
		Label:       "Train/Test Split",
		Description: "Hold back part of the data for testing so the model is scored on rows it never saw.",
		Row:         1,
		Column:      0,
	},
	{
		Kind:        KindModel,
		Label:       "Model Selection",
		Description: "Pick the learning algorithm and tune its hyperparameters.",
		Row:         1,
		Column:      1,
	},
	{
		Kind:        KindResults,
		Label:       "Results",
		Description: "Review accuracy, the confusion matrix, and feature importance for the trained model.",
		Row:         1,
		Column:      2,
	},
}

// DefaultRegistry returns the fully populated builder catalog.
// The built-in descriptors are validated at startup; a registration failure
// here is a programming error, so it panics.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, d := range defaultDescriptors {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
	return r
}
