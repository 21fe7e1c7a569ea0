package explain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Mohammedsanin/NeuroBlock/stage"
)

func sampleContext() *DatasetContext {
	return &DatasetContext{
		FileName: "titanic.csv",
		Rows:     891,
		Columns:  []string{"age", "fare", "sex", "survived"},
		ColumnTypes: map[string]string{
			"age": "numeric", "fare": "numeric", "sex": "categorical", "survived": "numeric",
		},
	}
}

// Test that dataset context is woven into the prompts
func TestUserPrompt_WithContext(t *testing.T) {
	prompt := userPrompt(stage.KindDataset, sampleContext())
	assert.Contains(t, prompt, `"titanic.csv"`)
	assert.Contains(t, prompt, "891 rows and 4 columns")
	assert.Contains(t, prompt, "age, fare, sex, survived")
	assert.Contains(t, prompt, "age (numeric)")

	split := userPrompt(stage.KindSplit, sampleContext())
	assert.Contains(t, split, "891 data points to split")

	// model and results prompts are intentionally context-free
	assert.Equal(t,
		userPrompt(stage.KindModel, sampleContext()),
		userPrompt(stage.KindModel, nil))
}

// Test prompt determinism: the cache key depends on it
func TestUserPrompt_Deterministic(t *testing.T) {
	first := userPrompt(stage.KindFeature, sampleContext())
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, userPrompt(stage.KindFeature, sampleContext()))
	}
}

// Test the long-column summarization
func TestColumnsPreview_Truncation(t *testing.T) {
	short := []string{"a", "b", "c"}
	assert.Equal(t, "a, b, c", columnsPreview(short))

	long := []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8", "c9", "c10"}
	assert.Equal(t, "c1, c2, c3, c4, c5, c6, c7, c8 and 2 more", columnsPreview(long))
}

func TestTypesPreview_OrderAndLimit(t *testing.T) {
	info := &DatasetContext{
		Columns: []string{"f", "e", "d", "c", "b", "a"},
		ColumnTypes: map[string]string{
			"a": "numeric", "b": "numeric", "c": "text",
			"d": "numeric", "e": "categorical", "f": "numeric",
		},
	}
	// column order wins over map order, and the limit caps the list
	assert.Equal(t, "f (numeric), e (categorical), d (numeric), c (text), b (numeric)",
		typesPreview(info, 5))
}

// Test that every stage has a usable static text
func TestFallbackText(t *testing.T) {
	for _, kind := range stage.Kinds() {
		assert.NotEmpty(t, fallbackText(kind), "kind %s", kind)
	}
	assert.Equal(t,
		"This step helps prepare or evaluate your machine learning model.",
		fallbackText(stage.Kind("unknown")))
}
