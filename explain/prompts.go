package explain

import (
	"fmt"
	"strings"

	"github.com/Mohammedsanin/NeuroBlock/stage"
)

// DatasetContext personalizes an explanation with the user's actual data.
// All fields are optional; a nil context yields a generic explanation.
type DatasetContext struct {
	FileName    string            `json:"fileName"`
	Rows        int               `json:"rows"`
	Columns     []string          `json:"columns"`
	ColumnTypes map[string]string `json:"columnTypes"`
}

// systemPrompt frames every request. The tone matters more than the
// content: the audience is assumed to have zero ML background.
const systemPrompt = `You are a friendly ML tutor explaining concepts to complete beginners with zero coding or machine learning background.
- Use simple everyday language
- Avoid technical jargon
- Use analogies to everyday life
- Keep explanations to 2-4 sentences max
- Be encouraging and supportive
- If dataset info is provided, reference specific column names or data types to make it personal`

const (
	maxColumnsInPreview = 8
	maxTypesInPreview   = 5
)

// columnsPreview lists the first few column names, summarizing the rest.
func columnsPreview(columns []string) string {
	if len(columns) <= maxColumnsInPreview {
		return strings.Join(columns, ", ")
	}
	preview := strings.Join(columns[:maxColumnsInPreview], ", ")
	return fmt.Sprintf("%s and %d more", preview, len(columns)-maxColumnsInPreview)
}

// typesPreview renders "name (type)" pairs in column order so the same
// context always produces the same prompt.
func typesPreview(info *DatasetContext, limit int) string {
	var pairs []string
	for _, col := range info.Columns {
		if len(pairs) == limit {
			break
		}
		if t, ok := info.ColumnTypes[col]; ok {
			pairs = append(pairs, fmt.Sprintf("%s (%s)", col, t))
		}
	}
	return strings.Join(pairs, ", ")
}

// datasetBlurb summarizes the uploaded dataset for prompt inclusion.
func datasetBlurb(info *DatasetContext) string {
	if info == nil {
		return ""
	}
	name := info.FileName
	if name == "" {
		name = "dataset.csv"
	}
	return fmt.Sprintf(`
The user has uploaded a dataset called %q with:
- %d rows and %d columns
- Columns: %s
- Column types: %s
`, name, info.Rows, len(info.Columns), columnsPreview(info.Columns), typesPreview(info, maxTypesInPreview))
}

// userPrompt builds the per-stage question, weaving in dataset context
// where it makes the explanation concrete.
func userPrompt(kind stage.Kind, info *DatasetContext) string {
	switch kind {
	case stage.KindDataset:
		return fmt.Sprintf(`Explain what happens when a user uploads a dataset for machine learning. %s
Explain in 2-3 simple sentences:
- What the tool does with the uploaded data
- Why this step is important for beginners`, datasetBlurb(info))

	case stage.KindPreprocess:
		var context string
		if info != nil {
			context = fmt.Sprintf("The user's dataset has these columns: %s", columnsPreview(info.Columns))
		}
		return fmt.Sprintf(`Explain preprocessing in machine learning for beginners. %s
Explain in 2-3 simple sentences:
- What standardization and normalization do to the data
- Why this helps the model learn better
Use a simple real-world analogy if helpful.`, context)

	case stage.KindFeature:
		var context string
		if info != nil {
			context = fmt.Sprintf("The user's dataset has: %s", typesPreview(info, 4))
		}
		return fmt.Sprintf(`Explain feature engineering in machine learning for beginners. %s
Explain in 2-3 simple sentences:
- What handling missing values means
- What encoding categorical variables does
- Why creating new features can help
Keep it very simple and beginner-friendly.`, context)

	case stage.KindSplit:
		var context string
		if info != nil {
			context = fmt.Sprintf("The user has %d data points to split.", info.Rows)
		}
		return fmt.Sprintf(`Explain train-test split in machine learning for beginners. %s
Explain in 2-3 simple sentences:
- Why we divide data into training and testing sets
- What a good split ratio means
Use a simple analogy like studying for an exam.`, context)

	case stage.KindModel:
		return `Explain model selection in machine learning for beginners. Keep it very simple.
Explain in 2-3 sentences:
- What a machine learning model does
- Why different models work for different problems
- What hyperparameters are (in very simple terms)`

	case stage.KindResults:
		return `Explain how to interpret machine learning results for beginners.
Explain in 2-3 simple sentences:
- What accuracy means
- What a confusion matrix shows
- How to know if the model is good`

	default:
		return "Explain this ML pipeline step simply."
	}
}

// fallbackText is served when the language model is unreachable, rate
// limited, or not configured. The texts stand on their own.
func fallbackText(kind stage.Kind) string {
	switch kind {
	case stage.KindDataset:
		return "Upload your data file (CSV or Excel) to get started. The system will analyze your columns and prepare them for machine learning!"
	case stage.KindPreprocess:
		return "This step cleans and scales your data so all features are on the same playing field, helping the model learn better."
	case stage.KindFeature:
		return "Here you can handle missing values, convert text categories to numbers, and create new useful features from existing ones."
	case stage.KindSplit:
		return "We split your data into training (to teach the model) and testing (to see how well it learned) - like studying with practice problems and then taking a test!"
	case stage.KindModel:
		return "Choose which type of AI algorithm will learn patterns from your data. Different models work better for different types of problems."
	case stage.KindResults:
		return "See how well your model performed! Higher accuracy means more correct predictions. The confusion matrix shows where it got things right or wrong."
	default:
		return "This step helps prepare or evaluate your machine learning model."
	}
}
