package pipeline

import (
	"strings"

	"github.com/Mohammedsanin/NeuroBlock/errors"
)

// Minimum dataset shape accepted by the builder. The backend enforces the
// same rules; checking here keeps obviously unusable uploads out of the
// graph without a round trip.
const (
	MinDatasetRows    = 10
	MinDatasetColumns = 2
)

// ColumnType classifies a dataset column as profiled by the backend.
type ColumnType string

const (
	// ColumnNumeric holds continuous or integer values
	ColumnNumeric ColumnType = "numeric"
	// ColumnCategorical holds a bounded set of discrete values
	ColumnCategorical ColumnType = "categorical"
	// ColumnText holds free-form strings
	ColumnText ColumnType = "text"
)

// ColumnInfo carries the per-column profile from the upload response.
// Numeric columns get Min/Max/Mean; categorical columns get UniqueValues
// and TopValues. Field names match the backend response exactly.
type ColumnInfo struct {
	Type              ColumnType     `json:"type"`
	MissingCount      int            `json:"missing_count"`
	MissingPercentage float64        `json:"missing_percentage"`
	Min               *float64       `json:"min,omitempty"`
	Max               *float64       `json:"max,omitempty"`
	Mean              *float64       `json:"mean,omitempty"`
	UniqueValues      int            `json:"unique_values,omitempty"`
	TopValues         map[string]int `json:"top_values,omitempty"`
}

// DatasetHandle is the builder's view of an uploaded dataset: the backend
// session that owns the parsed frame plus the profile needed for the UI and
// for request assembly. InputFeatures/TargetVariable hold the user's
// selection; both start empty after upload.
type DatasetHandle struct {
	SessionID      string                `json:"session_id"`
	FileName       string                `json:"file_name"`
	Rows           int                   `json:"rows"`
	Columns        []string              `json:"columns"`
	ColumnInfo     map[string]ColumnInfo `json:"column_info"`
	Preview        []map[string]any      `json:"preview"`
	InputFeatures  []string              `json:"input_features"`
	TargetVariable string                `json:"target_variable"`
}

// Validate checks the handle shape before it enters the store.
func (h *DatasetHandle) Validate() error {
	if h.SessionID == "" {
		return errors.NewValidation("session_id", "upload response carried no session id")
	}
	if h.FileName == "" {
		return errors.NewValidation("file_name", "upload response carried no file name")
	}
	if h.Rows < MinDatasetRows {
		return errors.NewValidation("rows",
			"dataset has only %d rows; at least %d samples are required", h.Rows, MinDatasetRows)
	}
	if len(h.Columns) < MinDatasetColumns {
		return errors.NewValidation("columns",
			"dataset must have at least %d columns (one feature and one target), got %d",
			MinDatasetColumns, len(h.Columns))
	}

	seen := make(map[string]bool, len(h.Columns))
	for _, col := range h.Columns {
		if col == "" {
			return errors.NewValidation("columns", "dataset contains an unnamed column")
		}
		if seen[col] {
			return errors.NewValidation("columns", "duplicate column name %q", col)
		}
		seen[col] = true
	}
	return nil
}

// HasColumn reports whether name is one of the dataset's columns.
func (h *DatasetHandle) HasColumn(name string) bool {
	for _, col := range h.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// validateSelection checks a feature/target selection against the handle.
func (h *DatasetHandle) validateSelection(features []string, target string) error {
	if len(features) == 0 {
		return errors.NewValidation("input_features", "select at least one feature column")
	}
	if target == "" {
		return errors.NewValidation("target_variable", "select a target column")
	}
	if !h.HasColumn(target) {
		return errors.NewValidation("target_variable", "column %q not found in dataset", target)
	}

	var missing []string
	for _, f := range features {
		if f == target {
			return errors.NewValidation("input_features",
				"target variable %q cannot also be an input feature", target)
		}
		if !h.HasColumn(f) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return errors.NewValidation("input_features",
			"columns not found in dataset: %s", strings.Join(missing, ", "))
	}

	seen := make(map[string]bool, len(features))
	for _, f := range features {
		if seen[f] {
			return errors.NewValidation("input_features", "duplicate feature %q", f)
		}
		seen[f] = true
	}
	return nil
}

// clone returns a deep copy of the handle.
func (h *DatasetHandle) clone() *DatasetHandle {
	if h == nil {
		return nil
	}
	out := *h
	out.Columns = append([]string(nil), h.Columns...)
	out.InputFeatures = append([]string(nil), h.InputFeatures...)
	if h.ColumnInfo != nil {
		out.ColumnInfo = make(map[string]ColumnInfo, len(h.ColumnInfo))
		for name, info := range h.ColumnInfo {
			out.ColumnInfo[name] = info
		}
	}
	if h.Preview != nil {
		out.Preview = make([]map[string]any, len(h.Preview))
		for i, row := range h.Preview {
			cp := make(map[string]any, len(row))
			for k, v := range row {
				cp[k] = v
			}
			out.Preview[i] = cp
		}
	}
	return &out
}

// Summary is the exportable digest of a dataset: enough for display and
// explanation context, deliberately excluding the backend session id and
// preview rows.
type Summary struct {
	FileName    string                `json:"file_name"`
	Rows        int                   `json:"rows"`
	Columns     []string              `json:"columns"`
	ColumnTypes map[string]ColumnType `json:"column_types"`
}

// Summary derives the exportable digest from the handle.
func (h *DatasetHandle) Summary() Summary {
	s := Summary{
		FileName: h.FileName,
		Rows:     h.Rows,
		Columns:  append([]string(nil), h.Columns...),
	}
	if len(h.ColumnInfo) > 0 {
		s.ColumnTypes = make(map[string]ColumnType, len(h.ColumnInfo))
		for name, info := range h.ColumnInfo {
			s.ColumnTypes[name] = info.Type
		}
	}
	return s
}

// clone returns a deep copy of the summary.
func (s *Summary) clone() *Summary {
	if s == nil {
		return nil
	}
	out := *s
	out.Columns = append([]string(nil), s.Columns...)
	if s.ColumnTypes != nil {
		out.ColumnTypes = make(map[string]ColumnType, len(s.ColumnTypes))
		for name, t := range s.ColumnTypes {
			out.ColumnTypes[name] = t
		}
	}
	return &out
}
