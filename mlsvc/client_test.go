package mlsvc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohammedsanin/NeuroBlock/errors"
	"github.com/Mohammedsanin/NeuroBlock/pipeline"
	"github.com/Mohammedsanin/NeuroBlock/training"
)

// quickRetry keeps retry tests fast.
func quickRetry() errors.RetryConfig {
	return errors.RetryConfig{
		MaxRetries:    2,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:     serverURL,
		Timeout:     2 * time.Second,
		UploadRetry: quickRetry(),
	})
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// uploadBody is a response the client's handle validation accepts.
func uploadBody() map[string]any {
	return map[string]any{
		"session_id": "session_0",
		"file_name":  "titanic.csv",
		"rows":       891,
		"columns":    []string{"age", "fare", "sex", "survived"},
		"column_info": map[string]any{
			"age": map[string]any{"type": "numeric", "missing_count": 177, "missing_percentage": 19.8},
		},
		"preview": []map[string]any{{"age": 22.0, "fare": 7.25, "sex": "male", "survived": 0}},
	}
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	client, err := NewClient(Config{BaseURL: "http://localhost:5000"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", client.baseURL)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
	assert.Equal(t, errors.DefaultRetryConfig().MaxRetries, client.retry.MaxRetries)
}

func TestClient_Health(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr bool
	}{
		{
			name: "healthy service",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/api/health", r.URL.Path)
				writeJSON(w, http.StatusOK, map[string]string{
					"status": "healthy", "message": "ML Backend is running",
				})
			},
		},
		{
			name: "degraded status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, map[string]string{"status": "degraded"})
			},
			wantErr: true,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			err := newTestClient(t, server.URL).Health(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsUnavailable(err))
				assert.True(t, errors.IsTransient(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClient_Health_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // connection refused from here on

	err := newTestClient(t, server.URL).Health(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsUnavailable(err))
}

func TestClient_UploadDataset(t *testing.T) {
	var fileName, fileContent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/upload", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		fileName = header.Filename
		raw, err := io.ReadAll(file)
		require.NoError(t, err)
		fileContent = string(raw)

		writeJSON(w, http.StatusOK, uploadBody())
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	handle, err := client.UploadDataset(context.Background(),
		"titanic.csv", strings.NewReader("age,fare\n22,7.25\n"))
	require.NoError(t, err)

	assert.Equal(t, "titanic.csv", fileName)
	assert.Equal(t, "age,fare\n22,7.25\n", fileContent)
	assert.Equal(t, "session_0", handle.SessionID)
	assert.Equal(t, 891, handle.Rows)
	assert.Equal(t, []string{"age", "fare", "sex", "survived"}, handle.Columns)
	assert.Equal(t, pipeline.ColumnNumeric, handle.ColumnInfo["age"].Type)
	assert.Empty(t, handle.InputFeatures, "upload never carries a selection")
}

func TestClient_UploadDataset_Rejected(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Unsupported file format. Use CSV or Excel",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.UploadDataset(context.Background(),
		"notes.txt", strings.NewReader("not a dataset"))
	require.Error(t, err)

	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, "file", errors.ValidationField(err))
	assert.Contains(t, err.Error(), "Unsupported file format")
	assert.Equal(t, int32(1), attempts.Load(), "a rejected file must not be retried")
}

func TestClient_UploadDataset_RetriesTransient(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) == 1 {
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "Failed to process file: worker busy",
			})
			return
		}
		writeJSON(w, http.StatusOK, uploadBody())
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	handle, err := client.UploadDataset(context.Background(),
		"titanic.csv", strings.NewReader("age,fare\n22,7.25\n"))
	require.NoError(t, err)
	assert.Equal(t, "session_0", handle.SessionID)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestClient_Train(t *testing.T) {
	request := training.Request{
		SessionID:      "session_0",
		InputFeatures:  []string{"age", "fare"},
		TargetVariable: "survived",
		Preprocessing: training.Preprocessing{
			Standardization: true,
			MissingStrategy: pipeline.MissingMean,
		},
		SplitRatio:      70,
		ModelType:       pipeline.ModelRandomForest,
		Hyperparameters: pipeline.Hyperparameters{"n_estimators": 100},
	}

	var received training.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/train", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		writeJSON(w, http.StatusOK, map[string]any{
			"test_metrics":     map[string]float64{"accuracy": 0.82, "precision": 0.8, "recall": 0.79, "f1_score": 0.795},
			"train_metrics":    map[string]float64{"accuracy": 0.9},
			"confusion_matrix": [][]int{{98, 12}, {20, 49}},
			"n_train_samples":  623,
			"n_test_samples":   268,
			"n_features":       2,
			"feature_names":    []string{"age", "fare"},
			"target_name":      "survived",
		})
	}))
	defer server.Close()

	result, err := newTestClient(t, server.URL).Train(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, "session_0", received.SessionID)
	assert.Equal(t, pipeline.ModelRandomForest, received.ModelType)
	assert.Equal(t, 0.82, result.TestMetrics.Accuracy)
	assert.Equal(t, [][]int{{98, 12}, {20, 49}}, result.ConfusionMatrix)
	assert.False(t, result.IsRegression())
	assert.Equal(t, "survived", result.TargetName)
}

func TestClient_Train_RegressionResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"test_metrics":       map[string]float64{"accuracy": 0.74, "precision": 0.74, "recall": 0.74, "f1_score": 0.74},
			"train_metrics":      map[string]float64{"accuracy": 0.81},
			"confusion_matrix":   [][]int{{0, 0}, {0, 0}},
			"regression_metrics": map[string]float64{"mse": 21.9, "rmse": 4.68, "mae": 3.1, "r2_score": 0.74},
			"n_train_samples":    354,
			"n_test_samples":     152,
			"n_features":         3,
			"feature_names":      []string{"rm", "lstat", "ptratio"},
			"target_name":        "medv",
		})
	}))
	defer server.Close()

	result, err := newTestClient(t, server.URL).Train(context.Background(), training.Request{})
	require.NoError(t, err)
	require.True(t, result.IsRegression())
	assert.Equal(t, 0.74, result.RegressionMetrics.R2Score)
	assert.Equal(t, [][]int{{0, 0}, {0, 0}}, result.ConfusionMatrix)
}

func TestClient_Train_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "invalid session becomes session expired",
			status: http.StatusBadRequest,
			body:   `{"error": "Invalid session ID"}`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsSessionExpired(err))
				assert.False(t, errors.IsTrainingFailed(err))
			},
		},
		{
			name:   "service failure message survives verbatim",
			status: http.StatusInternalServerError,
			body:   `{"error": "Training failed: Input contains NaN"}`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsTrainingFailed(err))
				assert.Contains(t, err.Error(), "Training failed: Input contains NaN")
			},
		},
		{
			name:   "missing field is a training failure",
			status: http.StatusBadRequest,
			body:   `{"error": "Missing required field: target_variable"}`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsTrainingFailed(err))
				assert.Contains(t, err.Error(), "Missing required field: target_variable")
			},
		},
		{
			name:   "non-JSON body falls back to the status line",
			status: http.StatusBadGateway,
			body:   "<html>nginx</html>",
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsTrainingFailed(err))
				assert.Contains(t, err.Error(), "HTTP 502")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				attempts.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(t, server.URL).Train(context.Background(), training.Request{})
			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, int32(1), attempts.Load(), "training is never retried")
		})
	}
}

func TestClient_Train_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	_, err := newTestClient(t, server.URL).Train(context.Background(), training.Request{})
	require.Error(t, err)
	assert.True(t, errors.IsUnavailable(err))
	assert.False(t, errors.IsTrainingFailed(err), "unreachable is not a training failure")
}

func TestClient_Predict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/predict", r.URL.Path)

		var req predictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "session_0", req.SessionID)
		require.Len(t, req.Data, 2)

		writeJSON(w, http.StatusOK, map[string]any{"predictions": []float64{1, 0}})
	}))
	defer server.Close()

	rows := []map[string]any{
		{"age": 29.0, "fare": 100.0},
		{"age": 60.0, "fare": 7.75},
	}
	predictions, err := newTestClient(t, server.URL).Predict(context.Background(), "session_0", rows)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, predictions)
}

func TestClient_Predict_NoModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "No trained model found. Train a model first.",
		})
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Predict(context.Background(), "session_0", nil)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}
