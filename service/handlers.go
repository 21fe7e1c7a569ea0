package service

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Mohammedsanin/NeuroBlock/canvas"
	"github.com/Mohammedsanin/NeuroBlock/document"
	"github.com/Mohammedsanin/NeuroBlock/errors"
	"github.com/Mohammedsanin/NeuroBlock/explain"
	"github.com/Mohammedsanin/NeuroBlock/pipeline"
	"github.com/Mohammedsanin/NeuroBlock/stage"
	"github.com/Mohammedsanin/NeuroBlock/status"
	"github.com/Mohammedsanin/NeuroBlock/suggest"
)

// graphView is the full pipeline state in one response: what the canvas
// shows after a page reload.
type graphView struct {
	Revision    uint64                       `json:"revision"`
	Stages      []canvas.PlacedStage         `json:"stages"`
	Statuses    map[stage.Kind]status.Status `json:"statuses"`
	Suggestions []suggest.Suggestion         `json:"suggestions"`
	Dataset     *pipeline.DatasetHandle      `json:"dataset"`
	Summary     *pipeline.Summary            `json:"dataset_summary,omitempty"`
	Configs     configsView                  `json:"configs"`
	CanTrain    bool                         `json:"can_train"`
}

type configsView struct {
	Preprocess pipeline.PreprocessConfig `json:"preprocess"`
	Feature    pipeline.FeatureConfig    `json:"feature"`
	Split      pipeline.SplitConfig      `json:"split"`
	Model      pipeline.ModelConfig      `json:"model"`
}

func (s *Server) graph() graphView {
	snap := s.session.Snapshot()

	stages := s.session.Stages()
	if stages == nil {
		stages = []canvas.PlacedStage{}
	}
	suggestions := s.session.Suggestions()
	if suggestions == nil {
		suggestions = []suggest.Suggestion{}
	}

	return graphView{
		Revision:    s.session.Revision(),
		Stages:      stages,
		Statuses:    s.session.Statuses(),
		Suggestions: suggestions,
		Dataset:     snap.Dataset,
		Summary:     snap.Summary,
		Configs: configsView{
			Preprocess: snap.Preprocess,
			Feature:    snap.Feature,
			Split:      snap.Split,
			Model:      snap.Model,
		},
		CanTrain: s.session.CanTrain(),
	}
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"stages": s.session.Catalog(),
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.graph())
}

// pathKind resolves the {kind} segment against the closed stage set.
func pathKind(r *http.Request) (stage.Kind, error) {
	return stage.ParseKind(r.PathValue("kind"))
}

func (s *Server) handlePlaceStage(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}

	var pos canvas.Position
	if err := s.decodeJSON(r, &pos); err != nil {
		s.writeJSONError(w, r, err)
		return
	}

	snapped, err := s.session.PlaceStage(kind, pos)
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, canvas.PlacedStage{Kind: kind, Position: snapped})
}

func (s *Server) handleMoveStage(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}

	var pos canvas.Position
	if err := s.decodeJSON(r, &pos); err != nil {
		s.writeJSONError(w, r, err)
		return
	}

	snapped, err := s.session.MoveStage(kind, pos)
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, canvas.PlacedStage{Kind: kind, Position: snapped})
}

func (s *Server) handleRemoveStage(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}

	if err := s.session.RemoveStage(kind); err != nil {
		s.writeJSONError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleArrange(w http.ResponseWriter, r *http.Request) {
	stages := s.session.AutoArrange()
	if stages == nil {
		stages = []canvas.PlacedStage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"stages": stages})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}

	snap := s.session.Snapshot()
	switch kind {
	case stage.KindPreprocess:
		writeJSON(w, http.StatusOK, snap.Preprocess)
	case stage.KindFeature:
		writeJSON(w, http.StatusOK, snap.Feature)
	case stage.KindSplit:
		writeJSON(w, http.StatusOK, snap.Split)
	case stage.KindModel:
		writeJSON(w, http.StatusOK, snap.Model)
	default:
		s.writeJSONError(w, r, errors.NewValidation("kind", "stage %q has no configuration", kind))
	}
}

// modelConfigPatch is the composite body for PUT config/model. Sub-patches
// apply in declared order; type goes first because it resets the
// hyperparameters to the new model's defaults.
type modelConfigPatch struct {
	Type            *pipeline.ModelType            `json:"type"`
	Hyperparameters map[string]any                 `json:"hyperparameters"`
	CrossValidation *pipeline.CrossValidationPatch `json:"cross_validation"`
	GridSearch      *pipeline.GridSearchPatch      `json:"grid_search"`
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}

	switch kind {
	case stage.KindPreprocess:
		var patch pipeline.PreprocessPatch
		if err := s.decodeJSON(r, &patch); err != nil {
			s.writeJSONError(w, r, err)
			return
		}
		cfg, err := s.session.SetPreprocess(patch)
		if err != nil {
			s.writeJSONError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)

	case stage.KindFeature:
		var patch pipeline.FeaturePatch
		if err := s.decodeJSON(r, &patch); err != nil {
			s.writeJSONError(w, r, err)
			return
		}
		cfg, err := s.session.SetFeature(patch)
		if err != nil {
			s.writeJSONError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)

	case stage.KindSplit:
		var patch pipeline.SplitPatch
		if err := s.decodeJSON(r, &patch); err != nil {
			s.writeJSONError(w, r, err)
			return
		}
		cfg, err := s.session.SetSplit(patch)
		if err != nil {
			s.writeJSONError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)

	case stage.KindModel:
		var patch modelConfigPatch
		if err := s.decodeJSON(r, &patch); err != nil {
			s.writeJSONError(w, r, err)
			return
		}
		if err := s.applyModelPatch(patch); err != nil {
			s.writeJSONError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s.session.Snapshot().Model)

	default:
		s.writeJSONError(w, r, errors.NewValidation("kind", "stage %q has no configuration", kind))
	}
}

// applyModelPatch applies the model sub-patches. Each store operation is
// individually atomic, so stopping at the first failure never leaves an
// invalid configuration behind.
func (s *Server) applyModelPatch(patch modelConfigPatch) error {
	if patch.Type != nil {
		if err := s.session.SetModelType(*patch.Type); err != nil {
			return err
		}
	}
	if patch.Hyperparameters != nil {
		if err := s.session.SetHyperparameters(patch.Hyperparameters); err != nil {
			return err
		}
	}
	if patch.CrossValidation != nil {
		if err := s.session.SetCrossValidation(*patch.CrossValidation); err != nil {
			return err
		}
	}
	if patch.GridSearch != nil {
		if err := s.session.SetGridSearch(*patch.GridSearch); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleUploadDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeJSONError(w, r, errors.NewValidation("file", "multipart file field is required: %v", err))
		return
	}
	defer file.Close()

	handle, err := s.session.UploadDataset(r.Context(), header.Filename, file)
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, handle)
}

type selectionRequest struct {
	Features []string `json:"features"`
	Target   string   `json:"target"`
}

func (s *Server) handleSelectFeatures(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeJSONError(w, r, err)
		return
	}

	if err := s.session.SelectFeatures(req.Features, req.Target); err != nil {
		s.writeJSONError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, s.session.Snapshot().Dataset)
}

func (s *Server) handleClearDataset(w http.ResponseWriter, r *http.Request) {
	s.session.ClearDataset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatuses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"revision": s.session.Revision(),
		"statuses": s.session.Statuses(),
	})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions := s.session.Suggestions()
	if suggestions == nil {
		suggestions = []suggest.Suggestion{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	result, err := s.session.Train(r.Context())
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	result, current := s.session.LastResult()
	if result == nil {
		s.writeJSONError(w, r, errors.ErrNoResult)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"current": current,
		"result":  result,
	})
}

type predictRequest struct {
	Data []map[string]any `json:"data"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeJSONError(w, r, err)
		return
	}

	predictions, err := s.session.Predict(r.Context(), req.Data)
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"predictions": predictions})
}

type explainRequest struct {
	StepType    string                  `json:"stepType"`
	DatasetInfo *explain.DatasetContext `json:"datasetInfo"`
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeJSONError(w, r, err)
		return
	}
	if req.StepType == "" {
		s.writeJSONError(w, r, errors.NewValidation("stepType", "stepType is required"))
		return
	}

	// Unknown step types are not rejected: the explainer serves its
	// generic text for them, so a newer UI never hard-fails here.
	exp := s.session.Explain(r.Context(), stage.Kind(req.StepType), req.DatasetInfo)

	writeJSON(w, http.StatusOK, map[string]any{
		"kind":        exp.Kind,
		"explanation": exp.Text,
		"source":      exp.Source,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")

	raw, err := s.session.Export(name)
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFileName(name)))
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

// exportFileName builds a safe download name from the user-chosen pipeline
// name.
func exportFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "pipeline"
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '"', '\n', '\r':
			return '-'
		}
		return r
	}, name)
	return name + ".json"
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	raw, err := s.readBody(r)
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}

	if err := s.session.Import(raw); err != nil {
		s.writeJSONError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, s.graph())
}

type saveRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleSavePipeline(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeJSONError(w, r, err)
		return
	}

	entry, err := s.session.SavePipeline(req.Name)
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleListPipelines(w http.ResponseWriter, r *http.Request) {
	entries, err := s.session.ListPipelines()
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}
	if entries == nil {
		entries = []document.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pipelines": entries})
}

func (s *Server) handleGetPipeline(w http.ResponseWriter, r *http.Request) {
	doc, err := s.session.GetPipeline(r.PathValue("id"))
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeletePipeline(w http.ResponseWriter, r *http.Request) {
	if err := s.session.DeletePipeline(r.PathValue("id")); err != nil {
		s.writeJSONError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLoadPipeline(w http.ResponseWriter, r *http.Request) {
	if err := s.session.LoadPipeline(r.PathValue("id")); err != nil {
		s.writeJSONError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.graph())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.session.Reset()
	w.WriteHeader(http.StatusNoContent)
}
