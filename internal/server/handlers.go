package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/conneroisu/blockwright/internal/errors"
	"github.com/conneroisu/blockwright/internal/export"
	"github.com/conneroisu/blockwright/internal/registry"
	"github.com/conneroisu/blockwright/internal/tree"
	"github.com/conneroisu/blockwright/internal/validation"
	"github.com/conneroisu/blockwright/internal/version"
)

const maxBodyBytes = 1 << 20

// Operation is one builder edit sent to a session. Op selects which of the
// other fields are read.
type Operation struct {
	Op        string          `json:"op"`
	Component string          `json:"component,omitempty"`
	NodeID    tree.NodeID     `json:"nodeId,omitempty"`
	ParentID  tree.NodeID     `json:"parentId,omitempty"`
	Slot      string          `json:"slot,omitempty"`
	Index     int             `json:"index,omitempty"`
	Prop      string          `json:"prop,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
	Text      string          `json:"text,omitempty"`
	Exposed   bool            `json:"exposed,omitempty"`
	Name      string          `json:"name,omitempty"`
}

// SessionView is the JSON form of a session's state.
type SessionView struct {
	ID         string            `json:"id"`
	Tree       []map[string]any  `json:"tree"`
	Selected   tree.NodeID       `json:"selected,omitempty"`
	Validation validation.Result `json:"validation"`
}

// OperationResult is the response to an operation.
type OperationResult struct {
	NodeID  tree.NodeID `json:"nodeId,omitempty"`
	Mode    string      `json:"mode,omitempty"`
	Session SessionView `json:"session"`
}

// RegistryView is the JSON form of the component registry.
type RegistryView struct {
	RootComponent         string                 `json:"rootComponent"`
	Categories            []string               `json:"categories"`
	Components            []*registry.Descriptor `json:"components"`
	NestedBlockProperties []string               `json:"nestedBlockProperties"`
	PageSectionCategories []string               `json:"pageSectionCategories"`
}

type errorResponse struct {
	Error   string                 `json:"error"`
	Type    string                 `json:"type,omitempty"`
	Code    string                 `json:"code,omitempty"`
	NodeID  string                 `json:"nodeId,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps an error category to an HTTP status.
func statusFor(err error) int {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeLookup:
		return http.StatusNotFound
	case errors.ErrorTypeStructural, errors.ErrorTypeValidation:
		return http.StatusConflict
	case errors.ErrorTypeInput, errors.ErrorTypeConfig:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}

	if be, ok := errors.AsBuilderError(err); ok {
		resp.Type = string(be.Type)
		resp.Code = be.Code
		resp.NodeID = be.NodeID
		resp.Context = be.Context
		resp.Error = be.Message
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), err, "request failed", "path", r.URL.Path)
	} else {
		s.logger.Debug(r.Context(), "request rejected", "path", r.URL.Path, "error", err.Error())
	}

	writeJSON(w, status, resp)
}

// withSession resolves the {id} path value to a live session.
func (s *Server) withSession(fn func(http.ResponseWriter, *http.Request, *entry)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := s.lookup(r.PathValue("id"))
		if !ok {
			writeErrorMessage(w, http.StatusNotFound, "session not found")
			return
		}

		fn(w, r, e)
	}
}

func (e *entry) view() SessionView {
	return SessionView{
		ID:         e.id,
		Tree:       e.session.Tree().Encode(),
		Selected:   e.session.Selected(),
		Validation: e.session.Validation(),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":     "healthy",
		"timestamp":  time.Now().UTC(),
		"version":    version.GetShortVersion(),
		"build_info": version.GetBuildInfo(),
		"checks": map[string]interface{}{
			"registry": map[string]interface{}{"status": "healthy", "components": len(s.Registry().All())},
			"sessions": map[string]interface{}{"status": "healthy", "active": len(s.entries())},
		},
	}

	writeJSON(w, http.StatusOK, health)
}

func (s *Server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	reg := s.Registry()

	writeJSON(w, http.StatusOK, RegistryView{
		RootComponent:         reg.RootPath(),
		Categories:            reg.Categories(),
		Components:            reg.All(),
		NestedBlockProperties: reg.NestedBlockProperties(),
		PageSectionCategories: reg.PageSectionCategories(),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	type summary struct {
		ID      string    `json:"id"`
		Nodes   int       `json:"nodes"`
		Valid   bool      `json:"isValid"`
		Created time.Time `json:"created"`
	}

	entries := s.entries()
	out := make([]summary, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, summary{
			ID:      e.id,
			Nodes:   e.session.Tree().Len(),
			Valid:   e.session.Validation().Valid,
			Created: e.created,
		})
		e.mu.Unlock()
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	e, err := s.createSession(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	e.mu.Lock()
	view := e.view()
	e.mu.Unlock()

	w.Header().Set("Location", "/api/sessions/"+e.id)
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, e *entry) {
	e.mu.Lock()
	view := e.view()
	e.mu.Unlock()

	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.remove(id) {
		writeErrorMessage(w, http.StatusNotFound, "session not found")
		return
	}

	s.logger.Info(r.Context(), "session closed", "session", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleInsertable lists the components a picker offers for a slot.
func (s *Server) handleInsertable(w http.ResponseWriter, r *http.Request, e *entry) {
	q := r.URL.Query()
	parent := tree.NodeID(q.Get("parent"))

	e.mu.Lock()
	defer e.mu.Unlock()

	reg := e.session.Registry()
	var slot *registry.Slot
	if parent != "" {
		n, ok := e.session.Tree().Node(parent)
		if !ok {
			s.writeError(w, r, errors.ErrParentNotFound(string(parent)))
			return
		}
		if d, ok := reg.Get(n.Component); ok {
			slot, _ = d.Slot(q.Get("slot"))
		}
	}

	writeJSON(w, http.StatusOK, reg.Insertable(slot, q.Get("q")))
}

func (s *Server) handleOperation(w http.ResponseWriter, r *http.Request, e *entry) {
	var op Operation
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&op); err != nil {
		s.writeError(w, r, errors.NewInputError(errors.ErrCodeMalformedInput, "malformed operation", err))
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	result, err := s.apply(r, e, op)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	result.Session = e.view()

	writeJSON(w, http.StatusOK, result)
}

// apply runs op against the session. The caller holds the session lock.
func (s *Server) apply(r *http.Request, e *entry, op Operation) (OperationResult, error) {
	ctx := r.Context()
	sess := e.session

	var result OperationResult
	switch op.Op {
	case "add":
		id, err := sess.AddToSlot(ctx, op.Component, op.ParentID, op.Slot, op.Index)
		if err != nil {
			return result, err
		}
		result.NodeID = id
	case "move":
		if err := sess.Move(ctx, op.NodeID, op.ParentID, op.Slot, op.Index); err != nil {
			return result, err
		}
		result.NodeID = op.NodeID
	case "delete":
		if err := sess.Delete(ctx, op.NodeID); err != nil {
			return result, err
		}
	case "select":
		if err := sess.Select(op.NodeID); err != nil {
			return result, err
		}
		result.NodeID = op.NodeID
	case "toggle_slot_mode":
		mode, err := sess.ToggleSlotMode(ctx, op.NodeID, op.Slot)
		if err != nil {
			return result, err
		}
		result.NodeID = op.NodeID
		result.Mode = mode.String()
	case "update_property":
		var value any
		if len(op.Value) > 0 {
			if err := json.Unmarshal(op.Value, &value); err != nil {
				return result, errors.ErrMalformedInput(string(op.NodeID), op.Prop, err)
			}
		}
		if err := sess.UpdateProperty(ctx, op.NodeID, op.Prop, value); err != nil {
			return result, err
		}
		result.NodeID = op.NodeID
	case "update_property_json":
		if err := sess.UpdatePropertyJSON(ctx, op.NodeID, op.Prop, op.Text); err != nil {
			return result, err
		}
		result.NodeID = op.NodeID
	case "set_exposed":
		if err := sess.SetExposed(ctx, op.NodeID, op.Prop, op.Exposed); err != nil {
			return result, err
		}
		result.NodeID = op.NodeID
	case "rename":
		if err := sess.Rename(ctx, op.NodeID, op.Prop, op.Name); err != nil {
			return result, err
		}
		result.NodeID = op.NodeID
	default:
		return result, errors.NewInputError(errors.ErrCodeMalformedInput,
			fmt.Sprintf("unknown operation %q", op.Op), nil)
	}

	return result, nil
}

// handleExport generates the export bundle. The default response is the
// zip archive; format=json returns the bundle itself.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, e *entry) {
	var target export.Target
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&target); err != nil {
		s.writeError(w, r, errors.NewInputError(errors.ErrCodeMalformedInput, "malformed export target", err))
		return
	}

	e.mu.Lock()
	bundle, err := e.session.Export(r.Context(), target)
	e.mu.Unlock()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, bundle)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", bundle.ArchiveName()))
	w.WriteHeader(http.StatusOK)
	if err := bundle.WriteArchive(w); err != nil {
		s.logger.Error(r.Context(), err, "failed to stream archive")
	}
}
