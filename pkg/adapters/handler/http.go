package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/wadjakorntonsri/custom-links/pkg/core/domain"
	"github.com/wadjakorntonsri/custom-links/pkg/ports"
)

type HTTPHandler struct {
	service ports.LinkStore
	logger  *slog.Logger
}

func NewHTTPHandler(service ports.LinkStore, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, logger: logger}
}

// TargetRequest payload for create and target updates
type TargetRequest struct {
	Target string `json:"target"`
}

// OwnerRequest payload for ownership transfer
type OwnerRequest struct {
	Owner string `json:"owner"`
}

// Redirect sends the client to the target of the requested path and records
// the access.
func (h *HTTPHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path == "/" {
		http.NotFound(w, r)
		return
	}

	link, err := h.service.GetLink(r.Context(), r.URL.Path, ports.GetLinkOptions{
		RecordAccess: r.URL.Query().Get("no_stat") == "",
	})
	if err != nil || link.Target == "" {
		h.writeError(w, err)
		return
	}
	http.Redirect(w, r, link.Target, http.StatusFound)
}

func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	path, ok := linkPath(w, r)
	if !ok {
		return
	}
	var req TargetRequest
	if !decode(w, r, &req) || !validTarget(w, req.Target) {
		return
	}

	link, err := h.service.CreateLink(r.Context(), path, req.Target, UserFromContext(r.Context()))
	if err != nil {
		// the link is live even though an index update failed
		if link != nil && errors.Is(err, domain.ErrPartialFailure) && !errors.Is(err, domain.ErrOwnerVanished) {
			h.logger.Error("link created with partial failure", "path", path, "error", err)
			writeJSON(w, http.StatusCreated, link)
			return
		}
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (h *HTTPHandler) Info(w http.ResponseWriter, r *http.Request) {
	path, ok := linkPath(w, r)
	if !ok {
		return
	}
	link, err := h.service.GetLink(r.Context(), path, ports.GetLinkOptions{})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (h *HTTPHandler) UpdateTarget(w http.ResponseWriter, r *http.Request) {
	path, ok := linkPath(w, r)
	if !ok {
		return
	}
	var req TargetRequest
	if !decode(w, r, &req) || !validTarget(w, req.Target) {
		return
	}
	err := h.service.UpdateProperty(r.Context(), path, UserFromContext(r.Context()), domain.FieldTarget, req.Target)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) UpdateOwner(w http.ResponseWriter, r *http.Request) {
	path, ok := linkPath(w, r)
	if !ok {
		return
	}
	var req OwnerRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Owner == "" {
		http.Error(w, "owner is required", http.StatusBadRequest)
		return
	}
	if err := h.service.ChangeOwner(r.Context(), path, UserFromContext(r.Context()), req.Owner); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	path, ok := linkPath(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteLink(r.Context(), path, UserFromContext(r.Context())); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UserLinks lists the links owned by the signed-in user.
func (h *HTTPHandler) UserLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.GetOwnedLinks(r.Context(), UserFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"links": links})
}

func (h *HTTPHandler) LinksToTarget(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}
	paths, err := h.service.GetLinksToTarget(r.Context(), target)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"target": target, "links": paths})
}

func (h *HTTPHandler) SearchLinks(w http.ResponseWriter, r *http.Request) {
	paths, err := h.service.SearchShortLinks(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"links": paths})
}

func (h *HTTPHandler) SearchTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := h.service.SearchTargetLinks(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"targets": targets})
}

func (h *HTTPHandler) Complete(w http.ResponseWriter, r *http.Request) {
	paths, err := h.service.CompleteLink(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"links": paths})
}

// writeError maps link store failures onto HTTP statuses. Faults that leave
// the store inconsistent are logged in full.
func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	var exists *domain.AlreadyExistsError
	switch {
	case err == nil, errors.Is(err, domain.ErrLinkNotFound), errors.Is(err, domain.ErrPropertyNotFound):
		http.Error(w, "Link not found", http.StatusNotFound)
	case errors.As(err, &exists):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error(), "owner": exists.Owner})
	case errors.Is(err, domain.ErrNotOwner):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, domain.ErrUserNotFound):
		http.Error(w, "User not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidProperty), errors.Is(err, domain.ErrPrefixTooShort):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("link store failure", "error", err,
			"integrity", errors.Is(err, domain.ErrIntegrity),
			"partial", errors.Is(err, domain.ErrPartialFailure))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func linkPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	path := r.PathValue("path")
	if path == "" {
		http.Error(w, "Link path missing", http.StatusBadRequest)
		return "", false
	}
	return "/" + path, true
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func validTarget(w http.ResponseWriter, target string) bool {
	u, err := url.ParseRequestURI(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		http.Error(w, "target must be an absolute http(s) URL", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
