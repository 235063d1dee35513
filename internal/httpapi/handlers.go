package httpapi

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"github.com/nikbrunner/minitab/internal/app"
	"github.com/nikbrunner/minitab/internal/apperr"
	"github.com/nikbrunner/minitab/internal/auth"
	"github.com/nikbrunner/minitab/internal/describe"
	"github.com/nikbrunner/minitab/internal/importer"
	"github.com/nikbrunner/minitab/internal/logger"
	"github.com/nikbrunner/minitab/internal/migrate"
	"github.com/nikbrunner/minitab/internal/model"
	"github.com/nikbrunner/minitab/internal/storage"
)

type handlers struct {
	db        *sqlx.DB
	auth      *auth.Service
	lib       *app.Library
	migrator  *migrate.Migrator
	describer describe.Describer
	log       logger.Logger
}

// fail logs substrate errors before answering with err.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.CodeOf(err) == apperr.CodeBackend {
		h.log.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.Error(err))
	}
	writeError(w, err)
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		h.log.Warn("health check failed", logger.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) signUp(w http.ResponseWriter, r *http.Request) {
	var c auth.Credentials
	if err := decode(w, r, maxBodySize, &c); err != nil {
		h.fail(w, r, err)
		return
	}
	sess, err := h.auth.SignUp(r.Context(), c)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *handlers) signIn(w http.ResponseWriter, r *http.Request) {
	var c auth.Credentials
	if err := decode(w, r, maxBodySize, &c); err != nil {
		h.fail(w, r, err)
		return
	}
	sess, err := h.auth.SignIn(r.Context(), c)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *handlers) signOut(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(r.Context(), sessionFrom(r.Context()).Token); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r.Context()).User)
}

func (h *handlers) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.lib.Groups(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(groups))
}

func (h *handlers) createGroup(w http.ResponseWriter, r *http.Request) {
	var form app.GroupForm
	if err := decode(w, r, maxBodySize, &form); err != nil {
		h.fail(w, r, err)
		return
	}
	g, err := h.lib.AddGroup(r.Context(), form.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (h *handlers) updateGroup(w http.ResponseWriter, r *http.Request) {
	var form app.GroupForm
	if err := decode(w, r, maxBodySize, &form); err != nil {
		h.fail(w, r, err)
		return
	}
	g, err := h.lib.RenameGroup(r.Context(), chi.URLParam(r, "id"), form.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *handlers) deleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.lib.DeleteGroup(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type orderRequest struct {
	IDs []string `json:"ids"`
}

// reorderGroups answers a failed reorder with the error and the stored
// order so the client can re-sync.
func (h *handlers) reorderGroups(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decode(w, r, maxBodySize, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	groups, err := h.lib.ReorderGroups(r.Context(), req.IDs)
	if err != nil {
		var e *apperr.Error
		if groups == nil || !errors.As(err, &e) {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, e.HTTPStatus(), errorBody{Code: e.Code, Message: e.Message, Details: orEmpty(groups)})
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(groups))
}

func (h *handlers) groupBookmarks(w http.ResponseWriter, r *http.Request) {
	bookmarks, err := h.lib.Bookmarks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(bookmarks))
}

func (h *handlers) exportGroup(w http.ResponseWriter, r *http.Request) {
	name, content, err := h.lib.ExportGroup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	_, _ = w.Write([]byte(content))
}

func (h *handlers) listBookmarks(w http.ResponseWriter, r *http.Request) {
	bookmarks, err := h.lib.AllBookmarks(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(bookmarks))
}

func (h *handlers) createBookmark(w http.ResponseWriter, r *http.Request) {
	var form app.BookmarkForm
	if err := decode(w, r, maxBodySize, &form); err != nil {
		h.fail(w, r, err)
		return
	}
	b, err := h.lib.AddBookmark(r.Context(), form)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *handlers) updateBookmark(w http.ResponseWriter, r *http.Request) {
	var patch model.BookmarkPatch
	if err := decode(w, r, maxBodySize, &patch); err != nil {
		h.fail(w, r, err)
		return
	}
	b, err := h.lib.UpdateBookmark(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *handlers) deleteBookmark(w http.ResponseWriter, r *http.Request) {
	if err := h.lib.DeleteBookmark(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	results, err := h.lib.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(results))
}

type parseRequest struct {
	Content string `json:"content"`
}

type parseResponse struct {
	Groups []importer.ParsedGroup `json:"groups"`
	Count  int                    `json:"count"`
}

func (h *handlers) parseImport(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := decode(w, r, maxImportSize, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	groups := h.lib.ParseImport(req.Content)
	writeJSON(w, http.StatusOK, parseResponse{Groups: orEmpty(groups), Count: importer.Count(groups)})
}

type importRequest struct {
	Groups []importer.ParsedGroup `json:"groups"`
}

func (h *handlers) runImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decode(w, r, maxImportSize, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.lib.Import(r.Context(), req.Groups)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

type migrateRequest struct {
	Groups    []model.Group    `json:"groups"`
	Bookmarks []model.Bookmark `json:"bookmarks"`
	Journal   *migrate.Journal `json:"journal,omitempty"`
}

type migrateResponse struct {
	Report   migrate.Report   `json:"report"`
	Complete bool             `json:"complete"`
	Journal  *migrate.Journal `json:"journal,omitempty"`
}

// migrate copies the browser's local records into the account. A partial
// run answers 207 with the journal to send back on the next attempt; the
// client clears its records only when complete is true.
func (h *handlers) migrate(w http.ResponseWriter, r *http.Request) {
	var req migrateRequest
	if err := decode(w, r, maxImportSize, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	if !migrate.HasUserData(req.Groups, req.Bookmarks) {
		writeJSON(w, http.StatusOK, migrateResponse{Complete: true})
		return
	}

	src, err := migrate.NewMemorySource(req.Groups, req.Bookmarks, req.Journal)
	if err != nil {
		h.fail(w, r, apperr.Validation("invalid journal"))
		return
	}

	ctx := r.Context()
	target, ok := storage.FromContext(ctx)
	if !ok {
		h.fail(w, r, apperr.Unauthorized("authentication required"))
		return
	}

	report, err := h.migrator.Run(ctx, sessionFrom(ctx).User.ID, src, target)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, migrateResponse{Report: report, Complete: true})
	case apperr.CodeOf(err) == apperr.CodePartial:
		writeJSON(w, http.StatusMultiStatus, migrateResponse{Report: report, Journal: src.Journal()})
	default:
		h.fail(w, r, err)
	}
}

func (h *handlers) describe(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("url"))
	if raw == "" {
		h.fail(w, r, apperr.ValidationWithDetails("url is required", map[string]string{"url": "is required"}))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"description": h.describer.Describe(r.Context(), raw)})
}
