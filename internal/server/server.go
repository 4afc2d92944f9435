package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"pubreview/internal/app"
	"pubreview/internal/ratelimit"
	"pubreview/internal/util"
	"pubreview/pkg/authz"
	"pubreview/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	Guard          *authz.Guard
	TokenLimiter   *ratelimit.FixedWindowLimiter
	TrustedProxies *util.TrustedProxies
}

// Server exposes the review workflow HTTP API.
type Server struct {
	app          *app.App
	guard        *authz.Guard
	tokenLimiter *ratelimit.FixedWindowLimiter
	trusted      *util.TrustedProxies
	mux          *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("app is required")
	}
	if cfg.Guard == nil {
		return nil, fmt.Errorf("authorization guard is required")
	}
	s := &Server{
		app:          cfg.App,
		guard:        cfg.Guard,
		tokenLimiter: cfg.TokenLimiter,
		trusted:      cfg.TrustedProxies,
		mux:          http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	// fallback so unknown routes answer with the JSON envelope
	s.mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) { notFound(w) })

	s.mux.HandleFunc("/healthz", s.handleHealth)

	// identities
	s.mux.HandleFunc("/roles", s.handleRoles)
	s.mux.HandleFunc("/roles/", s.handleToken)

	// publications and their feedbacks
	s.mux.HandleFunc("/publications", s.handlePublications)
	s.mux.HandleFunc("/publications/", s.handlePublicationSubtree)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{"status": "ok"})
}

// GET /roles/{credential}/token — public, rate limited per client IP.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/roles/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "token" {
		notFound(w)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if s.tokenLimiter != nil && !s.tokenLimiter.Allow(util.ClientIP(r, s.trusted)) {
		writeFailure(w, http.StatusTooManyRequests, "too many requests")
		return
	}
	token, err := s.app.IssueToken(parts[0])
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"token": token})
}

type roleRequest struct {
	Name  *string  `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// POST /roles
func (s *Server) handleRoles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if _, ok := s.authorize(w, r, domain.PermAddUser); !ok {
		return
	}
	var req roleRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Name == nil {
		writeFailure(w, http.StatusBadRequest, "information missing")
		return
	}
	identity, credential, err := s.app.CreateIdentity(*req.Name, req.Email, req.Roles)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"person":     identity.Format(),
		"identifier": credential,
	})
}

type publicationRequest struct {
	DatasetID    *int64  `json:"datasetId"`
	InvocationID *string `json:"invocationId"`
	DisplayName  *string `json:"datasetDisplayName"`
	DOI          *string `json:"datasetGlobalId"`
}

// GET /publications, POST /publications
func (s *Server) handlePublications(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := s.authorize(w, r, domain.PermGetPublications); !ok {
			return
		}
		pubs, err := s.app.ListPublications()
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		views := make([]domain.PublicationView, 0, len(pubs))
		for _, pub := range pubs {
			views = append(views, pub.Format())
		}
		writeSuccess(w, http.StatusOK, map[string]any{"publications": views})
	case http.MethodPost:
		if _, ok := s.authorize(w, r, domain.PermPostPublication); !ok {
			return
		}
		var req publicationRequest
		if !s.decodeBody(w, r, &req) {
			return
		}
		pub, err := s.app.CreatePublication(app.PublicationInput{
			DatasetID:    req.DatasetID,
			InvocationID: req.InvocationID,
			DisplayName:  req.DisplayName,
			DOI:          req.DOI,
		})
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, map[string]any{
			"created":     pub.ID,
			"publication": pub.Format(),
		})
	default:
		methodNotAllowed(w)
	}
}

// handlePublicationSubtree dispatches everything below /publications/:
//
//	{pid}
//	{pid}/publish | export | giveok
//	{pid}/feedbacks
//	{pid}/feedbacks/{fid}
//	{pid}/feedbacks/{fid}/done
func (s *Server) handlePublicationSubtree(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/publications/")
	parts := strings.Split(path, "/")
	pid := parts[0]
	if pid == "" {
		notFound(w)
		return
	}

	switch {
	case len(parts) == 1:
		s.handlePublicationByID(w, r, pid)
	case len(parts) == 2 && parts[1] == "publish":
		s.handleTransition(w, r, pid, domain.PermPublishPublication, s.app.Publish)
	case len(parts) == 2 && parts[1] == "export":
		s.handleTransition(w, r, pid, domain.PermExportPublication, s.app.Export)
	case len(parts) == 2 && parts[1] == "giveok":
		s.handleTransition(w, r, pid, domain.PermGiveOkToPublication, s.app.RegisterOk)
	case len(parts) == 2 && parts[1] == "feedbacks":
		s.handleFeedbacks(w, r, pid)
	case len(parts) == 3 && parts[1] == "feedbacks" && parts[2] != "":
		s.handleFeedbackByID(w, r, pid, parts[2])
	case len(parts) == 4 && parts[1] == "feedbacks" && parts[3] == "done":
		s.handleFeedbackDone(w, r, pid, parts[2])
	default:
		notFound(w)
	}
}

func (s *Server) handlePublicationByID(w http.ResponseWriter, r *http.Request, pid string) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := s.authorize(w, r, domain.PermGetPublication); !ok {
			return
		}
		pub, err := s.app.GetPublication(pid)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, map[string]any{"publication": pub.Format()})
	case http.MethodDelete:
		if _, ok := s.authorize(w, r, domain.PermDeletePublication); !ok {
			return
		}
		pub, err := s.app.DeletePublication(pid)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, map[string]any{"deleted": pub.ID})
	default:
		methodNotAllowed(w)
	}
}

type transitionFunc func(ctx context.Context, publicationID string) (domain.Publication, error)

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request, pid string, perm domain.Permission, op transitionFunc) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w)
		return
	}
	if _, ok := s.authorize(w, r, perm); !ok {
		return
	}
	pub, err := op(r.Context(), pid)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"publication": pub.Format()})
}

type feedbackRequest struct {
	Text *string `json:"text"`
	Done *bool   `json:"done"`
}

// GET /publications/{pid}/feedbacks, POST /publications/{pid}/feedbacks
func (s *Server) handleFeedbacks(w http.ResponseWriter, r *http.Request, pid string) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := s.authorize(w, r, domain.PermGetFeedback); !ok {
			return
		}
		pub, feedbacks, err := s.app.ListFeedbacks(pid)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		views := make([]domain.FeedbackView, 0, len(feedbacks))
		for _, fb := range feedbacks {
			views = append(views, fb.Format())
		}
		writeSuccess(w, http.StatusOK, map[string]any{
			"publication": pub.Format(),
			"feedbacks":   views,
		})
	case http.MethodPost:
		claims, ok := s.authorize(w, r, domain.PermPostFeedback)
		if !ok {
			return
		}
		var req feedbackRequest
		if !s.decodeBody(w, r, &req) {
			return
		}
		text := ""
		if req.Text != nil {
			text = *req.Text
		}
		fb, err := s.app.CreateFeedback(pid, text, claims.ID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, map[string]any{
			"created":  fb.ID,
			"feedback": fb.Format(),
		})
	default:
		methodNotAllowed(w)
	}
}

// GET/PATCH/DELETE /publications/{pid}/feedbacks/{fid}
func (s *Server) handleFeedbackByID(w http.ResponseWriter, r *http.Request, pid, fid string) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := s.authorize(w, r, domain.PermGetFeedback); !ok {
			return
		}
		fb, err := s.app.GetFeedback(pid, fid)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, map[string]any{"feedback": fb.Format()})
	case http.MethodPatch:
		if _, ok := s.authorize(w, r, domain.PermPatchFeedback); !ok {
			return
		}
		var req feedbackRequest
		if !s.decodeBody(w, r, &req) {
			return
		}
		fb, err := s.app.UpdateFeedback(pid, fid, req.Text, req.Done)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, map[string]any{
			"changed":  fb.ID,
			"feedback": fb.Format(),
		})
	case http.MethodDelete:
		if _, ok := s.authorize(w, r, domain.PermDeleteFeedback); !ok {
			return
		}
		fb, err := s.app.DeleteFeedback(pid, fid)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, map[string]any{"deleted": fb.ID})
	default:
		methodNotAllowed(w)
	}
}

// PATCH /publications/{pid}/feedbacks/{fid}/done
func (s *Server) handleFeedbackDone(w http.ResponseWriter, r *http.Request, pid, fid string) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w)
		return
	}
	if _, ok := s.authorize(w, r, domain.PermCompleteFeedback); !ok {
		return
	}
	var req feedbackRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	fb, err := s.app.CompleteFeedback(pid, fid, req.Done)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"changed":  fb.ID,
		"feedback": fb.Format(),
	})
}

func (s *Server) authorize(w http.ResponseWriter, r *http.Request, required domain.Permission) (authz.Claims, bool) {
	claims, aerr := s.guard.Authorize(r.Header.Get("Authorization"), required)
	if aerr != nil {
		writeFailure(w, aerr.Status, aerr.Description)
		return authz.Claims{}, false
	}
	return claims, true
}

// decodeBody parses the JSON request body. A missing or undecodable body is
// reported as missing information.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		writeFailure(w, http.StatusBadRequest, "information missing")
		return false
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst); err != nil {
		writeFailure(w, http.StatusBadRequest, "information missing")
		return false
	}
	return true
}

func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *app.ValidationError
	var werr *app.WorkflowError
	var perr *app.PersistenceError
	switch {
	case errors.Is(err, app.ErrNotFound):
		notFound(w)
	case errors.Is(err, app.ErrMissingInput):
		writeFailure(w, http.StatusBadRequest, "information missing")
	case errors.Is(err, app.ErrFeedbackMismatch):
		writeFailure(w, http.StatusConflict, app.ErrFeedbackMismatch.Error())
	case errors.As(err, &verr):
		writeFailure(w, http.StatusBadRequest, verr.Message)
	case errors.As(err, &werr):
		writeFailure(w, http.StatusConflict, werr.Message)
	case errors.As(err, &perr):
		writeFailure(w, http.StatusUnprocessableEntity, perr.Error())
	default:
		util.LoggerFromContext(r.Context()).Error("unhandled request error", "error", err)
		writeFailure(w, http.StatusInternalServerError, "internal server error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeFailure(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter) {
	writeFailure(w, http.StatusNotFound, "resource not found")
}

// writeSuccess emits the success envelope, merging payload keys next to the
// success flag.
func writeSuccess(w http.ResponseWriter, status int, payload map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	writeJSON(w, status, body)
}

type failureEnvelope struct {
	Success bool   `json:"success"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, failureEnvelope{Success: false, Error: status, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
