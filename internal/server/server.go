package server

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"resumelens/internal/app"
	"resumelens/internal/util"
	"resumelens/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	SessionSecret  string
	SessionTTL     time.Duration
	StaticDir      string
	RequireLogin   bool
	MaxUploadBytes int64
}

// Server exposes the HTTP surface: auth endpoints, the upload/analyze
// endpoint, demo status, and the static pages.
type Server struct {
	app            *app.App
	codec          *sessionCodec
	mux            *http.ServeMux
	static         http.Handler
	staticDir      string
	requireLogin   bool
	maxUploadBytes int64
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server requires an app")
	}
	if strings.TrimSpace(cfg.SessionSecret) == "" {
		return nil, errors.New("server requires a session secret")
	}
	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = "web"
	}
	s := &Server{
		app:            cfg.App,
		codec:          newSessionCodec(cfg.SessionSecret, cfg.SessionTTL),
		mux:            http.NewServeMux(),
		static:         http.FileServer(http.Dir(staticDir)),
		staticDir:      staticDir,
		requireLogin:   cfg.RequireLogin,
		maxUploadBytes: normalizeMaxBytes(cfg.MaxUploadBytes),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler behind the middleware chain.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(util.WithRequestLog("resumelens", s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.HandleFunc("/register", s.handleRegister)
	s.mux.HandleFunc("/login", s.handleLogin)
	s.mux.HandleFunc("/logout", s.handleLogout)
	s.mux.HandleFunc("/demo-status", s.handleDemoStatus)
	s.mux.HandleFunc("/upload", s.handleUpload)

	// everything else is the static frontend
	s.mux.HandleFunc("/", s.handleStatic)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// session resolves the request's session, creating one (and setting the
// cookie) when the browser has none or presents an invalid token.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (domain.Session, error) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		id, err := s.codec.Decode(cookie.Value)
		if err == nil {
			sess, ok, err := s.app.GetSession(id)
			if err != nil {
				return domain.Session{}, err
			}
			if ok {
				return sess, nil
			}
		} else {
			s.audit(r, "session.decode", "fail", "reason", err.Error())
		}
	}
	sess, err := s.app.NewSession()
	if err != nil {
		return domain.Session{}, err
	}
	token, err := s.codec.Encode(sess.ID)
	if err != nil {
		return domain.Session{}, err
	}
	s.codec.setCookie(w, r, token)
	return sess, nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.audit(r, "register", "fail", "reason", "invalid_json")
		writeFailure(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.app.Register(req.Username, req.Password); err != nil {
		s.audit(r, "register", "fail", "username", req.Username, "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "register", "success", "username", req.Username)
	writeJSON(w, http.StatusCreated, successResponse{Success: true})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	sess, err := s.session(w, r)
	if err != nil {
		s.audit(r, "login", "fail", "reason", "session_unavailable")
		writeFailure(w, http.StatusInternalServerError, "Analysis failed")
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.audit(r, "login", "fail", "reason", "invalid_json")
		writeFailure(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if _, err := s.app.Login(sess, req.Username, req.Password); err != nil {
		s.audit(r, "login", "fail", "username", req.Username, "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "login", "success", "username", req.Username)
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if id, err := s.codec.Decode(cookie.Value); err == nil {
			if err := s.app.Logout(id); err != nil {
				s.audit(r, "logout", "fail", "reason", err.Error())
			}
		}
	}
	s.codec.clearCookie(w, r)
	s.audit(r, "logout", "success")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDemoStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	sess, err := s.session(w, r)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "Analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, s.app.DemoStatus(sess))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	sess, err := s.session(w, r)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "Analysis failed")
		return
	}

	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.audit(r, "upload", "fail", "reason", "invalid_form")
		writeFailure(w, http.StatusBadRequest, app.ErrNoFile.Error())
		return
	}
	file, header, err := r.FormFile("resume")
	if err != nil {
		s.audit(r, "upload", "fail", "reason", "missing_file")
		writeFailure(w, http.StatusBadRequest, app.ErrNoFile.Error())
		return
	}
	defer file.Close()

	sess, err = s.app.Admit(sess)
	if err != nil {
		s.audit(r, "upload", "fail", "reason", err.Error())
		writeAppError(w, err)
		return
	}

	result, err := s.app.Analyze(r.Context(), app.AnalysisRequest{
		Filename:       header.Filename,
		DeclaredType:   declaredType(header.Header.Get("Content-Type"), header.Filename),
		File:           file,
		JobDescription: r.FormValue("jobdesc"),
	})
	if err != nil {
		s.audit(r, "upload", "fail", "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "upload", "success", "mode", string(result.Mode))

	status := s.app.DemoStatus(sess)
	writeJSON(w, http.StatusOK, analysisResponse{
		Success:        true,
		Analysis:       result,
		RemainingTries: status.RemainingTries,
	})
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w)
		return
	}
	if r.URL.Path == "/" {
		http.Redirect(w, r, "/index.html", http.StatusSeeOther)
		return
	}
	if s.requireLogin && r.URL.Path != "/login.html" {
		sess, err := s.session(w, r)
		if err != nil || !sess.Authenticated() {
			http.Redirect(w, r, "/login.html", http.StatusSeeOther)
			return
		}
	}
	s.static.ServeHTTP(w, r)
}

// declaredType prefers the multipart part's Content-Type and falls back to
// the filename extension when the browser sent nothing useful.
func declaredType(contentType, filename string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return contentType
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type analysisResponse struct {
	Success        bool                  `json:"success"`
	Analysis       domain.AnalysisResult `json:"analysis"`
	RemainingTries *int                  `json:"remainingTries"`
}

func methodNotAllowed(w http.ResponseWriter) {
	writeFailure(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, successResponse{Success: false, Message: msg})
}

// writeAppError maps the app sentinel errors onto HTTP statuses; anything
// unrecognized becomes a generic 500 so no internal detail leaks.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrValidation),
		errors.Is(err, app.ErrNoFile),
		errors.Is(err, app.ErrUnsupportedFormat):
		writeFailure(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrRegistration):
		writeFailure(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrUserNotFound),
		errors.Is(err, app.ErrInvalidCredentials),
		errors.Is(err, app.ErrQuotaExceeded):
		writeFailure(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrExtraction),
		errors.Is(err, app.ErrCompletion),
		errors.Is(err, app.ErrResponseFormat):
		writeFailure(w, http.StatusBadGateway, err.Error())
	default:
		writeFailure(w, http.StatusInternalServerError, "Analysis failed")
	}
}

func normalizeMaxBytes(value int64) int64 {
	if value <= 0 {
		return 10 * 1024 * 1024
	}
	return value
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", clientIP(r),
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == "success" {
		logger.Info("security_event", logAttrs...)
		return
	}
	logger.Warn("security_event", logAttrs...)
}

func clientIP(r *http.Request) string {
	if xfwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xfwd != "" {
		parts := strings.Split(xfwd, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
