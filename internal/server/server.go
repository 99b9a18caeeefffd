package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"bookworm/internal/app"
	"bookworm/internal/ratelimit"
	"bookworm/internal/util"
	"bookworm/pkg/auth"
	"bookworm/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
	// AuthLimiter throttles register/login per client IP; nil disables
	// throttling (tests).
	AuthLimiter           *ratelimit.FixedWindowLimiter
	TrustForwardedHeaders bool
}

// Server exposes the REST endpoints.
type Server struct {
	app            *app.App
	authLimiter    *ratelimit.FixedWindowLimiter
	trustForwarded bool
	validate       *validator.Validate
	mux            *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:            cfg.App,
		authLimiter:    cfg.AuthLimiter,
		trustForwarded: cfg.TrustForwardedHeaders,
		validate:       validator.New(),
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler wrapped in the middleware chain.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	// auth
	s.mux.HandleFunc("/api/auth/register", s.rateLimited(s.handleRegister))
	s.mux.HandleFunc("/api/auth/login", s.rateLimited(s.handleLogin))
	s.mux.HandleFunc("/api/auth/logout", s.handleLogout)

	// books
	s.mux.Handle("/api/books", s.authenticated(s.handleBooks))
	s.mux.Handle("/api/books/user", s.authenticated(s.handleMyBooks))
	s.mux.Handle("/api/books/", s.authenticated(s.handleBookByID))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type authedHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authedHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "No authentication token, access denied")
			return
		}
		user, ok := s.app.UserFromToken(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Token is not valid")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authLimiter != nil {
			ip := util.ClientIP(r, s.trustForwarded)
			if !s.authLimiter.Allow(ip) {
				writeError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
				return
			}
		}
		next(w, r)
	}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type createBookRequest struct {
	Title   string `json:"title" validate:"required"`
	Caption string `json:"caption" validate:"required"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Image   string `json:"image" validate:"required"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req registerRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	user, token, err := s.app.Register(req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrAllFieldsRequired),
			errors.Is(err, app.ErrEmailExists),
			errors.Is(err, app.ErrUsernameExists),
			errors.Is(err, auth.ErrPasswordTooShort),
			errors.Is(err, auth.ErrUsernameTooShort):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			internalError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req loginRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	user, token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, app.ErrInvalidCredentials) || errors.Is(err, app.ErrAllFieldsRequired) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "No authentication token, access denied")
		return
	}
	if err := s.app.Logout(token); err != nil {
		internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		s.handleListBooks(w, r)
	case http.MethodPost:
		s.handleCreateBook(w, r, user)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", app.DefaultPageLimit)
	result, err := s.app.ListBooks(page, limit)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req createBookRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	book, err := s.app.CreateBook(r.Context(), user, req.Title, req.Caption, req.Rating, req.Image)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrAllFieldsRequired),
			errors.Is(err, app.ErrInvalidRating),
			errors.Is(err, app.ErrImageRequired):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			internalError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (s *Server) handleMyBooks(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	books, err := s.app.ListBooksByOwner(user)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

// /api/books/{id}
func (s *Server) handleBookByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	id := strings.TrimPrefix(r.URL.Path, "/api/books/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	if err := s.app.DeleteBook(r.Context(), user, id); err != nil {
		switch {
		case errors.Is(err, app.ErrBookNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, app.ErrNotOwner):
			writeError(w, http.StatusUnauthorized, err.Error())
		default:
			internalError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Book deleted successfully"})
}

func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 8<<20)).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// validationMessage converts the first validator error into the
// user-facing message wording of the original API.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return "All fields are required"
	case "email":
		return "Invalid email address"
	case "min":
		if field == "rating" {
			return "Rating must be between 1 and 5"
		}
		return capitalize(field) + " should be at least " + fe.Param() + " characters long"
	case "max":
		if field == "rating" {
			return "Rating must be between 1 and 5"
		}
	}
	return "Invalid " + field
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", false
	}
	return token, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	util.LoggerFromContext(r.Context()).Error("internal error", "err", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}
