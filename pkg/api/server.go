package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rubiojr/wsearch/pkg/log"
	"github.com/rubiojr/wsearch/pkg/search"
)

// RequestIDHeader carries the id assigned to every API request.
const RequestIDHeader = "X-Request-Id"

// Limits bound the search parameters accepted by the API.
type Limits struct {
	DefaultLimit   int
	MaxLimit       int
	MaxQueryLength int
}

// DefaultLimits match the limits of the workspace search endpoint.
var DefaultLimits = Limits{DefaultLimit: 20, MaxLimit: 100, MaxQueryLength: 100}

// Workspaces loads workspaces by id.
type Workspaces interface {
	GetWorkspace(ctx context.Context, id int64) (search.Workspace, error)
}

type Server struct {
	handler    *search.Handler
	users      UserResolver
	workspaces Workspaces
	limits     Limits
	logger     *log.Logger
}

func NewServer(handler *search.Handler, users UserResolver, workspaces Workspaces, limits Limits) *Server {
	if limits.DefaultLimit <= 0 {
		limits.DefaultLimit = DefaultLimits.DefaultLimit
	}
	if limits.MaxLimit <= 0 {
		limits.MaxLimit = DefaultLimits.MaxLimit
	}
	if limits.MaxQueryLength <= 0 {
		limits.MaxQueryLength = DefaultLimits.MaxQueryLength
	}
	return &Server{
		handler:    handler,
		users:      users,
		workspaces: workspaces,
		limits:     limits,
		logger:     log.ForService("api"),
	}
}

// Handler returns the API routes wrapped in the request id and CORS
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return RequestIDMiddleware(CorsMiddleware(mux, s.userHeader()))
}

// userHeader names the header browsers must be allowed to send for the user
// resolver to identify them.
func (s *Server) userHeader() string {
	if h, ok := s.users.(interface{ HeaderName() string }); ok {
		return h.HeaderName()
	}
	return DefaultUserHeader
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("Error encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string, detail map[string]string) {
	response := ErrorResponse{
		Error:   code,
		Message: message,
		Detail:  detail,
	}
	s.writeJSON(w, status, response)
}

type requestIDKey struct{}

// RequestID returns the id RequestIDMiddleware assigned to the request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDMiddleware reuses the caller's X-Request-Id or generates one, and
// echoes it in the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// CorsMiddleware allows cross-origin GET requests carrying the given extra
// headers.
func CorsMiddleware(next http.Handler, headers ...string) http.Handler {
	allowed := strings.Join(append([]string{"Content-Type", "Authorization"}, headers...), ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", allowed)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
