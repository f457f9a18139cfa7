// Package httpapi exposes the match service over REST plus a websocket push
// channel per game. All JSON bodies and errors use the pkg/seegadto shapes.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/seegalab/seega-server/internal/boardimg"
	"github.com/seegalab/seega-server/internal/config"
	"github.com/seegalab/seega-server/internal/hub"
	"github.com/seegalab/seega-server/internal/msgcat"
	"github.com/seegalab/seega-server/internal/obslog"
	"github.com/seegalab/seega-server/internal/service"
	"github.com/seegalab/seega-server/pkg/seegadto"
)

// Server bundles the router with the service it fronts.
type Server struct {
	r    *chi.Mux
	svc  *service.Service
	hub  *hub.Hub
	msgs *msgcat.Catalog
	cfg  *config.AppConfig
}

func New(svc *service.Service, h *hub.Hub, msgs *msgcat.Catalog, cfg *config.AppConfig) *Server {
	s := &Server{r: chi.NewRouter(), svc: svc, hub: h, msgs: msgs, cfg: cfg}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(s.cors)

	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":   "seega-server",
			"endpoints": []string{"/health", "POST /api/games", "POST /api/games/{id}/join"},
		})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	s.r.Route("/api/games", func(r chi.Router) {
		// The websocket route must stay outside the timeout middleware;
		// everything else is a short request/response exchange.
		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(15 * time.Second))

			r.Post("/", s.handleCreate)
			r.Route("/{gameID}", func(r chi.Router) {
				r.Post("/join", s.handleJoin)

				r.Group(func(r chi.Router) {
					r.Use(s.requireToken)

					r.Post("/reconnect", s.handleReconnect)
					r.Get("/", s.handleState)
					r.Post("/place", s.handlePlace)
					r.Post("/move", s.handleMove)
					r.Get("/valid-actions", s.handleValidActions)
					r.Delete("/leave", s.handleLeave)
					r.Post("/rematch", s.handleRematch)
					r.Get("/board.png", s.handleBoardPNG)
				})
			})
		})
		r.Get("/{gameID}/connect", s.handleConnect)
	})

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, seegadto.ErrorResponse{Error: "not found", Code: string(seegadto.CodeNotFound)})
	})

	return s
}

// Router exposes the mux for tests and for the main wiring.
func (s *Server) Router() chi.Router { return s.r }

func (s *Server) Start(addr string) error {
	obslog.L().Info("http_listen", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.r)
}

// ------------------------------ middleware ---------------------------------

// cors reflects only configured origins; with no configuration the API is
// open, which suits local development.
func (s *Server) cors(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(s.cfg.AllowedOrigins))
	for _, o := range s.cfg.AllowedOrigins {
		allowed[o] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case len(allowed) == 0:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxTokenKey struct{}

// requireToken enforces a bearer token and stashes it in the request
// context. Seat validation against the game happens in the service.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if strings.TrimSpace(header) == "" {
			writeJSON(w, http.StatusUnauthorized, seegadto.ErrorResponse{
				Error: s.msgs.RenderOr("auth.missing_token", nil),
				Code:  string(seegadto.CodeUnauthorized),
			})
			return
		}
		token := bearerToken(header)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, seegadto.ErrorResponse{
				Error: s.msgs.RenderOr("auth.bad_token_format", nil),
				Code:  string(seegadto.CodeUnauthorized),
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxTokenKey{}, token)))
	})
}

func bearerToken(header string) string {
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func tokenFrom(r *http.Request) string {
	tok, _ := r.Context().Value(ctxTokenKey{}).(string)
	return tok
}

// ------------------------------- helpers -----------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(code seegadto.ErrorCode) int {
	switch code {
	case seegadto.CodeNotFound:
		return http.StatusNotFound
	case seegadto.CodeUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var derr *seegadto.DomainError
	if errors.As(err, &derr) {
		writeJSON(w, statusFor(derr.Code), seegadto.ErrorResponse{Error: derr.Message, Code: string(derr.Code)})
		return
	}
	obslog.L().Error("request_failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, seegadto.ErrorResponse{Error: "internal error"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, seegadto.ErrorResponse{
			Error: "invalid JSON body",
			Code:  string(seegadto.CodeIllegalAction),
		})
		return false
	}
	return true
}

// ------------------------------- handlers ----------------------------------

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.CreateGame(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	// The token is optional here: a seated player re-joining sends theirs,
	// a fresh player sends none.
	token := bearerToken(r.Header.Get("Authorization"))
	info, err := s.svc.JoinGame(r.Context(), chi.URLParam(r, "gameID"), token)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleReconnect(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.ReconnectGame(r.Context(), chi.URLParam(r, "gameID"), tokenFrom(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.GetGameState(r.Context(), chi.URLParam(r, "gameID"), tokenFrom(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req seegadto.PlaceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.svc.PlacePiece(r.Context(), chi.URLParam(r, "gameID"), tokenFrom(r), req.X, req.Y)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req seegadto.MoveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.svc.MovePiece(r.Context(), chi.URLParam(r, "gameID"), tokenFrom(r),
		req.FromX, req.FromY, req.ToX, req.ToY)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleValidActions(w http.ResponseWriter, r *http.Request) {
	actions, err := s.svc.GetValidActions(r.Context(), chi.URLParam(r, "gameID"), tokenFrom(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.LeaveGame(r.Context(), chi.URLParam(r, "gameID"), tokenFrom(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRematch(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.RematchGame(r.Context(), chi.URLParam(r, "gameID"), tokenFrom(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBoardPNG(w http.ResponseWriter, r *http.Request) {
	g, _, err := s.svc.GameForToken(r.Context(), chi.URLParam(r, "gameID"), tokenFrom(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	data, err := boardimg.Render(g)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}
