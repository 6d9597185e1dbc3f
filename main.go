package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/averho/banter/internal/auth"
	"github.com/averho/banter/internal/config"
	"github.com/averho/banter/internal/handlers"
	"github.com/averho/banter/internal/middleware"
	"github.com/averho/banter/internal/store/sqlstore"
	"github.com/averho/banter/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	// An unreachable store at startup is fatal; everything else degrades
	// per-request.
	store, err := sqlstore.New(cfg.DBDriver, cfg.DBDSN, cfg.DBMaxConns)
	if err != nil {
		logger.Error("store initialization", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	signer := auth.NewSigner(cfg.CookieSecret)
	validate := validator.New(validator.WithRequiredStructEnabled())

	registry := ws.NewRegistry()
	dispatcher := ws.NewDispatcher(store, registry, logger)
	hub := ws.NewHub(registry, dispatcher, ws.Config{
		MaxMessageSize: cfg.MaxMessageSize,
		SendBufferSize: cfg.SendBufferSize,
		AllowedOrigins: cfg.AllowedOrigins,
	}, logger)
	go hub.Run()

	authHandler := &handlers.AuthHandler{Store: store, Signer: signer, Validate: validate, Logger: logger}
	chatHandler := &handlers.ChatHandler{Store: store, Validate: validate, Logger: logger}
	requireAuth := middleware.Auth(signer)

	r := mux.NewRouter()
	r.Use(loggingMiddleware(logger))

	r.HandleFunc("/api/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/api/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/logout", authHandler.Logout).Methods("POST")
	r.HandleFunc("/api/check_auth", authHandler.CheckAuth).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(requireAuth)
	api.HandleFunc("/users", authHandler.GetUsers).Methods("GET")
	api.HandleFunc("/private/start-chat/{id:[0-9]+}", chatHandler.StartPrivateChat).Methods("POST")
	api.HandleFunc("/private/send-message", chatHandler.SendPrivateMessage).Methods("POST")
	api.HandleFunc("/private/messages/{id:[0-9]+}", chatHandler.GetPrivateMessages).Methods("GET")
	api.HandleFunc("/private/chats", chatHandler.GetPrivateChats).Methods("GET")
	api.HandleFunc("/groups", chatHandler.GetGroups).Methods("GET")
	api.HandleFunc("/groups/my", chatHandler.GetMyGroups).Methods("GET")
	api.HandleFunc("/groups/create", chatHandler.CreateGroup).Methods("POST")
	api.HandleFunc("/groups/{id:[0-9]+}/join", chatHandler.JoinGroup).Methods("POST")
	api.HandleFunc("/groups/{id:[0-9]+}/send-message", chatHandler.SendGroupMessage).Methods("POST")
	api.HandleFunc("/groups/{id:[0-9]+}/messages", chatHandler.GetGroupMessages).Methods("GET")
	api.HandleFunc("/groups/{id:[0-9]+}/members", chatHandler.GetGroupMembers).Methods("GET")

	// The websocket endpoint admits anonymous connections; the hub rejects
	// their join/send events individually.
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(hub, w, r, identityFromCookie(r, signer, store))
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server listening", "addr", cfg.Addr, "db_driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if err := hub.Shutdown(5 * time.Second); err != nil {
		logger.Warn("hub shutdown", "error", err)
	}
}

// identityFromCookie resolves the session cookie to a verified identity, or
// nil for anonymous connections.
func identityFromCookie(r *http.Request, signer *auth.Signer, s *sqlstore.SQLStore) *ws.Identity {
	cookie, err := r.Cookie(auth.CookieName)
	if err != nil {
		return nil
	}
	value, err := signer.Verify(cookie.Value)
	if err != nil {
		return nil
	}
	userID, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil
	}
	return &ws.Identity{UserID: user.ID, Username: user.Username}
}

func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
		})
	}
}
