package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"watchparty/handlers/api/movies"
	"watchparty/handlers/api/rooms"
	"watchparty/handlers/auth"
	socketHandlers "watchparty/handlers/websocket"
	"watchparty/metrics"
	authMiddleware "watchparty/middleware"
	"watchparty/realtime"
	"watchparty/session"
	"watchparty/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

func setupRouter(store stores.Store, dir *session.Directory, hub *realtime.Hub, met *metrics.Metrics) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "X-CSRF-Token", "Token", "session", "Origin", "Host", "Connection", "Accept-Encoding", "Accept-Language", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	blobs := stores.GetBlobStore()

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", auth.HandleSignup(store))
			r.Post("/login", auth.HandleLogin(store))
			r.Get("/github/login", auth.HandleGitHubLogin)
			r.Get("/github/callback", auth.HandleGitHubCallback(store))
		})

		r.Route("/movies", func(r chi.Router) {
			r.Get("/", movies.HandleList(store))
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.AuthJWT)
				r.Post("/upload", movies.HandleUpload(store, blobs))
			})
		})
		r.Get("/stream/{id}", movies.HandleStream(store, blobs))

		r.Route("/rooms", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.AuthJWT)
				r.Post("/create", rooms.HandleCreate(dir, store))
			})
			r.Get("/token/{token}", rooms.HandleGetByToken(dir, store))
			r.Get("/code/{code}", rooms.HandleGetByCode(dir, store))
			r.Get("/{id}", rooms.HandleGetByID(dir))
		})
	})

	// The legacy page address redirects to the canonical token address, so
	// only one addressing scheme is ever served.
	r.Get("/room/{id}", func(w http.ResponseWriter, r *http.Request) {
		room, err := dir.ResolveByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/room/token/"+room.InviteToken, http.StatusFound)
	})

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() {
			met.SetActiveRooms(hub.Presence().ActiveRooms())
			met.SetParticipants(hub.OpenConnections())
		}).ServeHTTP(w, r)
	})

	return r
}

func roomTTL() time.Duration {
	raw := os.Getenv("ROOM_TTL")
	if raw == "" {
		return session.DefaultTTL
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil || ttl <= 0 {
		logrus.WithField("ROOM_TTL", raw).Warn("Invalid ROOM_TTL, using default")
		return session.DefaultTTL
	}
	return ttl
}

func waitForShutdown(cancel context.CancelFunc, ioo *socketio.Server) {
	exit := make(chan struct{})
	signalC := make(chan os.Signal, 1)

	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range signalC {
			switch s {
			case os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				close(exit)
				return
			}
		}
	}()

	<-exit
	cancel()
	ioo.Close(nil)
	logrus.Info("Shutting down...")
	os.Exit(0)
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	listenAddress := flag.String("listen", ":5000", "The address to listen on.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	auth.InitAuth()
	store := stores.GetStore()

	met := metrics.New()
	hub := realtime.NewHub(realtime.NewTracker(), met)
	relay := realtime.NewChatRelay(hub, met)
	dir := session.NewDirectory(store, store, roomTTL())

	ctx, cancel := context.WithCancel(context.Background())
	go dir.RunSweeper(ctx, session.SweepInterval)

	r := setupRouter(store, dir, hub, met)

	ioo := socketHandlers.SetupSocketIO(hub, relay)
	r.Mount("/socket.io/", ioo.ServeHandler(nil))

	logrus.WithField("addr", *listenAddress).Info("starting server")
	go func() {
		if err := http.ListenAndServe(*listenAddress, r); err != nil {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(cancel, ioo)
}
