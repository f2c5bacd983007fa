package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/vncsmyrnk/contestvote/internal/core/ports"
	"go.uber.org/zap"
)

type RouterOptions struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

func NewHandler(contestHandler *ContestHandler, voteHandler *VoteHandler, verifier ports.TokenVerifier, logger *zap.Logger, opts RouterOptions) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(opts.RequestTimeout))
		r.Use(AuthMiddleware(verifier))

		r.Post("/join", voteHandler.JoinContest)

		r.Route("/contests", func(r chi.Router) {
			r.Post("/", contestHandler.CreateContest)
			r.Get("/", contestHandler.ListContests)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", contestHandler.GetContest)
				r.Patch("/", contestHandler.UpdateContest)
				r.Delete("/", contestHandler.DeleteContest)
				r.Post("/candidates", contestHandler.AddCandidate)
				r.Post("/activate", contestHandler.ActivateContest)
				r.Post("/deactivate", contestHandler.DeactivateContest)
				r.Get("/results", contestHandler.GetResults)
				r.Get("/qrcode", contestHandler.GetQRCode)
				r.Post("/votes", voteHandler.VoteOnContest)
				r.Get("/my-vote", voteHandler.MyVote)
			})
		})
	})

	return r
}
