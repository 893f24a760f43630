package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/studio-cli/internal/model"
	"github.com/sells-group/studio-cli/internal/monitoring"
	"github.com/sells-group/studio-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for plan requests and run inspection",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		collector := monitoring.NewCollector(st)
		if cfg.Monitoring.Enabled {
			checker := monitoring.NewChecker(collector, monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
			go checker.Run(ctx)
		}

		gen := initGenerator()
		env := planEnv{rateCard: loadRateCard(), presets: loadPresets()}

		router := newRouter(serverEnv{
			store:         st,
			collector:     collector,
			lookbackHours: cfg.Monitoring.LookbackWindowHours,
			plan: func(topic, vertical string) {
				// Planning runs detached from the request; progress is
				// inspectable via the runs endpoints.
				go func() {
					cand := model.TrendCandidate{Topic: topic, Vertical: vertical, Source: "api"}
					if _, err := runPlan(ctx, st, gen, env, cand); err != nil {
						zap.L().Error("plan request failed",
							zap.String("topic", topic),
							zap.Error(err),
						)
					}
				}()
			},
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// serverEnv carries the dependencies the HTTP handlers need. The plan
// callback decouples route wiring from pipeline construction so handler
// tests can observe requests without a live generator.
type serverEnv struct {
	store         store.Store
	collector     *monitoring.Collector
	lookbackHours int
	plan          func(topic, vertical string)
}

func newRouter(env serverEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		lookback := env.lookbackHours
		if lookback <= 0 {
			lookback = 24
		}
		snap, err := env.collector.Collect(req.Context(), lookback)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "collect metrics failed")
			return
		}
		writeJSON(w, http.StatusOK, snap)
	})

	r.Post("/plans", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Topic    string `json:"topic"`
			Vertical string `json:"vertical"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.Topic == "" {
			writeError(w, http.StatusBadRequest, "topic is required")
			return
		}

		env.plan(body.Topic, body.Vertical)
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status": "accepted",
			"topic":  body.Topic,
		})
	})

	r.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
		limit := 50
		if raw := req.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}

		runs, err := env.store.ListRuns(req.Context(), store.RunFilter{
			Status:   model.RunStatus(req.URL.Query().Get("status")),
			Vertical: req.URL.Query().Get("vertical"),
			Limit:    limit,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list runs failed")
			return
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		run, err := env.store.GetRun(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	r.Get("/drafts", func(w http.ResponseWriter, req *http.Request) {
		status := model.ReviewStatus(req.URL.Query().Get("status"))
		if status == "" {
			status = model.ReviewPending
		}

		drafts, err := env.store.ListDrafts(req.Context(), status, 100)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list drafts failed")
			return
		}
		writeJSON(w, http.StatusOK, drafts)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
