package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/novadental/verify-cli/internal/model"
	"github.com/novadental/verify-cli/internal/pipeline"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server for verification requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := newRouter(ctx, env)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(ctx context.Context, env *pipelineEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/webhook/verify", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			PatientID string `json:"patient_id"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.PatientID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "patient_id is required"})
			return
		}

		if _, err := env.Store.GetPatient(req.Context(), body.PatientID); err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown patient"})
			return
		}

		// Run the pass asynchronously on the server context; the
		// caller polls status.
		go func() {
			res, err := env.Runner.Verify(ctx, body.PatientID)
			if err != nil {
				zap.L().Error("webhook verification failed",
					zap.String("patient_id", body.PatientID),
					zap.Error(err),
				)
				return
			}
			zap.L().Info("webhook verification complete",
				zap.String("patient_id", body.PatientID),
				zap.String("pass_id", res.PassID),
				zap.String("status", string(res.Status)),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":     "accepted",
			"patient_id": body.PatientID,
		})
	})

	// Outside systems (PMS fetch jobs, voice-AI callbacks) report their
	// stage outcomes here.
	r.Post("/webhook/stage", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			PatientID string `json:"patient_id"`
			Type      string `json:"type"`
			Status    string `json:"status"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.PatientID == "" || body.Type == "" || body.Status == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "patient_id, type and status are required"})
			return
		}

		tx, err := env.Runner.RecordStage(req.Context(), body.PatientID,
			model.TransactionType(body.Type), model.TransactionStatus(body.Status))
		if err != nil {
			zap.L().Error("recording stage event", zap.String("patient_id", body.PatientID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to record stage"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"transaction_id": tx.ID,
			"status":         string(tx.Status),
		})
	})

	r.Get("/patients/{id}/status", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")

		patient, err := env.Store.GetPatient(req.Context(), id)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown patient"})
			return
		}

		txns, err := env.Store.ListTransactions(req.Context(), id)
		if err != nil {
			zap.L().Error("listing transactions", zap.String("patient_id", id), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load transactions"})
			return
		}

		status := pipeline.DeriveStatus(txns, configuredStages())
		writeJSON(w, http.StatusOK, map[string]any{
			"patient_id": patient.ID,
			"patient":    patient.DisplayName(),
			"stages":     status.Stages,
			"states":     status.States,
			"completed":  status.Completed(),
		})
	})

	r.Get("/patients/{id}/coverage", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")

		rec, err := env.Store.GetLatestCoverage(req.Context(), id)
		if err != nil {
			zap.L().Error("loading coverage", zap.String("patient_id", id), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load coverage"})
			return
		}
		if rec == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no coverage record"})
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
