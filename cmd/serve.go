package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sqp-cli/internal/categorize"
	"github.com/sells-group/sqp-cli/internal/ingest"
	"github.com/sells-group/sqp-cli/internal/model"
	"github.com/sells-group/sqp-cli/internal/pipeline"
	"github.com/sells-group/sqp-cli/internal/report"
)

var servePort int

// maxUploadBytes bounds one multipart upload (32 MiB covers a year of
// monthly SQP exports comfortably).
const maxUploadBytes = 32 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis HTTP server for the dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if !cmd.Flags().Changed("port") {
			servePort = cfg.Server.Port
		}

		sess, err := newSession()
		if err != nil {
			return err
		}
		sched, err := newScheduler()
		if err != nil {
			return err
		}

		srv := &analysisServer{sess: sess, sched: sched}

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/ingest", srv.handleIngest)
			r.Post("/categorize", srv.handleCategorize)
			r.Get("/report/aggregate", srv.handleAggregate)
			r.Get("/report/opportunities", srv.handleOpportunities)
			r.Get("/report/distribution", srv.handleDistribution)
			r.Get("/export/categorized.csv", srv.handleExport)
		})

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", servePort),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("serve: listening",
				zap.Int("port", servePort),
				zap.String("session", sess.ID.String()),
			)
			errCh <- httpSrv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			zap.L().Info("serve: shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		}
	},
}

// analysisServer serializes pipeline access: the session table and cache are
// extended by one request at a time, only the classification fan-out inside
// a request is concurrent.
type analysisServer struct {
	mu    sync.Mutex
	sess  *pipeline.Session
	sched *categorize.Scheduler
}

func (s *analysisServer) handleIngest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	var files []ingest.File
	for _, fh := range r.MultipartForm.File["files"] {
		f, err := fh.Open()
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("open upload %s", fh.Filename))
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("read upload %s", fh.Filename))
			return
		}
		files = append(files, ingest.File{Name: fh.Filename, Data: data})
	}
	if len(files) == 0 {
		writeJSONError(w, http.StatusBadRequest, "no files supplied")
		return
	}

	s.mu.Lock()
	table, err := s.sess.Ingest(files)
	s.mu.Unlock()
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rows":    table.Len(),
		"columns": table.Columns,
		"summary": report.Summary(table),
	})
}

func (s *analysisServer) handleCategorize(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	table, err := s.sess.Categorize(r.Context(), s.sched)
	s.mu.Unlock()
	if err != nil {
		writeJSONError(w, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rows":         table.Len(),
		"distribution": report.Distribution(table),
	})
}

func (s *analysisServer) handleAggregate(w http.ResponseWriter, _ *http.Request) {
	table, ok := s.categorized()
	if !ok {
		writeJSONError(w, http.StatusConflict, "no categorized data yet")
		return
	}
	writeJSON(w, http.StatusOK, report.Aggregate(table))
}

func (s *analysisServer) handleOpportunities(w http.ResponseWriter, _ *http.Request) {
	table, ok := s.categorized()
	if !ok {
		writeJSONError(w, http.StatusConflict, "no categorized data yet")
		return
	}
	writeJSON(w, http.StatusOK, report.Opportunities(report.Aggregate(table)))
}

func (s *analysisServer) handleDistribution(w http.ResponseWriter, _ *http.Request) {
	table, ok := s.categorized()
	if !ok {
		writeJSONError(w, http.StatusConflict, "no categorized data yet")
		return
	}
	writeJSON(w, http.StatusOK, report.Distribution(table))
}

func (s *analysisServer) handleExport(w http.ResponseWriter, _ *http.Request) {
	table, ok := s.categorized()
	if !ok {
		writeJSONError(w, http.StatusConflict, "no categorized data yet")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="categorized_sqp_data.csv"`)
	if err := report.WriteTable(w, table); err != nil {
		zap.L().Error("serve: export failed", zap.Error(err))
	}
}

func (s *analysisServer) categorized() (*model.Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess.Categorized, s.sess.Categorized != nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "listen port")
	rootCmd.AddCommand(serveCmd)
}
