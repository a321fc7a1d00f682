package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcview/rcview-cli/internal/esri"
	"github.com/rcview/rcview-cli/internal/grid"
	"github.com/rcview/rcview-cli/internal/rings"
	"github.com/rcview/rcview-cli/pkg/geocode"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an HTTP server exposing conversion, grid, and geocode endpoints",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client, cleanup, err := newGeocoder(false)
		if err != nil {
			return err
		}
		defer cleanup()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newServeRouter(client),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newServeRouter wires up the HTTP routes.
func newServeRouter(client geocode.Client) *chi.Mux {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/v1/convert/rings", handleConvertRings)
	r.Get("/v1/grid/usng", handleGridUSNG)
	r.Post("/v1/geocode", handleGeocode(client))

	return r
}

// requestID tags every request with a UUID for log correlation.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		zap.L().Debug("request",
			zap.String("id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r)
	})
}

func handleConvertRings(w http.ResponseWriter, r *http.Request) {
	var req ringsDoc
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Rings) == 0 {
		writeError(w, http.StatusBadRequest, "rings is required")
		return
	}

	sr := req.SpatialReference
	if sr == nil {
		sr = esri.WGS84
	}
	p := esri.Polygon{Rings: req.Rings, SpatialReference: sr}

	parts, err := rings.ToParts(p.RingSet())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	doc := partsDoc{SpatialReference: sr}
	for _, part := range parts {
		pd := partDoc{Exterior: ringCoords(part.Exterior)}
		for _, h := range part.Holes {
			pd.Holes = append(pd.Holes, ringCoords(h))
		}
		doc.Parts = append(doc.Parts, pd)
	}
	writeJSON(w, http.StatusOK, doc)
}

func handleGridUSNG(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if ref := q.Get("ref"); ref != "" {
		lat, lon, err := grid.FromUSNG(ref)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]float64{"latitude": lat, "longitude": lon})
		return
	}

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lat is required")
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lon is required")
		return
	}
	precision := 4
	if s := q.Get("precision"); s != "" {
		precision, err = strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "precision must be an integer")
			return
		}
	}

	ref, err := grid.ToUSNG(lat, lon, precision)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reference": ref})
}

func handleGeocode(client geocode.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Street string `json:"street"`
			City   string `json:"city"`
			State  string `json:"state"`
			Zip    string `json:"zip"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Street == "" && req.City == "" && req.Zip == "" {
			writeError(w, http.StatusBadRequest, "address is required")
			return
		}

		result, err := client.Geocode(r.Context(), geocode.Address{
			Street: req.Street, City: req.City, State: req.State, Zip: req.Zip,
		})
		if err != nil {
			zap.L().Error("geocode request failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "geocode service unavailable")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"matched":    result.Matched,
			"address":    result.Address,
			"match_type": result.MatchType,
			"source":     result.Source,
			"latitude":   result.Latitude,
			"longitude":  result.Longitude,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
