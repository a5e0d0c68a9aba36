package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"cellsim/internal/config"
	"cellsim/internal/ingest"
	"cellsim/internal/scenario"
	"cellsim/internal/simulator"
	"cellsim/internal/store"
	"cellsim/internal/ws"
)

// stepInterval limits cell:step and summary:update broadcasts.
const stepInterval = 100 * time.Millisecond

func main() {
	scenarioPath := flag.String("scenario", "scenarios/village.yaml", "scenario YAML file")
	bcPath := flag.String("bc", "input", "boundary condition CSV file or directory")
	frontendDir := flag.String("frontend-dir", "frontend/build", "directory containing frontend build")
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	cfg, err := config.Load(*scenarioPath)
	if err != nil {
		log.Fatalf("Failed to load scenario: %v", err)
	}
	if err := config.SetupLogging(cfg.LogLevel); err != nil {
		log.Fatal(err)
	}

	conds, err := ingest.Load(*bcPath)
	if err != nil {
		log.Fatalf("Failed to load boundary conditions: %v", err)
	}
	dataStore := store.New()
	dataStore.Add(conds)

	mux, err := newMux(cfg, dataStore, *frontendDir)
	if err != nil {
		log.Fatal(err)
	}

	log.Infof("Starting server on %s", *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		log.Fatal(err)
	}
}

// newMux wires the replay engine of cfg to the WebSocket handler.
func newMux(cfg *config.Config, dataStore *store.Store, frontendDir string) (*http.ServeMux, error) {
	tr, ok := dataStore.TimeRange()
	if !ok {
		return nil, fmt.Errorf("no boundary conditions loaded")
	}
	log.Infof("Data loaded: %s to %s", tr.Start.Format("2006-01-02"), tr.End.Format("2006-01-02"))
	if gaps := dataStore.Gaps(); len(gaps) > 0 {
		log.Warnf("%d gaps in boundary conditions, first at %s", len(gaps), gaps[0].Start.Format(time.RFC3339))
	}

	builder := scenario.New(cfg, dataStore.AmbientTemperatures())
	hub := ws.NewHub()
	engine, err := simulator.New(builder.Build, dataStore, ws.NewBridge(hub, stepInterval))
	if err != nil {
		return nil, fmt.Errorf("initializing simulation engine: %w", err)
	}
	if cfg.Steps > 0 && cfg.Steps < dataStore.Len() {
		log.Warnf("steps %d ignored, the replay covers all %d boundary conditions", cfg.Steps, dataStore.Len())
	}

	handler := ws.NewHandler(hub, engine, cfg.Name, tr)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.Handle("/ws", handler)

	if _, err := os.Stat(frontendDir); err == nil {
		log.Infof("Serving frontend from %s", frontendDir)
		mux.Handle("/", http.FileServer(http.Dir(frontendDir)))
	}
	return mux, nil
}
