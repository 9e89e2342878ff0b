package api

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "routega/internal/ga"
    "routega/internal/metrics"
    "routega/internal/model"
    "routega/internal/webhooks"
)

// OptimizeHandler handles POST /v1/optimize. Small instances run inline and
// return the finished run; larger instances (or async=true) are accepted and
// executed in the background, observable via /v1/runs/{id} and the event
// streams.
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    p := s.getPrincipal(r)
    if !(p.IsAdmin() || p.Role == "planner") { writeProblem(w, 403, "Forbidden", "planner or admin required", r.URL.Path); return }
    if !s.limiter.Allow(p.Tenant) {
        writeProblem(w, http.StatusTooManyRequests, "Rate limited", "too many optimize requests, retry later", r.URL.Path)
        return
    }
    var req model.OptimizeRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    applyDefaults(&req, s.Cfg.Defaults)
    if err := validateOptimizeRequest(&req, s.Cfg); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
        return
    }
    if req.TenantID == "" { req.TenantID = p.Tenant }

    run, err := s.Store.CreateRun(r.Context(), req.TenantID, req)
    if err != nil {
        writeError(w, err, r.URL.Path)
        return
    }

    if req.Async || len(req.Demand) > s.Cfg.SyncRecordLimit {
        go s.runOptimize(context.Background(), run, req)
        writeJSON(w, http.StatusAccepted, map[string]any{"runId": run.ID, "status": run.Status})
        return
    }
    done, err := s.runOptimize(r.Context(), run, req)
    if err != nil {
        writeError(w, err, r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, done)
}

// runOptimize executes one run end to end: evolve, persist the result,
// update metrics, and fan out run.completed / run.failed events.
func (s *Server) runOptimize(ctx context.Context, run model.Run, req model.OptimizeRequest) (model.Run, error) {
    env, err := ga.NewEnvironment(req.Demand, req.DistanceMatrix, req.Lookup)
    if err != nil {
        return s.failRun(ctx, run, err), err
    }
    eval := ga.NewCapacityEvaluator(ga.CapacityLimits{MaxWeight: req.MaxWeight, MaxPallets: req.MaxPallets})
    cfg := ga.Config{
        Generations:    req.Generations,
        PopulationSize: req.PopulationSize,
        VehicleCount:   req.VehicleCount,
        ElitismCount:   req.ElitismCount,
        TournamentSize: req.TournamentSize,
        MutationRate:   req.MutationRate,
        CrossoverRate:  req.CrossoverRate,
        Seed:           req.RandomSeed,
        Patience:       req.ConvergencePatience,
        TimeBudget:     time.Duration(req.TimeBudgetMs) * time.Millisecond,
    }
    eng, err := ga.NewEngine(cfg, ga.Individual(req.FirstIndividual), env, eval)
    if err != nil {
        return s.failRun(ctx, run, err), err
    }
    eng.OnGeneration = func(gen int, bestScore float64) {
        s.Broker.Publish(run.ID, RunEvent{Type: "run.progress", Data: map[string]any{
            "runId": run.ID, "generation": gen, "bestScore": bestScore,
        }})
    }

    res, err := eng.Run(ctx)
    if err != nil {
        return s.failRun(ctx, run, err), err
    }

    now := time.Now().UTC()
    run.Status = model.RunCompleted
    run.Generations = res.Generations
    run.Evaluations = res.Evaluations
    run.BestIndividual = res.BestIndividual
    run.BestScore = res.BestScore
    run.Trace = res.Trace
    run.FinishedAt = now.Format(time.RFC3339)
    run.DurationMs = int(res.Duration.Milliseconds())
    if res.Notice != nil { run.Notice = res.Notice.String() }
    if err := s.Store.FinishRun(ctx, run.TenantID, run); err != nil {
        return s.failRun(ctx, run, err), err
    }

    metrics.OptimizeRuns.WithLabelValues(run.TenantID, run.Status).Inc()
    metrics.RunGenerations.Observe(float64(res.Generations))
    metrics.RunDuration.Observe(res.Duration.Seconds())
    metrics.BestScore.WithLabelValues(run.TenantID).Set(res.BestScore)

    data := map[string]any{
        "runId":       run.ID,
        "bestScore":   run.BestScore,
        "generations": run.Generations,
        "notice":      run.Notice,
    }
    s.Pub.Emit(ctx, run.TenantID, webhooks.EventRunCompleted, data)
    s.Broker.Publish(run.ID, RunEvent{Type: webhooks.EventRunCompleted, Data: data})
    return run, nil
}

func (s *Server) failRun(ctx context.Context, run model.Run, cause error) model.Run {
    run.Status = model.RunFailed
    run.Error = cause.Error()
    run.FinishedAt = time.Now().UTC().Format(time.RFC3339)
    _ = s.Store.FinishRun(ctx, run.TenantID, run)
    metrics.OptimizeRuns.WithLabelValues(run.TenantID, run.Status).Inc()
    data := map[string]any{"runId": run.ID, "error": run.Error}
    s.Pub.Emit(ctx, run.TenantID, webhooks.EventRunFailed, data)
    s.Broker.Publish(run.ID, RunEvent{Type: webhooks.EventRunFailed, Data: data})
    return run
}

// RunsHandler handles GET /v1/runs
func (s *Server) RunsHandler(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/v1/runs" { writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path); return }
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    p := s.getPrincipal(r)
    status := r.URL.Query().Get("status")
    cursor := r.URL.Query().Get("cursor")
    limit := 100
    if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
    items, next, err := s.Store.ListRuns(r.Context(), p.Tenant, status, cursor, limit)
    if err != nil { writeError(w, err, r.URL.Path); return }
    writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
}

// RunByIDHandler handles GET /v1/runs/{id} and GET /v1/runs/{id}/events/stream
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
    rest := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
    if rest == r.URL.Path || rest == "" {
        writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
        return
    }
    parts := strings.Split(rest, "/")
    id := parts[0]
    p := s.getPrincipal(r)

    if len(parts) > 2 && parts[1] == "events" && parts[2] == "stream" {
        if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
        if _, err := s.Store.GetRun(r.Context(), p.Tenant, id); err != nil {
            writeError(w, err, r.URL.Path)
            return
        }
        flusher, ok := w.(http.Flusher)
        if !ok { writeProblem(w, 500, "Streaming unsupported", "", r.URL.Path); return }
        w.Header().Set("Content-Type", "text/event-stream")
        w.Header().Set("Cache-Control", "no-cache")
        w.Header().Set("Connection", "keep-alive")
        ch := s.Broker.Subscribe(id)
        defer s.Broker.Unsubscribe(id, ch)
        fmt.Fprintf(w, "event: heartbeat\n")
        fmt.Fprintf(w, "data: {\"runId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
        flusher.Flush()
        notify := r.Context().Done()
        for {
            select {
            case <-notify:
                return
            case evt := <-ch:
                b, _ := json.Marshal(evt.Data)
                fmt.Fprintf(w, "event: %s\n", evt.Type)
                fmt.Fprintf(w, "data: %s\n\n", string(b))
                flusher.Flush()
            case <-time.After(15 * time.Second):
                fmt.Fprintf(w, "event: heartbeat\n")
                fmt.Fprintf(w, "data: {\"runId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
                flusher.Flush()
            }
        }
    }

    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    run, err := s.Store.GetRun(r.Context(), p.Tenant, id)
    if err != nil { writeError(w, err, r.URL.Path); return }
    writeJSON(w, http.StatusOK, run)
}

// OptimizerConfigHandler returns effective engine defaults for the tenant.
func (s *Server) OptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/v1/optimizer/config" || r.Method != http.MethodGet { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    d := s.Cfg.Defaults
    defaults := map[string]any{
        "algorithm":      "genetic",
        "populationSize": d.PopulationSize,
        "generations":    d.Generations,
        "mutationRate":   d.MutationRate,
        "crossoverRate":  d.CrossoverRate,
        "tournamentSize": d.TournamentSize,
        "maxWeight":      d.MaxWeight,
        "maxPallets":     d.MaxPallets,
    }
    p := s.getPrincipal(r)
    cfg, _ := s.Store.GetOptimizerConfig(r.Context(), p.Tenant)
    if cfg != nil {
        for k, v := range cfg { defaults[k] = v }
    }
    writeJSON(w, 200, map[string]any{"defaults": defaults})
}

// Admin get/set optimizer tenant config
func (s *Server) AdminOptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/v1/admin/optimizer/config" { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    switch r.Method {
    case http.MethodGet:
        cfg, _ := s.Store.GetOptimizerConfig(r.Context(), p.Tenant)
        if cfg == nil { cfg = map[string]any{} }
        writeJSON(w, 200, map[string]any{"config": cfg})
    case http.MethodPut:
        var body struct{ Config map[string]any `json:"config"` }
        if err := json.NewDecoder(r.Body).Decode(&body); err != nil { writeProblem(w, 400, "Invalid JSON", err.Error(), r.URL.Path); return }
        if body.Config == nil { writeProblem(w, 400, "Missing config", "", r.URL.Path); return }
        if err := s.Store.SaveOptimizerConfig(r.Context(), p.Tenant, body.Config); err != nil { writeError(w, err, r.URL.Path); return }
        writeJSON(w, 200, map[string]bool{"ok": true})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    switch r.Method {
    case http.MethodPost:
        var req model.SubscriptionRequest
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if req.URL == "" || len(req.EventTypes) == 0 { writeProblem(w, 400, "Invalid subscription", "url and eventTypes are required", r.URL.Path); return }
        if req.TenantID == "" { req.TenantID = p.Tenant }
        sub, err := s.Store.CreateSubscription(r.Context(), req)
        if err != nil { writeError(w, err, r.URL.Path); return }
        writeJSON(w, http.StatusCreated, sub)
    case http.MethodGet:
        cursor := r.URL.Query().Get("cursor")
        limit := 100
        if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
        items, next, err := s.Store.ListSubscriptions(r.Context(), p.Tenant, cursor, limit)
        if err != nil { writeError(w, err, r.URL.Path); return }
        writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
    if !strings.HasPrefix(r.URL.Path, "/v1/subscriptions/") { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    if r.Method != http.MethodDelete { w.WriteHeader(405); return }
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
    if err := s.Store.DeleteSubscription(r.Context(), p.Tenant, id); err != nil { writeError(w, err, r.URL.Path); return }
    w.WriteHeader(204)
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    // Check DB connectivity when using the Postgres store
    type pinger interface{ Ping(ctx context.Context) error }
    if pg, ok := s.Store.(pinger); ok {
        ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
        defer cancel()
        if err := pg.Ping(ctx); err != nil { writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path); return }
    }
    writeJSON(w, 200, map[string]string{"status": "ready"})
}
