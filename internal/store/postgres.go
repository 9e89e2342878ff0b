package store

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "time"

    "github.com/google/uuid"
    _ "github.com/jackc/pgx/v5/stdlib"

    "routega/internal/model"
)

type Postgres struct {
    db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    if err := db.Ping(); err != nil {
        return nil, err
    }
    return &Postgres{db: db}, nil
}

// Ping reports database connectivity, used by the readiness probe.
func (p *Postgres) Ping(ctx context.Context) error {
    return p.db.PingContext(ctx)
}

// Migrate creates the schema if missing (dev helper).
func (p *Postgres) Migrate(ctx context.Context) error {
    stmts := []string{
        `CREATE TABLE IF NOT EXISTS runs (
            id UUID PRIMARY KEY,
            tenant_id TEXT NOT NULL,
            status TEXT NOT NULL,
            record_count INT NOT NULL,
            vehicle_count INT NOT NULL,
            generations INT NOT NULL DEFAULT 0,
            evaluations INT NOT NULL DEFAULT 0,
            best_individual JSONB,
            best_score DOUBLE PRECISION,
            trace JSONB,
            notice TEXT,
            error TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            finished_at TIMESTAMPTZ,
            duration_ms INT
        )`,
        `CREATE INDEX IF NOT EXISTS runs_tenant_idx ON runs (tenant_id, id)`,
        `CREATE TABLE IF NOT EXISTS optimizer_config (
            tenant_id TEXT PRIMARY KEY,
            config JSONB NOT NULL
        )`,
        `CREATE TABLE IF NOT EXISTS subscriptions (
            id UUID PRIMARY KEY,
            tenant_id TEXT NOT NULL,
            url TEXT NOT NULL,
            secret TEXT,
            event_types JSONB NOT NULL
        )`,
        `CREATE TABLE IF NOT EXISTS webhook_deliveries (
            id UUID PRIMARY KEY,
            tenant_id TEXT NOT NULL,
            subscription_id UUID,
            event_type TEXT NOT NULL,
            url TEXT NOT NULL,
            secret TEXT,
            payload BYTEA,
            status TEXT NOT NULL,
            attempts INT NOT NULL DEFAULT 0,
            next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            last_error TEXT,
            response_code INT,
            latency_ms INT,
            delivered_at TIMESTAMPTZ
        )`,
    }
    for _, q := range stmts {
        if _, err := p.db.ExecContext(ctx, q); err != nil { return err }
    }
    return nil
}

func (p *Postgres) CreateRun(ctx context.Context, tenantID string, req model.OptimizeRequest) (model.Run, error) {
    r := model.Run{
        ID: uuid.New().String(),
        TenantID: tenantID,
        Status: model.RunRunning,
        RecordCount: len(req.Demand),
        VehicleCount: req.VehicleCount,
        CreatedAt: time.Now().UTC().Format(time.RFC3339),
    }
    _, err := p.db.ExecContext(ctx,
        `INSERT INTO runs (id, tenant_id, status, record_count, vehicle_count) VALUES ($1,$2,$3,$4,$5)`,
        r.ID, tenantID, r.Status, r.RecordCount, r.VehicleCount)
    if err != nil { return model.Run{}, err }
    return r, nil
}

func (p *Postgres) FinishRun(ctx context.Context, tenantID string, run model.Run) error {
    res, err := p.db.ExecContext(ctx,
        `UPDATE runs SET status=$1, generations=$2, evaluations=$3, best_individual=$4, best_score=$5, trace=$6, notice=$7, error=$8, finished_at=now(), duration_ms=$9
         WHERE tenant_id=$10 AND id=$11`,
        run.Status, run.Generations, run.Evaluations, toJSON(run.BestIndividual), run.BestScore, toJSON(run.Trace),
        nullIfEmpty(run.Notice), nullIfEmpty(run.Error), run.DurationMs, tenantID, run.ID)
    if err != nil { return err }
    if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
    return nil
}

func (p *Postgres) GetRun(ctx context.Context, tenantID, id string) (model.Run, error) {
    var r model.Run
    row := p.db.QueryRowContext(ctx,
        `SELECT id::text, tenant_id, status, record_count, vehicle_count, generations, evaluations,
                best_individual, best_score, trace, notice, error,
                to_char(created_at, 'YYYY-MM-DD"T"HH24:MI:SSZ'), coalesce(to_char(finished_at, 'YYYY-MM-DD"T"HH24:MI:SSZ'), ''), coalesce(duration_ms, 0)
         FROM runs WHERE tenant_id=$1 AND id=$2`, tenantID, id)
    var bestInd, trace []byte
    var bestScore sql.NullFloat64
    var notice, errMsg sql.NullString
    if err := row.Scan(&r.ID, &r.TenantID, &r.Status, &r.RecordCount, &r.VehicleCount, &r.Generations, &r.Evaluations,
        &bestInd, &bestScore, &trace, &notice, &errMsg, &r.CreatedAt, &r.FinishedAt, &r.DurationMs); err != nil {
        if errors.Is(err, sql.ErrNoRows) { return r, ErrNotFound }
        return r, err
    }
    if len(bestInd) > 0 { _ = json.Unmarshal(bestInd, &r.BestIndividual) }
    if len(trace) > 0 { _ = json.Unmarshal(trace, &r.Trace) }
    r.BestScore = bestScore.Float64
    r.Notice = notice.String
    r.Error = errMsg.String
    return r, nil
}

func (p *Postgres) ListRuns(ctx context.Context, tenantID, status, cursor string, limit int) ([]model.Run, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    // cursor is the last id text, same scheme as the rest of the API
    var rows *sql.Rows
    var err error
    if status != "" {
        if cursor != "" {
            rows, err = p.db.QueryContext(ctx, `SELECT id::text, status, record_count, vehicle_count, generations, best_score FROM runs WHERE tenant_id=$1 AND status=$2 AND id::text > $3 ORDER BY id LIMIT $4`, tenantID, status, cursor, limit)
        } else {
            rows, err = p.db.QueryContext(ctx, `SELECT id::text, status, record_count, vehicle_count, generations, best_score FROM runs WHERE tenant_id=$1 AND status=$2 ORDER BY id LIMIT $3`, tenantID, status, limit)
        }
    } else {
        if cursor != "" {
            rows, err = p.db.QueryContext(ctx, `SELECT id::text, status, record_count, vehicle_count, generations, best_score FROM runs WHERE tenant_id=$1 AND id::text > $2 ORDER BY id LIMIT $3`, tenantID, cursor, limit)
        } else {
            rows, err = p.db.QueryContext(ctx, `SELECT id::text, status, record_count, vehicle_count, generations, best_score FROM runs WHERE tenant_id=$1 ORDER BY id LIMIT $2`, tenantID, limit)
        }
    }
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []model.Run{}
    var last string
    for rows.Next() {
        var r model.Run
        var bestScore sql.NullFloat64
        if err := rows.Scan(&r.ID, &r.Status, &r.RecordCount, &r.VehicleCount, &r.Generations, &bestScore); err != nil { return nil, "", err }
        r.TenantID = tenantID
        r.BestScore = bestScore.Float64
        out = append(out, r)
        last = r.ID
    }
    var next string
    if len(out) == limit { next = last }
    return out, next, nil
}

func (p *Postgres) GetOptimizerConfig(ctx context.Context, tenantID string) (map[string]any, error) {
    var raw []byte
    err := p.db.QueryRowContext(ctx, `SELECT config FROM optimizer_config WHERE tenant_id=$1`, tenantID).Scan(&raw)
    if errors.Is(err, sql.ErrNoRows) { return nil, nil }
    if err != nil { return nil, err }
    var cfg map[string]any
    if err := json.Unmarshal(raw, &cfg); err != nil { return nil, err }
    return cfg, nil
}

func (p *Postgres) SaveOptimizerConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
    _, err := p.db.ExecContext(ctx,
        `INSERT INTO optimizer_config (tenant_id, config) VALUES ($1,$2)
         ON CONFLICT (tenant_id) DO UPDATE SET config=EXCLUDED.config`, tenantID, toJSON(cfg))
    return err
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
    s := model.Subscription{ID: uuid.New().String(), TenantID: req.TenantID, URL: req.URL, Secret: req.Secret, EventTypes: req.EventTypes}
    _, err := p.db.ExecContext(ctx,
        `INSERT INTO subscriptions (id, tenant_id, url, secret, event_types) VALUES ($1,$2,$3,$4,$5)`,
        s.ID, s.TenantID, s.URL, nullIfEmpty(s.Secret), toJSON(s.EventTypes))
    if err != nil { return model.Subscription{}, err }
    return s, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
    rows, err := p.db.QueryContext(ctx,
        `SELECT id::text, url, coalesce(secret,''), event_types FROM subscriptions WHERE tenant_id=$1 AND event_types ? $2`, tenantID, eventType)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []model.Subscription
    for rows.Next() {
        s := model.Subscription{TenantID: tenantID}
        var evts []byte
        if err := rows.Scan(&s.ID, &s.URL, &s.Secret, &evts); err != nil { return nil, err }
        _ = json.Unmarshal(evts, &s.EventTypes)
        out = append(out, s)
    }
    return out, nil
}

func (p *Postgres) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    var rows *sql.Rows
    var err error
    if cursor != "" {
        rows, err = p.db.QueryContext(ctx, `SELECT id::text, url, event_types FROM subscriptions WHERE tenant_id=$1 AND id::text > $2 ORDER BY id LIMIT $3`, tenantID, cursor, limit)
    } else {
        rows, err = p.db.QueryContext(ctx, `SELECT id::text, url, event_types FROM subscriptions WHERE tenant_id=$1 ORDER BY id LIMIT $2`, tenantID, limit)
    }
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []model.Subscription{}
    var last string
    for rows.Next() {
        s := model.Subscription{TenantID: tenantID}
        var evts []byte
        if err := rows.Scan(&s.ID, &s.URL, &evts); err != nil { return nil, "", err }
        _ = json.Unmarshal(evts, &s.EventTypes)
        out = append(out, s)
        last = s.ID
    }
    var next string
    if len(out) == limit { next = last }
    return out, next, nil
}

func (p *Postgres) DeleteSubscription(ctx context.Context, tenantID, id string) error {
    res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE tenant_id=$1 AND id=$2`, tenantID, id)
    if err != nil { return err }
    if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
    return nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
    id := uuid.New().String()
    _, err := p.db.ExecContext(ctx,
        `INSERT INTO webhook_deliveries (id, tenant_id, subscription_id, event_type, url, secret, payload, status) VALUES ($1,$2,$3,$4,$5,$6,$7,'pending')`,
        id, tenantID, subscriptionID, eventType, url, nullIfEmpty(secret), payload)
    if err != nil { return "", err }
    return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
    if limit <= 0 { limit = 50 }
    rows, err := p.db.QueryContext(ctx,
        `SELECT id::text, tenant_id, subscription_id::text, event_type, url, coalesce(secret,''), payload, status, attempts
         FROM webhook_deliveries WHERE status IN ('pending','retry') AND next_attempt_at <= now() ORDER BY next_attempt_at LIMIT $1`, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []WebhookDelivery
    for rows.Next() {
        var d WebhookDelivery
        if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil { return nil, err }
        out = append(out, d)
    }
    return out, nil
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
    if success {
        _, err := p.db.ExecContext(ctx,
            `UPDATE webhook_deliveries SET status='delivered', attempts=attempts+1, response_code=$1, latency_ms=$2, delivered_at=now() WHERE id=$3`,
            responseCode, latencyMs, id)
        return err
    }
    next := time.Now().Add(1 * time.Minute)
    if nextAttemptAt != nil { next = *nextAttemptAt }
    _, err := p.db.ExecContext(ctx,
        `UPDATE webhook_deliveries SET status='retry', attempts=attempts+1, last_error=$1, response_code=$2, latency_ms=$3, next_attempt_at=$4 WHERE id=$5`,
        nullIfEmpty(lastError), responseCode, latencyMs, next, id)
    return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
    _, err := p.db.ExecContext(ctx,
        `UPDATE webhook_deliveries SET status='failed', last_error=$1, response_code=$2, latency_ms=$3 WHERE id=$4`,
        nullIfEmpty(lastError), responseCode, latencyMs, id)
    return err
}

func toJSON(v any) []byte {
    if v == nil { return nil }
    b, err := json.Marshal(v)
    if err != nil { return nil }
    return b
}

func nullIfEmpty(s string) any {
    if s == "" { return nil }
    return s
}
