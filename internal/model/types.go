package model

// Domain types shared between the optimizer core, the store, and the API.

// DemandRecord is one delivery stop: an external identifier, a geographic
// position, and the load it contributes to whichever route it is assigned
// to. Immutable once loaded.
type DemandRecord struct {
    ExternalID string  `json:"externalId"`
    Latitude   float64 `json:"latitude"`
    Longitude  float64 `json:"longitude"`
    Weight     float64 `json:"weight"`
    Pallets    int     `json:"pallets"`
}

// TracePoint records the best score seen up to a generation.
type TracePoint struct {
    Generation int     `json:"generation"`
    BestScore  float64 `json:"bestScore"`
}

// OptimizeRequest carries a complete problem instance. The distance matrix
// and lookup are produced by an external geocoding/distance stage; this
// service never computes them.
type OptimizeRequest struct {
    TenantID        string         `json:"tenantId,omitempty"`
    Async           bool           `json:"async,omitempty"`
    Demand          []DemandRecord `json:"demand"`
    DistanceMatrix  [][]float64    `json:"distanceMatrix"`
    Lookup          map[string]int `json:"lookup"`
    FirstIndividual []int          `json:"firstIndividual"`
    VehicleCount    int            `json:"vehicleCount"`

    Generations    int     `json:"generations"`
    PopulationSize int     `json:"populationSize"`
    ElitismCount   int     `json:"elitismCount,omitempty"`
    TournamentSize int     `json:"tournamentSize,omitempty"`
    MutationRate   float64 `json:"mutationRate,omitempty"`
    CrossoverRate  float64 `json:"crossoverRate,omitempty"`
    RandomSeed     int64   `json:"randomSeed,omitempty"`

    ConvergencePatience int `json:"convergencePatience,omitempty"`
    TimeBudgetMs        int `json:"timeBudgetMs,omitempty"`

    MaxWeight  float64 `json:"maxWeight,omitempty"`
    MaxPallets float64 `json:"maxPallets,omitempty"`
}

// Run statuses.
const (
    RunRunning   = "running"
    RunCompleted = "completed"
    RunFailed    = "failed"
)

// Run is a persisted optimization run.
type Run struct {
    ID             string       `json:"id"`
    TenantID       string       `json:"tenantId,omitempty"`
    Status         string       `json:"status"`
    RecordCount    int          `json:"recordCount"`
    VehicleCount   int          `json:"vehicleCount"`
    Generations    int          `json:"generations"` // executed generations
    Evaluations    int          `json:"evaluations,omitempty"`
    BestIndividual []int        `json:"bestIndividual,omitempty"`
    BestScore      float64      `json:"bestScore,omitempty"`
    Trace          []TracePoint `json:"trace,omitempty"`
    Notice         string       `json:"notice,omitempty"` // e.g. "converged at generation 12"
    Error          string       `json:"error,omitempty"`
    CreatedAt      string       `json:"createdAt,omitempty"`
    FinishedAt     string       `json:"finishedAt,omitempty"`
    DurationMs     int          `json:"durationMs,omitempty"`
}

// SubscriptionRequest registers a webhook endpoint for run events.
type SubscriptionRequest struct {
    TenantID   string   `json:"tenantId,omitempty"`
    URL        string   `json:"url"`
    Secret     string   `json:"secret,omitempty"`
    EventTypes []string `json:"eventTypes"` // e.g. run.completed, run.failed
}

type Subscription struct {
    ID         string   `json:"id"`
    TenantID   string   `json:"tenantId,omitempty"`
    URL        string   `json:"url"`
    Secret     string   `json:"-"`
    EventTypes []string `json:"eventTypes"`
}
