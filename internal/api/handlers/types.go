package handlers

import (
	"strings"
	"time"

	"github.com/stitts-dev/dfs-lineup/internal/optimizer"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// PlayerInput is one candidate in an optimize request. Position is a raw
// platform label ("PG/SG", "LF"); Positions, when given, replaces it.
type PlayerInput struct {
	ID              string   `json:"id" binding:"required"`
	Name            string   `json:"name"`
	Team            string   `json:"team"`
	Position        string   `json:"position"`
	Positions       []string `json:"positions"`
	Salary          int      `json:"salary"`
	ProjectedPoints float64  `json:"projected_points"`
}

// OptimizeRequest selects a schema (built-in by ID or inline) and a player
// pool to optimize over.
type OptimizeRequest struct {
	SchemaID      string            `json:"schema_id"`
	Schema        *optimizer.Schema `json:"schema,omitempty"`
	SalaryCap     int               `json:"salary_cap,omitempty" binding:"gte=0"`
	Players       []PlayerInput     `json:"players" binding:"required,min=1,dive"`
	Locked        []string          `json:"locked,omitempty"`
	Excluded      []string          `json:"excluded,omitempty"`
	TimeLimitMs   int64             `json:"time_limit_ms,omitempty" binding:"gte=0"`
	NodeLimit     int               `json:"node_limit,omitempty" binding:"gte=0"`
	AllowFallback bool              `json:"allow_fallback,omitempty"`
	ClientID      string            `json:"client_id,omitempty"`
}

// OptimizeResponse is the JSON form of a solved lineup.
type OptimizeResponse struct {
	OptimizationID string                `json:"optimization_id"`
	Schema         string                `json:"schema"`
	Lineup         *optimizer.Assignment `json:"lineup"`
	Optimal        bool                  `json:"optimal"`
	Fallback       bool                  `json:"fallback"`
	Backend        string                `json:"backend"`
	Nodes          int                   `json:"nodes"`
	ElapsedMs      int64                 `json:"elapsed_ms"`
	Cached         bool                  `json:"cached"`
}

// ValidateResponse describes the model an optimize request would solve.
type ValidateResponse struct {
	Schema      string `json:"schema"`
	Players     int    `json:"players"`
	RosterSize  int    `json:"roster_size"`
	SalaryCap   int    `json:"salary_cap"`
	Variables   int    `json:"variables"`
	Constraints int    `json:"constraints"`
}

func newOptimizeResponse(schema optimizer.Schema, res *optimizer.Result) OptimizeResponse {
	return OptimizeResponse{
		OptimizationID: res.OptimizationID,
		Schema:         schema.ID,
		Lineup:         res.Assignment,
		Optimal:        res.Solution.Optimal,
		Fallback:       res.Fallback,
		Backend:        res.Solution.Backend,
		Nodes:          res.Solution.Nodes,
		ElapsedMs:      res.Solution.Elapsed.Milliseconds(),
	}
}

// players converts the request's players, mapping positions through the
// schema's aliases.
func (r *OptimizeRequest) players(schema optimizer.Schema) []optimizer.Player {
	out := make([]optimizer.Player, len(r.Players))
	for i, in := range r.Players {
		raw := in.Position
		if len(in.Positions) > 0 {
			raw = strings.Join(in.Positions, "/")
		}
		out[i] = optimizer.Player{
			ID:              in.ID,
			Name:            in.Name,
			Team:            in.Team,
			Salary:          in.Salary,
			ProjectedPoints: in.ProjectedPoints,
			Categories:      schema.Categorize(raw),
		}
	}
	return out
}
