package history

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/stitts-dev/dfs-lineup/internal/models"
	"github.com/stitts-dev/dfs-lineup/internal/optimizer"
)

// RunParams are the request options stored with a run.
type RunParams struct {
	Locked        []string `json:"locked,omitempty"`
	Excluded      []string `json:"excluded,omitempty"`
	TimeLimitMs   int64    `json:"time_limit_ms,omitempty"`
	NodeLimit     int      `json:"node_limit,omitempty"`
	AllowFallback bool     `json:"allow_fallback,omitempty"`
}

func ParamsFromRequest(req optimizer.Request) RunParams {
	return RunParams{
		Locked:        req.Locked,
		Excluded:      req.Excluded,
		TimeLimitMs:   req.TimeLimit.Milliseconds(),
		NodeLimit:     req.NodeLimit,
		AllowFallback: req.AllowFallback,
	}
}

// SetParams encodes p into run.Params.
func SetParams(run *models.OptimizationRun, p RunParams) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode run params: %w", err)
	}
	run.Params = datatypes.JSON(data)
	return nil
}

// DecodeParams returns the stored params of run. Runs recorded without
// params decode to the zero value.
func DecodeParams(run *models.OptimizationRun) (RunParams, error) {
	var p RunParams
	if len(run.Params) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(run.Params, &p); err != nil {
		return p, fmt.Errorf("failed to decode run params: %w", err)
	}
	return p, nil
}
