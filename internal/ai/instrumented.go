package ai

import (
	"context"

	"cvanalyzer/internal/errors"
	"cvanalyzer/internal/observability"
)

// instrumentedOracle records oracle metrics and spans around an Oracle. It
// forwards ModelLister and HealthReporter when the wrapped oracle has them.
type instrumentedOracle struct {
	Oracle
	obs *observability.Manager
}

// Instrument wraps o so every Complete call is traced and metered by obs
func Instrument(o Oracle, obs *observability.Manager) Oracle {
	return &instrumentedOracle{Oracle: o, obs: obs}
}

func (i *instrumentedOracle) Complete(ctx context.Context, req OracleRequest) (*OracleReply, error) {
	var reply *OracleReply
	err := i.obs.TrackOracleCall(ctx, string(req.Operation), func(ctx context.Context) *observability.OracleCallResult {
		var err error
		reply, err = i.Oracle.Complete(ctx, req)
		result := &observability.OracleCallResult{Err: err, Model: i.Oracle.Model()}
		if reply != nil && reply.Usage != nil {
			result.HasUsage = true
			result.InputTokens = int64(reply.Usage.InputTokens)
			result.OutputTokens = int64(reply.Usage.OutputTokens)
			result.TotalTokens = int64(reply.Usage.TotalTokens)
		}
		return result
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func (i *instrumentedOracle) ListModels(ctx context.Context, limit int) ([]string, error) {
	lister, ok := i.Oracle.(ModelLister)
	if !ok {
		return nil, errors.NewOracleError(errors.ErrCodeOracleUnavailable,
			"oracle "+i.Oracle.Model()+" cannot list models", nil)
	}
	return lister.ListModels(ctx, limit)
}

func (i *instrumentedOracle) GetModelInfo(ctx context.Context) *ModelInfo {
	if hr, ok := i.Oracle.(HealthReporter); ok {
		return hr.GetModelInfo(ctx)
	}
	return &ModelInfo{Name: i.Oracle.Model(), Available: true}
}

func (i *instrumentedOracle) CircuitBreakerStats() map[string]any {
	if hr, ok := i.Oracle.(HealthReporter); ok {
		return hr.CircuitBreakerStats()
	}
	return map[string]any{}
}
