package security_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devagent/orchestrator/security"
)

type stubEvaluator struct {
	resp security.EvalResponse
	err  error
}

func (e stubEvaluator) Evaluate(context.Context, security.EvalRequest) (security.EvalResponse, error) {
	return e.resp, e.err
}

func TestValidateWithEvaluatorOverridesUnknownCommandDeny(t *testing.T) {
	evaluator := stubEvaluator{resp: security.EvalResponse{Verdict: security.VerdictAllow}}
	d := security.ValidateWithEvaluator(context.Background(), bashCall("jq '.' file.json"), baseProfile(), evaluator)
	assert.True(t, d.Allow)
}

func TestValidateWithEvaluatorKeepsDenyOnAskVerdict(t *testing.T) {
	evaluator := stubEvaluator{resp: security.EvalResponse{Verdict: security.VerdictAsk, Reason: "unclear"}}
	d := security.ValidateWithEvaluator(context.Background(), bashCall("jq '.' file.json"), baseProfile(), evaluator)
	require.False(t, d.Allow)
}

func TestValidateWithEvaluatorKeepsDenyOnEvaluatorError(t *testing.T) {
	evaluator := stubEvaluator{err: errors.New("model unavailable")}
	d := security.ValidateWithEvaluator(context.Background(), bashCall("jq '.' file.json"), baseProfile(), evaluator)
	require.False(t, d.Allow)
}

func TestValidateWithEvaluatorNeverOverridesValidatorDenial(t *testing.T) {
	evaluator := stubEvaluator{resp: security.EvalResponse{Verdict: security.VerdictAllow}}
	d := security.ValidateWithEvaluator(context.Background(), bashCall("git push --force origin main"), baseProfile(), evaluator)
	require.False(t, d.Allow)
}

func TestValidateWithEvaluatorNilEvaluatorPassesThroughDeny(t *testing.T) {
	d := security.ValidateWithEvaluator(context.Background(), bashCall("jq '.' file.json"), baseProfile(), nil)
	require.False(t, d.Allow)
}
