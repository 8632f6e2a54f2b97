package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Tender/internal/api"
	"github.com/MikeSquared-Agency/Tender/internal/evaluation"
	"github.com/MikeSquared-Agency/Tender/internal/procurement"
	"github.com/MikeSquared-Agency/Tender/internal/store"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEvaluateDemoPackage(t *testing.T) {
	out, err := runCommand(t, "evaluate", "-f", "demo.yaml")
	require.NoError(t, err)

	var result evaluation.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Ranking, 3)
	assert.Equal(t, 95.2, result.Ranking[0].Total)
	assert.Equal(t, 80.9, result.Ranking[1].Total)
	assert.Equal(t, 56.0, result.Ranking[2].Total)

	x := result.Ranking[0].BidID
	require.NotNil(t, result.Recommendation.BidID)
	assert.Equal(t, x, *result.Recommendation.BidID)
	assert.Len(t, result.Frontier, 2)

	again, err := runCommand(t, "evaluate", "-f", "demo.yaml")
	require.NoError(t, err)
	assert.Equal(t, out, again, "ids are derived from the file, so output is stable")
}

func TestEvaluateNoPareto(t *testing.T) {
	out, err := runCommand(t, "evaluate", "-f", "demo.yaml", "--no-pareto")
	require.NoError(t, err)
	var result evaluation.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Empty(t, result.Frontier)
}

func TestEvaluateRejectsBadWeights(t *testing.T) {
	_, err := runCommand(t, "evaluate", "-f", filepath.Join("testdata", "bad_weights.yaml"))
	require.Error(t, err)
	assert.Equal(t, evaluation.KindInvalidWeights, evaluation.KindOf(err))

	// A generous tolerance lets the 90-point set through.
	_, err = runCommand(t, "evaluate", "-f", filepath.Join("testdata", "bad_weights.yaml"), "--weights-tolerance", "10")
	assert.NoError(t, err)
}

func TestEvaluateExcludesNonFiniteBids(t *testing.T) {
	out, err := runCommand(t, "evaluate", "-f", filepath.Join("testdata", "nonfinite.yaml"))
	require.NoError(t, err)

	var result evaluation.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Ranking, 1)
	require.Len(t, result.Excluded, 2)
	kinds := []evaluation.ErrorKind{result.Excluded[0].Kind, result.Excluded[1].Kind}
	assert.ElementsMatch(t, []evaluation.ErrorKind{evaluation.KindInvalidScore, evaluation.KindInvalidBid}, kinds)
	require.NotNil(t, result.Recommendation.BidID)
	assert.Equal(t, result.Ranking[0].BidID, *result.Recommendation.BidID)
}

func TestEvaluateRequiresFile(t *testing.T) {
	_, err := runCommand(t, "evaluate")
	assert.Error(t, err)

	_, err = runCommand(t, "evaluate", "-f", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPackageFileErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pkg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
package:
  title: Paving
  estimated_value: "lots"
  weights: {price: 100}
`), 0o644))

	pf, err := loadPackageFile(path)
	require.NoError(t, err)
	_, _, err = pf.snapshot()
	assert.ErrorContains(t, err, "estimated_value")
}

func TestWeightsCheck(t *testing.T) {
	out, err := runCommand(t, "weights", "check", "-f", "demo.yaml")
	require.NoError(t, err)
	assert.Equal(t, "weights ok: 5 criteria, sum 100.00\n", out)

	_, err = runCommand(t, "weights", "check", "-f", filepath.Join("testdata", "bad_weights.yaml"))
	assert.Equal(t, evaluation.KindInvalidWeights, evaluation.KindOf(err))
}

func TestWeightsDefault(t *testing.T) {
	out, err := runCommand(t, "weights", "default")
	require.NoError(t, err)
	assert.Contains(t, out, "price")
	assert.Contains(t, out, "40.0")
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := evaluation.NewEngine(evaluation.Options{ParetoEnabled: true}, logger)
	svc := procurement.New(store.NewMemoryStore(), nil, engine, nil, logger)
	srv := httptest.NewServer(api.NewRouter(svc, "", logger))
	t.Cleanup(srv.Close)
	return srv
}

func TestSeedDemoPackage(t *testing.T) {
	srv := newTestServer(t)

	out, err := runCommand(t, "seed", "--api", srv.URL, "--actor", "ops")
	require.NoError(t, err)
	assert.Contains(t, out, "submitted 3 bids")
	assert.Contains(t, out, "total 95.2 amount 2650000 compliant")
	assert.Contains(t, out, "recommended bid")
}

func TestSeedRejected(t *testing.T) {
	srv := newTestServer(t)

	_, err := runCommand(t, "seed", "--api", srv.URL, "-f", filepath.Join("testdata", "bad_weights.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errRejected))
}
