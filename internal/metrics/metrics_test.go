// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/isic-scoring/internal/score"
)

func TestRecordScoringRun(t *testing.T) {
	runs := scoringRunsTotal.WithLabelValues("3", OutcomeSuccess)
	images := scoringImagesTotal.WithLabelValues("3")
	beforeRuns := testutil.ToFloat64(runs)
	beforeImages := testutil.ToFloat64(images)

	RecordScoringRun(score.TaskClassification, OutcomeSuccess, 250*time.Millisecond, 12)

	assert.Equal(t, beforeRuns+1, testutil.ToFloat64(runs))
	assert.Equal(t, beforeImages+12, testutil.ToFloat64(images))
}

func TestRecordScoresExportsAggregateOnly(t *testing.T) {
	RecordScores(score.TaskLesionSegmentation, score.Scores{
		{Dataset: "ISIC_0000001", Metrics: []score.Metric{{Name: "jaccard", Value: 0.1}}},
		{Dataset: score.DatasetAggregate, Metrics: []score.Metric{{Name: "jaccard", Value: 0.8}}},
	})

	assert.Equal(t, 0.8, testutil.ToFloat64(scoreValue.WithLabelValues("1", score.DatasetAggregate, "jaccard")))

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.NotContains(t, rec.Body.String(), `dataset="ISIC_0000001"`)
}

func TestSubmissionsQueuedGauge(t *testing.T) {
	before := testutil.ToFloat64(submissionsQueued)
	IncSubmissionsQueued()
	IncSubmissionsQueued()
	DecSubmissionsQueued()
	assert.Equal(t, before+1, testutil.ToFloat64(submissionsQueued))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, Outcome(nil, false))
	assert.Equal(t, OutcomeCanceled, Outcome(context.Canceled, true))
	assert.Equal(t, OutcomeScoreError, Outcome(score.Errorf("bad csv"), false))
	assert.Equal(t, OutcomeInternal, Outcome(errors.New("disk full"), false))
}

func TestHTTPMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMiddleware())
	r.Get("/api/v1/submissions/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/submissions/{id}", "404")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/submissions/abc", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
	assert.GreaterOrEqual(t, histogramCount(t, http.MethodGet, "/api/v1/submissions/{id}"), uint64(1))

	scrape := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.False(t, strings.Contains(scrape.Body.String(), "/api/v1/submissions/abc"))
}

func TestRecordRateLimited(t *testing.T) {
	counter := rateLimitExceeded.WithLabelValues(LimitGlobal)
	before := testutil.ToFloat64(counter)
	RecordRateLimited(LimitGlobal)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func histogramCount(t *testing.T, method, route string) uint64 {
	t.Helper()
	m, ok := httpRequestDuration.WithLabelValues(method, route).(prometheus.Metric)
	require.True(t, ok)
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	return out.GetHistogram().GetSampleCount()
}
