package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeRelay(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/interactions", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get(RunIDHeader))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"interactions":[{"id":"hail","label":"Hail"},{"id":"taunt","label":"Taunt"}]}`))
	})
	mux.HandleFunc("/v1/trigger", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"status":"dispatched"}`))
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy","components":{"redis":"healthy","executor":"ready"}}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRunSuite(t *testing.T) {
	server := fakeRelay(t)
	r := NewRunner(server.URL + "/")

	suite := TestSuite{
		Name: "listing",
		Steps: []TestStep{
			{
				Name: "ids in order",
				Path: "/v1/interactions",
				Expectations: Expectations{
					Status:         http.StatusOK,
					InteractionIDs: []string{"hail", "taunt"},
					BodyContains:   []string{"Taunt"},
				},
			},
			{
				Name:   "trigger",
				Method: http.MethodPost,
				Path:   "/v1/trigger",
				Body:   json.RawMessage(`{"interaction_id":"hail"}`),
				Expectations: Expectations{
					Status:    http.StatusAccepted,
					BodyRegex: `"status":\s*"dispatched"`,
				},
			},
		},
	}

	result, err := r.RunSuite(context.Background(), suite)
	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	assert.NotEmpty(t, result.RunID)
	for _, step := range result.Results {
		assert.True(t, step.Success, step.StepName)
		assert.Equal(t, "listing", step.TestName)
	}
}

func TestRunSuite_ErrorHandlingModes(t *testing.T) {
	server := fakeRelay(t)

	failing := TestSuite{
		Name: "failing",
		Steps: []TestStep{
			{Name: "wrong order", Path: "/v1/interactions", Expectations: Expectations{InteractionIDs: []string{"taunt", "hail"}}},
			{Name: "wrong status", Path: "/v1/interactions", Expectations: Expectations{Status: http.StatusTeapot}},
			{Name: "passes", Path: "/v1/interactions", Expectations: Expectations{BodyNotContains: []string{"Mayday"}}},
		},
	}

	tests := []struct {
		mode      ErrorHandlingMode
		wantSteps int
	}{
		{ErrorHandlingContinue, 3},
		{ErrorHandlingExit, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			r := NewRunner(server.URL)
			r.ErrorHandlingMode = tt.mode

			result, err := r.RunSuite(context.Background(), failing)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "wrong order")
			assert.Len(t, result.Results, tt.wantSteps)
		})
	}
}

func TestCheckExpectations(t *testing.T) {
	body := []byte(`{"error":"interaction not found"}`)

	assert.NoError(t, checkExpectations(Expectations{Status: 404, BodyContains: []string{"not found"}}, 404, body))
	assert.Error(t, checkExpectations(Expectations{Status: 202}, 404, body))
	assert.Error(t, checkExpectations(Expectations{BodyNotContains: []string{"error"}}, 404, body))
	assert.Error(t, checkExpectations(Expectations{BodyRegex: "("}, 404, body))
	assert.Error(t, checkExpectations(Expectations{InteractionIDs: []string{}}, 200, []byte("not json")))
}

func TestLoadTestSuiteWithExpansion(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("a.json", `{"name":"A","steps":[{"path":"/health"}]}`)
	write("b.json", `{"name":"B","steps":[{"path":"/v1/interactions"}]}`)
	write("inner.json", `{"name":"Inner","cases":["b.json"]}`)
	write("all.json", `{"name":"All","cases":["a.json","inner.json"]}`)
	write("broken.json", `{"name":"Broken","cases":["missing.json"]}`)

	jobs, err := LoadTestSuiteWithExpansion(filepath.Join(dir, "all.json"), dir)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "A", jobs[0].Name)
	assert.Equal(t, "B", jobs[1].Name)

	_, err = LoadTestSuiteWithExpansion(filepath.Join(dir, "broken.json"), dir)
	assert.ErrorContains(t, err, "missing.json")
}

func TestWaitForReady(t *testing.T) {
	server := fakeRelay(t)
	require.NoError(t, WaitForReady(context.Background(), server.Client(), server.URL, time.Second))

	notReady := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy","components":{"executor":"not_ready"}}`))
	}))
	defer notReady.Close()

	err := WaitForReady(context.Background(), notReady.Client(), notReady.URL, 50*time.Millisecond)
	assert.ErrorContains(t, err, "executor=not_ready")
}
