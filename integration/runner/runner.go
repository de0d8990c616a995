package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// RunIDHeader carries the run id on every request so a run can be found in the relay's logs.
const RunIDHeader = "X-Run-ID"

// Runner executes integration tests against a running relay API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 30 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// A sequence may reference another sequence
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite executes a complete test suite
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
		RunID:   uuid.NewString(),
	}

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, result.RunID, step)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) runStep(ctx context.Context, runID string, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	method := step.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(step.Body) > 0 {
		body = bytes.NewReader(step.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+step.Path, body)
	if err != nil {
		result.Error = fmt.Errorf("failed to create request: %w", err)
		result.Duration = time.Since(start)
		return result
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(RunIDHeader, runID)

	resp, err := r.Client.Do(req)
	if err != nil {
		result.Error = fmt.Errorf("request failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Error = fmt.Errorf("failed to read response body: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.StatusCode = resp.StatusCode
	result.ResponseText = string(respBody)
	result.Error = checkExpectations(step.Expectations, resp.StatusCode, respBody)
	result.Success = result.Error == nil
	result.Duration = time.Since(start)
	return result
}

func checkExpectations(expect Expectations, status int, body []byte) error {
	if expect.Status != 0 && status != expect.Status {
		return fmt.Errorf("expected status %d, got %d: %s", expect.Status, status, strings.TrimSpace(string(body)))
	}

	text := string(body)
	for _, want := range expect.BodyContains {
		if !strings.Contains(text, want) {
			return fmt.Errorf("response does not contain %q", want)
		}
	}
	for _, unwanted := range expect.BodyNotContains {
		if strings.Contains(text, unwanted) {
			return fmt.Errorf("response unexpectedly contains %q", unwanted)
		}
	}

	if expect.BodyRegex != "" {
		re, err := regexp.Compile(expect.BodyRegex)
		if err != nil {
			return fmt.Errorf("invalid body_regex %q: %w", expect.BodyRegex, err)
		}
		if !re.Match(body) {
			return fmt.Errorf("response does not match %q", expect.BodyRegex)
		}
	}

	if expect.InteractionIDs != nil {
		var listed struct {
			Interactions []struct {
				ID string `json:"id"`
			} `json:"interactions"`
		}
		if err := json.Unmarshal(body, &listed); err != nil {
			return fmt.Errorf("failed to decode interactions: %w", err)
		}
		got := make([]string, 0, len(listed.Interactions))
		for _, in := range listed.Interactions {
			got = append(got, in.ID)
		}
		if strings.Join(got, ",") != strings.Join(expect.InteractionIDs, ",") {
			return fmt.Errorf("expected interactions %v, got %v", expect.InteractionIDs, got)
		}
	}

	return nil
}
