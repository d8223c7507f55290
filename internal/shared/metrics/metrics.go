package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// family is one exposed metric. Families render in registration order.
type family interface {
	write(w io.Writer)
}

var (
	registryMu sync.Mutex
	registry   []family
)

func register[F family](f F) F {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, f)
	return f
}

type counter struct {
	name, help string
	v          atomic.Uint64
}

func newCounter(name, help string) *counter {
	return register(&counter{name: name, help: help})
}

func (c *counter) inc() { c.v.Add(1) }

func (c *counter) write(w io.Writer) {
	header(w, c.name, c.help, "counter")
	fmt.Fprintf(w, "%s %d\n", c.name, c.v.Load())
}

// labeledCounter is a counter keyed by one label.
type labeledCounter struct {
	name, help, label string
	mu                sync.Mutex
	values            map[string]uint64
}

func newLabeledCounter(name, help, label string) *labeledCounter {
	return register(&labeledCounter{name: name, help: help, label: label, values: map[string]uint64{}})
}

func (c *labeledCounter) inc(value string) {
	c.mu.Lock()
	c.values[value]++
	c.mu.Unlock()
}

func (c *labeledCounter) write(w io.Writer) {
	c.mu.Lock()
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s{%s=%q} %d\n", c.name, c.label, k, c.values[k]))
	}
	c.mu.Unlock()

	header(w, c.name, c.help, "counter")
	for _, l := range lines {
		io.WriteString(w, l)
	}
}

// histogram keeps cumulative bucket counts: an observation increments every
// bucket whose upper bound covers it.
type histogram struct {
	name, help string
	mu         sync.Mutex
	bounds     []float64
	counts     []uint64
	sum        float64
	count      uint64
}

type histogramSnapshot struct {
	bounds []float64
	counts []uint64
	sum    float64
	count  uint64
}

func newHistogram(bounds []float64) *histogram {
	return &histogram{bounds: bounds, counts: make([]uint64, len(bounds))}
}

func newNamedHistogram(name, help string, bounds []float64) *histogram {
	h := newHistogram(bounds)
	h.name, h.help = name, help
	return register(h)
}

func (h *histogram) Observe(value float64) {
	value = max(value, 0)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.bounds {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		bounds: append([]float64(nil), h.bounds...),
		counts: append([]uint64(nil), h.counts...),
		sum:    h.sum,
		count:  h.count,
	}
}

func (h *histogram) write(w io.Writer) {
	snap := h.Snapshot()
	header(w, h.name, h.help, "histogram")
	for i, bound := range snap.bounds {
		fmt.Fprintf(w, "%s_bucket{le=%q} %d\n", h.name, formatFloat(bound), snap.counts[i])
	}
	fmt.Fprintf(w, "%s_bucket{le=\"+Inf\"} %d\n", h.name, snap.count)
	fmt.Fprintf(w, "%s_sum %s\n", h.name, formatFloat(snap.sum))
	fmt.Fprintf(w, "%s_count %d\n", h.name, snap.count)
}

func header(w io.Writer, name, help, kind string) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var (
	httpRequests = newLabeledCounter("http_requests_total", "HTTP requests by status class", "code")
	httpDuration = newNamedHistogram("http_request_duration_ms", "HTTP request latency in milliseconds",
		[]float64{5, 25, 100, 250, 1000, 5000, 30000})
	rateLimited = newLabeledCounter("rate_limited_total", "Requests rejected by the rate limiter", "group")

	analysisStarted   = newCounter("analysis_started_total", "Analyses started")
	analysisCompleted = newCounter("analysis_completed_total", "Analyses completed")
	analysisFailed    = newCounter("analysis_failed_total", "Analyses failed")
	analysisDuration  = newNamedHistogram("analysis_duration_ms", "Analysis duration in milliseconds",
		[]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})

	jobsReceived      = newCounter("analysis_jobs_received_total", "Queue messages received by the worker")
	jobsCompleted     = newCounter("analysis_jobs_completed_total", "Queue messages completed by the worker")
	jobsFailed        = newCounter("analysis_jobs_failed_total", "Queue messages left for redelivery")
	jobsUnrecoverable = newCounter("analysis_jobs_deleted_unrecoverable_total", "Malformed queue messages deleted")

	matchRequests     = newCounter("skillmatch_requests_total", "Skill-match pipeline runs")
	matchServerScore  = newCounter("skillmatch_server_score_total", "Results scored by the deterministic scorer")
	matchStrict       = newCounter("skillmatch_strict_total", "Runs with strict matching enabled")
	matchTextScan     = newCounter("skillmatch_text_scan_total", "Runs that fell back to raw text extraction")
	matchSchemaFailed = newCounter("skillmatch_schema_failed_total", "Final records rejected by schema validation")

	interviewQuestions = newCounter("interview_questions_generated_total", "Interview question sets generated")
	interviewAnswers   = newCounter("interview_answers_scored_total", "Interview answers scored")

	llmFailed   = newCounter("llm_calls_failed_total", "LLM completions that returned an error")
	llmDuration = newNamedHistogram("llm_call_duration_ms", "LLM completion latency in milliseconds",
		[]float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

func IncAnalysisStarted()                  { analysisStarted.inc() }
func IncAnalysisCompleted()                { analysisCompleted.inc() }
func IncAnalysisFailed()                   { analysisFailed.inc() }
func ObserveAnalysisDurationMs(ms float64) { analysisDuration.Observe(ms) }

// Worker message outcomes.
func IncAnalysisJobsReceived()             { jobsReceived.inc() }
func IncAnalysisJobsCompleted()            { jobsCompleted.inc() }
func IncAnalysisJobsFailed()               { jobsFailed.inc() }
func IncAnalysisJobsDeletedUnrecoverable() { jobsUnrecoverable.inc() }

func IncSkillMatchRequests()          { matchRequests.inc() }
func IncSkillMatchServerScore()       { matchServerScore.inc() }
func IncSkillMatchStrict()            { matchStrict.inc() }
func IncSkillMatchTextScan()          { matchTextScan.inc() }
func IncSkillMatchSchemaFailed()      { matchSchemaFailed.inc() }
func IncInterviewQuestionsGenerated() { interviewQuestions.inc() }
func IncInterviewAnswersScored()      { interviewAnswers.inc() }

func IncLLMCallsFailed()                  { llmFailed.inc() }
func ObserveLLMCallDurationMs(ms float64) { llmDuration.Observe(ms) }

// ObserveHTTPRequest records one served request under its status class ("2xx").
func ObserveHTTPRequest(status int, ms float64) {
	httpRequests.inc(strconv.Itoa(status/100) + "xx")
	httpDuration.Observe(ms)
}

func IncRateLimited(group string) { rateLimited.inc(group) }

// Render writes every registered family in Prometheus text format.
func Render() string {
	var b strings.Builder
	registryMu.Lock()
	families := append([]family(nil), registry...)
	registryMu.Unlock()
	for _, f := range families {
		f.write(&b)
	}
	return b.String()
}

func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(Render()))
	}
}
