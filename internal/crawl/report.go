package crawl

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReportFile is written under the data root after each fetch run.
const ReportFile = ".lastrun.json"

// FailedEntry records an instrument whose run ended with an error.
type FailedEntry struct {
	Provider string `json:"provider"`
	Key      string `json:"key"`
	Reason   string `json:"reason"`
}

// RunReport summarizes one fetch run across instruments.
type RunReport struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Start      string        `json:"start"`
	End        string        `json:"end"`
	Success    []string      `json:"success,omitempty"`
	Failed     []FailedEntry `json:"failed,omitempty"`
	Results    []any         `json:"results,omitempty"`
}

// NewRunReport starts a report for the [start, end] span.
func NewRunReport(start, end time.Time) *RunReport {
	return &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Start:     start.Format("2006-01-02"),
		End:       end.Format("2006-01-02"),
	}
}

// AddSuccess records a finished instrument and its result.
func (r *RunReport) AddSuccess(key string, result any) {
	r.Success = appendSuccess(r.Success, key)
	r.Results = append(r.Results, result)
}

// AddFailure records an instrument that ended with err.
func (r *RunReport) AddFailure(provider, key string, err error) {
	r.Failed = append(r.Failed, FailedEntry{Provider: provider, Key: key, Reason: err.Error()})
}

// FailedSummary joins the first failure reasons for a log line.
func (r *RunReport) FailedSummary() string {
	return joinFailedReasons(r.Failed)
}

// Write stamps the finish time and writes the report to dir/ReportFile.
func (r *RunReport) Write(dir string) (string, error) {
	r.FinishedAt = time.Now().UTC()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	p := filepath.Join(dir, ReportFile)
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return "", err
	}
	return p, nil
}

func appendSuccess(list []string, key string) []string {
	for _, k := range list {
		if k == key {
			return list
		}
	}
	return append(list, key)
}

func joinFailedReasons(failedList []FailedEntry) string {
	if len(failedList) == 0 {
		return ""
	}
	var b strings.Builder
	for i, f := range failedList {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f.Key)
		b.WriteString(": ")
		b.WriteString(f.Reason)
		if i >= 4 && len(failedList) > 6 {
			b.WriteString(fmt.Sprintf(" (+%d more)", len(failedList)-5))
			break
		}
	}
	return b.String()
}
