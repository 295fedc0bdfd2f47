// SPDX-License-Identifier: AGPL-3.0-or-later
package runner

import (
	"fmt"
	"strings"
)

// Status is the outcome class of a check. The numeric value is the
// severity used for aggregation.
type Status int

const (
	StatusSkip Status = iota
	StatusPass
	StatusWarning
	StatusFail
)

var statusNames = [...]string{"skip", "pass", "warning", "fail"}

func (s Status) String() string {
	if s < StatusSkip || s > StatusFail {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// Severity is the ordinal 0-3 of the status.
func (s Status) Severity() int { return int(s) }

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if strings.EqualFold(string(text), name) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Outcome is what a check's evaluation concluded.
type Outcome struct {
	Status  Status
	Message string

	// Findings holds the newly introduced diagnostic text, if any.
	Findings string
}

func Skip(msg string) Outcome { return Outcome{Status: StatusSkip, Message: msg} }
func Pass(msg string) Outcome { return Outcome{Status: StatusPass, Message: msg} }

func Warning(msg, findings string) Outcome {
	return Outcome{Status: StatusWarning, Message: msg, Findings: findings}
}

func Fail(msg, findings string) Outcome {
	return Outcome{Status: StatusFail, Message: msg, Findings: findings}
}

// CheckResult is the persisted record of one check on one commit.
// Matches <state-dir>/results/<commit>/<check>.json.
type CheckResult struct {
	Commit   string `json:"commit"`
	Subject  string `json:"subject"`
	Check    string `json:"check"`
	Status   Status `json:"status"`
	Severity int    `json:"severity"`
	Message  string `json:"message,omitempty"`
	Findings string `json:"findings,omitempty"`
}

// Key identifies the result as "<short commit>:<check>".
func (r CheckResult) Key() string {
	return shortSHA(r.Commit) + ":" + r.Check
}

// LastRun summarizes the last pipeline run.
// Matches <state-dir>/last-run.json.
type LastRun struct {
	RunID       string         `json:"run_id"`
	Status      string         `json:"status"` // "pass", "warning", "fail" or "aborted"
	Base        string         `json:"base"`
	Commits     []string       `json:"commits"` // tested commits, in order
	Counts      map[string]int `json:"counts"`  // results per status
	MaxSeverity int            `json:"max_severity"`
	Warned      []string       `json:"warned"`
	Failed      []string       `json:"failed"`
	Error       string         `json:"error,omitempty"`
}

const (
	RunPass    = "pass"
	RunWarning = "warning"
	RunFail    = "fail"
	RunAborted = "aborted"
)

func newLastRun(runID, base string) *LastRun {
	return &LastRun{
		RunID:  runID,
		Status: RunPass,
		Base:   base,
		Counts: map[string]int{},
	}
}

func (l *LastRun) add(res CheckResult) {
	l.Counts[res.Status.String()]++
	if res.Severity > l.MaxSeverity {
		l.MaxSeverity = res.Severity
	}
	switch res.Status {
	case StatusWarning:
		l.Warned = append(l.Warned, res.Key())
	case StatusFail:
		l.Failed = append(l.Failed, res.Key())
	}
}

func (l *LastRun) finish(err error) {
	switch {
	case err != nil:
		l.Status = RunAborted
		l.Error = err.Error()
	case l.MaxSeverity >= StatusFail.Severity():
		l.Status = RunFail
	case l.MaxSeverity >= StatusWarning.Severity():
		l.Status = RunWarning
	default:
		l.Status = RunPass
	}
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
