package authoring

import (
	"fmt"

	"github.com/toothbrush/webverse-authoring/aem"
)

// TargetResult is what happened to one page, component or file of a request.
type TargetResult struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

func succeeded(name, p string) TargetResult {
	return TargetResult{Name: name, Path: p, Success: true}
}

func failed(name, p string, err error) TargetResult {
	return TargetResult{
		Name:       name,
		Path:       p,
		Error:      err.Error(),
		StatusCode: aem.StatusCode(err),
	}
}

type Summary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Outcome of a request touching several targets.  Targets are independent: one failing does
// not undo the others, so Success only says whether all of them went through.
type Outcome struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Results []TargetResult `json:"results"`
	Summary Summary        `json:"summary"`
}

func newOutcome(what string, results []TargetResult) *Outcome {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Success {
			s.Successful++
		}
	}
	s.Failed = s.Total - s.Successful

	o := &Outcome{
		Success: s.Failed == 0,
		Results: results,
		Summary: s,
	}
	switch {
	case s.Failed == 0:
		o.Message = fmt.Sprintf("Successfully processed %d %s", s.Total, what)
	case s.Successful == 0:
		o.Message = fmt.Sprintf("Failed to process all %d %s", s.Total, what)
	default:
		o.Message = fmt.Sprintf("Partial success: %d of %d %s failed", s.Failed, s.Total, what)
	}
	return o
}
