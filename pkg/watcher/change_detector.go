package watcher

import (
	"sort"
	"strings"
)

// ChangeAnalysis describes what changed and what needs to be reloaded
// before the next evaluation
type ChangeAnalysis struct {
	ReloadConfig  bool
	ReloadGraph   bool
	ReloadQueries bool
	ChangedFiles  []string
}

// AnalyzeChanges merges a batch of debounced events into one decision.
func AnalyzeChanges(events ...ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{}

	for _, event := range events {
		analysis.ChangedFiles = append(analysis.ChangedFiles, event.Paths...)

		switch event.Type {
		case ChangeTypeConfig:
			// Any parameter may have changed, including which files to read
			analysis.ReloadConfig = true
			analysis.ReloadGraph = true
			analysis.ReloadQueries = true

		case ChangeTypeGraph:
			analysis.ReloadGraph = true

		case ChangeTypeQueries:
			analysis.ReloadQueries = true
		}
	}

	sort.Strings(analysis.ChangedFiles)
	return analysis
}

// Reason is a short description for logs and run status.
func (a *ChangeAnalysis) Reason() string {
	var parts []string
	if a.ReloadConfig {
		parts = append(parts, "config")
	} else {
		if a.ReloadGraph {
			parts = append(parts, "graph")
		}
		if a.ReloadQueries {
			parts = append(parts, "queries")
		}
	}
	if len(parts) == 0 {
		return "no changes"
	}
	return strings.Join(parts, " and ") + " changed"
}
