package tui

import (
	"fmt"
	"strings"
)

// Run starts the appropriate TUI based on the view type.
// Returns an error if the view type doesn't support TUI.
func Run(viewType string, data any) error {
	if !IsTUISupported(viewType) {
		return fmt.Errorf("TUI mode is not supported for %s", viewType)
	}

	switch {
	case strings.HasPrefix(viewType, "inspect_"):
		return RunInspectTUI(viewType, data)
	case strings.HasPrefix(viewType, "stats_"):
		return RunStatsTUI(viewType, data)
	case strings.HasPrefix(viewType, "catalog_"):
		return RunCatalogTUI(viewType, data)
	}

	return fmt.Errorf("unknown view type: %s", viewType)
}

// IsTUISupported returns true if the view type supports TUI mode.
// Only the read-only inspect, stats and catalog views do.
func IsTUISupported(viewType string) bool {
	for _, v := range SupportedTUIViews() {
		if v == viewType {
			return true
		}
	}
	return false
}

// SupportedTUIViews returns a list of view types that support TUI.
func SupportedTUIViews() []string {
	return []string{
		"inspect_transcript",
		"stats_metrics",
		"catalog_list",
	}
}
