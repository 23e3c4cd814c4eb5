package tui

import (
	"context"
	"fmt"
	"strconv"
)

// View names.
const (
	// ViewMonitor is the live serve monitor; data must be a Source.
	ViewMonitor = "monitor"
	// ViewSummary is a static status; data must be a Status or *Status.
	ViewSummary = "summary"
)

// Run starts the appropriate TUI based on the view type.
// Returns an error if the view type doesn't support TUI.
func Run(viewType string, data any) error {
	if !IsTUISupported(viewType) {
		return fmt.Errorf("TUI mode is not supported for %s", viewType)
	}

	switch viewType {
	case ViewMonitor:
		src, ok := data.(Source)
		if !ok {
			return fmt.Errorf("invalid data type for %s", viewType)
		}
		return RunMonitorTUI(context.Background(), src)
	default:
		st, err := asStatus(data)
		if err != nil {
			return err
		}
		return RunMonitorTUI(context.Background(), func() Status { return st })
	}
}

// IsTUISupported returns true if the view type supports TUI mode.
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
	return []string{ViewMonitor, ViewSummary}
}

func asStatus(data any) (Status, error) {
	switch v := data.(type) {
	case Status:
		return v, nil
	case *Status:
		if v == nil {
			return Status{}, fmt.Errorf("nil status")
		}
		return *v, nil
	default:
		return Status{}, fmt.Errorf("invalid data type %T for %s", data, ViewSummary)
	}
}

func itoa(i int) string { return strconv.Itoa(i) }
