package cli

import (
	"strings"
	"testing"

	"stockalert/internal/models"
)

func TestParseAlertType(t *testing.T) {
	tests := []struct {
		input   string
		want    models.AlertType
		wantErr bool
	}{
		{"rises-above", models.AlertRisesAbove, false},
		{"above", models.AlertRisesAbove, false},
		{"RISES-ABOVE", models.AlertRisesAbove, false},
		{"drops-below", models.AlertDropsBelow, false},
		{"below", models.AlertDropsBelow, false},
		{"percent-change", models.AlertPercentChange, false},
		{"percent", models.AlertPercentChange, false},
		{"crosses", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := parseAlertType(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseAlertType(%q) accepted an unknown type", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseAlertType(%q): %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseAlertType(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestFormatAlert(t *testing.T) {
	a := models.Alert{
		ID:      "abc-123",
		Symbol:  "AAPL",
		Type:    models.AlertRisesAbove,
		Value:   150.0,
		Enabled: true,
	}

	out := formatAlert(a)
	if !strings.Contains(out, "abc-123") || !strings.Contains(out, "AAPL") {
		t.Errorf("formatAlert = %q, missing id or symbol", out)
	}
	if !strings.Contains(out, "rises above 150.00") {
		t.Errorf("formatAlert = %q, missing condition", out)
	}
	if strings.Contains(out, "[") {
		t.Errorf("formatAlert = %q, default alert should have no flag suffix", out)
	}
}

func TestFormatAlertFlags(t *testing.T) {
	a := models.Alert{
		ID:              "abc-123",
		Symbol:          "SPY",
		Type:            models.AlertPercentChange,
		Value:           0.05,
		DeleteOnTrigger: true,
		ConditionActive: true,
		Enabled:         false,
	}

	out := formatAlert(a)
	for _, flag := range []string{"one-shot", "latched", "disabled"} {
		if !strings.Contains(out, flag) {
			t.Errorf("formatAlert = %q, missing %q flag", out, flag)
		}
	}
	if !strings.Contains(out, "5.0% from reference") {
		t.Errorf("formatAlert = %q, percent value should render as a percentage", out)
	}
}
