package email

import (
	"strings"
	"testing"
)

func TestServiceIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{
			name:     "empty config",
			config:   Config{},
			expected: false,
		},
		{
			name: "missing host",
			config: Config{
				Port: "587",
				From: "test@example.com",
			},
			expected: false,
		},
		{
			name: "missing port",
			config: Config{
				Host: "smtp.example.com",
				From: "test@example.com",
			},
			expected: false,
		},
		{
			name: "missing from",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
			},
			expected: false,
		},
		{
			name: "fully configured",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
				From: "test@example.com",
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.config)
			if svc.IsConfigured() != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", svc.IsConfigured(), tt.expected)
			}
		})
	}
}

func TestRenderCourtReminderTemplate(t *testing.T) {
	data := CourtReminderData{
		AppName:    "LexDesk",
		CaseTitle:  "Okafor v. State",
		ClientName: "Maya Okafor",
		CourtName:  "Superior Court, Dept. 12",
		CourtDate:  "Fri, 06 Mar 2026 09:30 MST",
		Address:    "100 Main St",
	}

	html, err := renderTemplate(courtReminderTemplate, data)
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}

	if !strings.Contains(html, "LexDesk") {
		t.Error("template should contain app name")
	}
	if !strings.Contains(html, "Okafor v. State") {
		t.Error("template should contain case title")
	}
	if !strings.Contains(html, "Superior Court, Dept. 12") {
		t.Error("template should contain court name")
	}
	if !strings.Contains(html, "Fri, 06 Mar 2026 09:30 MST") {
		t.Error("template should contain court date")
	}
}
