package logging

import (
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "JSON format to stdout",
			config:  Config{Level: "info", Format: "json", Output: "stdout"},
			wantErr: false,
		},
		{
			name:    "Console format to stderr",
			config:  Config{Level: "debug", Format: "console", Output: "stderr"},
			wantErr: false,
		},
		{
			name:    "Invalid log level defaults to info",
			config:  Config{Level: "invalid", Format: "json", Output: "stdout"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewLogger() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("Expected non-nil logger")
			}
		})
	}
}

func TestLoggerFieldHelpers(t *testing.T) {
	logger, err := NewDefaultLogger()
	if err != nil {
		t.Fatalf("NewDefaultLogger() error = %v", err)
	}

	// Each helper must return a derived logger, not mutate the receiver
	derived := logger.WithUserID("user-1").WithDownloadID("dl-1").WithURL("https://youtu.be/x")
	if derived == logger {
		t.Error("Expected a derived logger instance")
	}

	// Must not panic
	derived.Info("test message")
	derived.LogDownloadEvent("dl-1", "completed", "completed", map[string]interface{}{"size": 1024})
	derived.LogSessionEvent("user-1", "choose_type", "type_chosen")
}
