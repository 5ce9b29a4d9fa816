package metrics

import (
	"testing"
)

func TestPipelineMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"BatchesTotal", BatchesTotal},
		{"BatchRunning", BatchRunning},
		{"BatchDuration", BatchDuration},
		{"FilesExpandedTotal", FilesExpandedTotal},
		{"RecordsExtractedTotal", RecordsExtractedTotal},
		{"DigestsTotal", DigestsTotal},
		{"DigestDuration", DigestDuration},
		{"DigestBytesTotal", DigestBytesTotal},
		{"DigestWorkers", DigestWorkers},
		{"DigestWorkersBusy", DigestWorkersBusy},
		{"ScanMatchesTotal", ScanMatchesTotal},
		{"RuleDiagnosticsTotal", RuleDiagnosticsTotal},
		{"ArchiveFilesTotal", ArchiveFilesTotal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestHTTPMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"HTTPRequestsTotal", HTTPRequestsTotal},
		{"HTTPRequestDuration", HTTPRequestDuration},
		{"HTTPRequestsInFlight", HTTPRequestsInFlight},
		{"AuthAttemptsTotal", AuthAttemptsTotal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestInitializeMetricsDoesNotPanic(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("InitializeMetrics panicked: %v", r)
		}
	}()

	InitializeMetrics()
	// Idempotent
	InitializeMetrics()
}

func TestSetAppInfo(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("SetAppInfo panicked: %v", r)
		}
	}()

	SetAppInfo("1.0.0", "abc123", "go1.25")
	SetAppInfo("dev", "unknown", "go1.25")
}
