package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// mock mode must not touch GPIO or serial hardware even when the config
// names a hardware trigger
func TestBuildMuxMockNeedsNoHardware(t *testing.T) {
	cfg := Config{
		Addr:             ":8000",
		Stem:             "/spectro/",
		Mock:             true,
		IntegrationTimeS: 22e-6,
		Averages:         2,
		Trigger: TriggerSetup{
			Type:    "gpio",
			Pin:     17,
			PeriodS: 0.001,
		},
	}
	root, err := BuildMux(cfg)
	if err != nil {
		t.Fatalf("mock mux build failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/spectro/status", nil)
	w := httptest.NewRecorder()
	root.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 from status on a mock server, got %d", w.Code)
	}
}
