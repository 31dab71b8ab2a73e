package locker_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/waldowlab/specsync/server/middleware/locker"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestCheckBouncesProtectedRoutesWhenLocked(t *testing.T) {
	l := locker.New()
	h := l.Check(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodPost, "/configure", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unlocked request bounced with %d", rec.Code)
	}

	l.Lock()
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusLocked {
		t.Fatalf("expected 423 while locked, got %d", rec.Code)
	}

	l.Unlock()
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected unlock to restore access, got %d", rec.Code)
	}
}

func TestAbortAndStatusStayReachableWhileLocked(t *testing.T) {
	l := locker.New()
	h := l.Check(http.HandlerFunc(okHandler))
	l.Lock()
	for _, path := range []string{"/abort", "/status", "/lock"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s bounced with %d while locked", path, rec.Code)
		}
	}
}
