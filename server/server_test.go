package server_test

import (
	"encoding/json"
	"go/types"
	"net/http"
	"net/http/httptest"
	"testing"

	"goji.io"
	"goji.io/pat"

	"github.com/waldowlab/specsync/server"
)

func TestHumanPayloadEncodesFloat(t *testing.T) {
	hp := server.HumanPayload{T: types.Float64, Float: 3.5}
	rec := httptest.NewRecorder()
	hp.EncodeAndRespond(rec, nil)
	out := server.FloatT{}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.F64 != 3.5 {
		t.Errorf("expected 3.5, got %f", out.F64)
	}
}

func TestHumanPayloadEncodesString(t *testing.T) {
	hp := server.HumanPayload{T: types.String, String: "Running"}
	rec := httptest.NewRecorder()
	hp.EncodeAndRespond(rec, nil)
	out := server.StrT{}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Str != "Running" {
		t.Errorf("expected Running, got %q", out.Str)
	}
}

func TestRouteTableBind(t *testing.T) {
	rt := server.RouteTable{
		pat.Get("/ping"): func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		},
	}
	mux := goji.NewMux()
	rt.Bind(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/ping")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("bound route not reachable, got %d", resp.StatusCode)
	}
}
