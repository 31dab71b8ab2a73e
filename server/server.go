// Package server contains misc server utilities.
package server

import (
	"encoding/json"
	"go/types"
	"log"
	"net/http"

	"goji.io"
)

// RouteTable maps goji patterns to handler funcs
type RouteTable map[goji.Pattern]http.HandlerFunc

// Bind attaches each route in the table to the mux
func (rt RouteTable) Bind(m *goji.Mux) {
	for ptrn, handler := range rt {
		m.Handle(ptrn, handler)
	}
}

// HTTPer is an object which can provide a route table to bind to a mux
type HTTPer interface {
	RT() RouteTable
}

// FloatT is a struct with a single field F64, used for json (un)marshaling
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single field Int, used for json (un)marshaling
type IntT struct {
	Int int `json:"int"`
}

// BoolT is a struct with a single field Bool, used for json (un)marshaling
type BoolT struct {
	Bool bool `json:"bool"`
}

// StrT is a struct with a single field Str, used for json (un)marshaling
type StrT struct {
	Str string `json:"str"`
}

// HumanPayload is a struct containing the basic types.
// It is used to convert between HTTP bodies and types in a manner that is
// friendly to both humans and machines.
type HumanPayload struct {
	// Bool holds a boolean
	Bool bool

	// Int holds an int
	Int int

	// Float holds a float64
	Float float64

	// String holds a string
	String string

	// T holds the type of data actually contained in the payload
	T types.BasicKind
}

// EncodeAndRespond converts the payload to a json body matching its type
// and writes it to w
func (hp *HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var err error
	switch hp.T {
	case types.Bool:
		err = json.NewEncoder(w).Encode(BoolT{Bool: hp.Bool})
	case types.Int:
		err = json.NewEncoder(w).Encode(IntT{Int: hp.Int})
	case types.Float64:
		err = json.NewEncoder(w).Encode(FloatT{F64: hp.Float})
	case types.String:
		err = json.NewEncoder(w).Encode(StrT{Str: hp.String})
	default:
		http.Error(w, "unknown payload type", http.StatusInternalServerError)
		return
	}
	if err != nil {
		fstr := "error encoding payload to json: " + err.Error()
		log.Println(fstr)
		http.Error(w, fstr, http.StatusInternalServerError)
	}
}
