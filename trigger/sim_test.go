package trigger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/waldowlab/specsync/trigger"
)

func TestSimFiresWithinTimeout(t *testing.T) {
	s := trigger.NewSim(time.Millisecond)
	before := time.Now()
	edge, err := s.WaitForEdge(time.Second)
	if err != nil {
		t.Fatalf("expected an edge, got %v", err)
	}
	if edge.Before(before) {
		t.Errorf("edge time %v predates the wait", edge)
	}
}

func TestSimHonorsMisses(t *testing.T) {
	s := trigger.NewSim(time.Millisecond)
	s.Misses[0] = true
	_, err := s.WaitForEdge(5 * time.Millisecond)
	if !errors.Is(err, trigger.ErrTimeout) {
		t.Fatalf("expected ErrTimeout on scripted miss, got %v", err)
	}
	_, err = s.WaitForEdge(time.Second)
	if err != nil {
		t.Errorf("expected the next wait to see an edge, got %v", err)
	}
}

func TestSimTimesOutWhenPeriodExceedsTimeout(t *testing.T) {
	s := trigger.NewSim(time.Second)
	// consume the initial burst token
	if _, err := s.WaitForEdge(time.Second); err != nil {
		t.Fatal(err)
	}
	_, err := s.WaitForEdge(5 * time.Millisecond)
	if !errors.Is(err, trigger.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestSimSkewShiftsEdgeTime(t *testing.T) {
	s := trigger.NewSim(time.Millisecond)
	s.Skew = time.Hour
	edge, err := s.WaitForEdge(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if !edge.After(time.Now().Add(30 * time.Minute)) {
		t.Errorf("expected skewed edge far in the future, got %v", edge)
	}
}
