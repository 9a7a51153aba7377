package tracker

import (
	"fmt"
	"sync"
	"testing"
)

// TestIdentityStability moves a single face less than the tolerance each
// frame and expects the same label throughout
func TestIdentityStability(t *testing.T) {

	ids := NewIdentities(DefaultTolerance(), nil)

	box := NewRect(100, 100, 80, 80)
	first, created := ids.MatchOrCreate(box)

	if !created {
		t.Fatalf("expected first detection to create an identity")
	}

	if first != "User1" {
		t.Fatalf("expected label User1, got %s", first)
	}

	for i := 1; i <= 20; i++ {
		// drift 30px right and 10px down per frame, below the 50px minimum
		box = NewRect(box.X+30, box.Y+10, 80, 80)

		id, created := ids.MatchOrCreate(box)

		if created || id != first {
			t.Fatalf("frame %d: expected %s, got %s (created=%v)", i, first, id, created)
		}

		pos, _ := ids.Position(id)
		if pos != box {
			t.Errorf("frame %d: position not updated, expected %v got %v", i, box, pos)
		}
	}

	if ids.Len() != 1 {
		t.Errorf("expected 1 identity, got %d", ids.Len())
	}
}

// TestIdentityCreation checks a box outside every tolerance always gets a new
// unused label
func TestIdentityCreation(t *testing.T) {

	ids := NewIdentities(DefaultTolerance(), nil)

	seen := make(map[string]bool)

	for i := 0; i < 10; i++ {
		box := NewRect(i*200, 0, 60, 60)
		id, created := ids.MatchOrCreate(box)

		if !created {
			t.Fatalf("box %d: expected new identity, matched %s", i, id)
		}

		if seen[id] {
			t.Fatalf("box %d: label %s reused", i, id)
		}

		seen[id] = true
	}
}

// TestToleranceScalesWithBoxSize checks the tolerance grows to half the box
// size for large faces
func TestToleranceScalesWithBoxSize(t *testing.T) {

	tol := DefaultTolerance()

	tests := []struct {
		prev     Rect
		next     Rect
		expected bool
	}{
		// small box uses the 50px floor
		{NewRect(0, 0, 40, 40), NewRect(49, 0, 40, 40), true},
		{NewRect(0, 0, 40, 40), NewRect(50, 0, 40, 40), false},
		{NewRect(0, 0, 40, 40), NewRect(0, -49, 40, 40), true},
		// large box allows half its width
		{NewRect(0, 0, 300, 300), NewRect(149, 0, 300, 300), true},
		{NewRect(0, 0, 300, 300), NewRect(150, 0, 300, 300), false},
		{NewRect(0, 0, 300, 200), NewRect(0, 99, 300, 200), true},
		{NewRect(0, 0, 300, 200), NewRect(0, 100, 300, 200), false},
	}

	for i, tc := range tests {
		if got := tol.Matches(tc.prev, tc.next); got != tc.expected {
			t.Errorf("case %d: expected %v, got %v for %v -> %v", i, tc.expected, got, tc.prev, tc.next)
		}
	}
}

// TestFirstMatchWins checks ties resolve to the earliest created identity
// rather than the closest one
func TestFirstMatchWins(t *testing.T) {

	ids := NewIdentities(DefaultTolerance(), nil)

	a, _ := ids.MatchOrCreate(NewRect(0, 0, 200, 200))
	b, _ := ids.MatchOrCreate(NewRect(150, 0, 200, 200))

	if a == b {
		t.Fatalf("expected two identities")
	}

	// 80px from a and 70px from b, within the 100px tolerance of both
	id, created := ids.MatchOrCreate(NewRect(80, 0, 200, 200))

	if created {
		t.Fatalf("expected a match")
	}

	if id != a {
		t.Errorf("expected first created identity %s, got %s", a, id)
	}
}

func TestResetKeepsCounter(t *testing.T) {

	ids := NewIdentities(DefaultTolerance(), nil)

	ids.MatchOrCreate(NewRect(0, 0, 50, 50))
	ids.MatchOrCreate(NewRect(500, 0, 50, 50))
	ids.Reset()

	if ids.Len() != 0 {
		t.Fatalf("expected no identities after reset, got %d", ids.Len())
	}

	id, created := ids.MatchOrCreate(NewRect(0, 0, 50, 50))

	if !created || id != "User3" {
		t.Errorf("expected new label User3 after reset, got %s (created=%v)", id, created)
	}
}

func TestIDGeneratorConcurrent(t *testing.T) {

	gen := NewIDGenerator()

	const workers = 8
	const perWorker = 250

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		labels = make(map[string]bool)
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				label := gen.GetNext()
				mu.Lock()
				labels[label] = true
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if len(labels) != workers*perWorker {
		t.Fatalf("expected %d unique labels, got %d", workers*perWorker, len(labels))
	}

	last := fmt.Sprintf("User%d", workers*perWorker)
	if !labels[last] {
		t.Errorf("expected label %s to be issued", last)
	}

	if gen.Issued() != workers*perWorker {
		t.Errorf("expected %d issued, got %d", workers*perWorker, gen.Issued())
	}
}
