package hours

import (
	"testing"

	"tourweave/pkg/model"
)

func strp(s string) *string { return &s }

func TestParseOpeningHours(t *testing.T) {
	tests := []struct {
		name       string
		entry      *string
		wantOpen   int
		wantClose  int
		wantClosed bool
	}{
		{"nil entry always open", nil, 0, 1440, false},
		{"24 hours", strp("24 hours"), 0, 1440, false},
		{"24 horas", strp("Abierto 24 horas"), 0, 1440, false},
		{"closed", strp("Closed"), 0, 0, true},
		{"cerrado", strp("Cerrado"), 0, 0, true},
		{"simple range hyphen", strp("09:00-17:00"), 540, 1020, false},
		{"simple range en dash", strp("09:00–17:00"), 540, 1020, false},
		{"crosses midnight", strp("22:00-02:00"), 1320, 1560, false},
		{"unparseable falls back", strp("ask staff"), 0, 1440, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oh := model.OpeningHours{model.Monday: tt.entry}
			open, close, closed := ParseOpeningHours(nil, oh, model.Monday)
			if closed != tt.wantClosed {
				t.Fatalf("closed = %v, want %v", closed, tt.wantClosed)
			}
			if !closed {
				if open != tt.wantOpen || close != tt.wantClose {
					t.Errorf("got (%d,%d), want (%d,%d)", open, close, tt.wantOpen, tt.wantClose)
				}
			}
		})
	}
}

func TestIsVisitable(t *testing.T) {
	oh := model.OpeningHours{model.Monday: strp("09:00-17:00")}
	if !IsVisitable(nil, oh, model.Monday, 540, 60) {
		t.Error("expected visitable at opening with room for a 60 min visit")
	}
	if IsVisitable(nil, oh, model.Monday, 1000, 60) {
		t.Error("expected not visitable: arrival + visit exceeds closing")
	}
}

func TestUrgency_ClosedIsZero(t *testing.T) {
	oh := model.OpeningHours{model.Monday: strp("Closed")}
	if got := Urgency(nil, oh, model.Monday, 540, 60); got != 0 {
		t.Errorf("Urgency on closed day = %v, want 0", got)
	}
}

func TestUrgency_AlwaysOpenIsOne(t *testing.T) {
	oh := model.OpeningHours{model.Monday: nil}
	if got := Urgency(nil, oh, model.Monday, 540, 60); got != 1.0 {
		t.Errorf("Urgency always-open = %v, want 1.0", got)
	}
}

func TestUrgency_Thresholds(t *testing.T) {
	oh := model.OpeningHours{model.Monday: strp("09:00-17:00")} // closes at 1020

	// slack = (1020-now)-60 <= 30 -> urgency 2.0
	if got := Urgency(nil, oh, model.Monday, 930, 60); got != 2.0 {
		t.Errorf("near-close urgency = %v, want 2.0", got)
	}
	// slack >= 180 -> 1.0
	if got := Urgency(nil, oh, model.Monday, 700, 60); got != 1.0 {
		t.Errorf("far-from-close urgency = %v, want 1.0", got)
	}
	// remaining <= visit_duration -> not visitable
	if got := Urgency(nil, oh, model.Monday, 1000, 60); got != 0 {
		t.Errorf("no-time-left urgency = %v, want 0", got)
	}
}

func TestUrgency_Totality(t *testing.T) {
	// P1: for any inputs, is_visitable returns a bool and urgency in [0,2].
	entries := []*string{nil, strp("24 hours"), strp("Closed"), strp("09:00-17:00"), strp("garbage")}
	for _, e := range entries {
		oh := model.OpeningHours{model.Monday: e}
		for _, t0 := range []int{0, 540, 1000, 1439} {
			u := Urgency(nil, oh, model.Monday, t0, 60)
			if u < 0 || u > 2 {
				t.Errorf("urgency out of range for entry=%v t=%d: %v", e, t0, u)
			}
		}
	}
}
