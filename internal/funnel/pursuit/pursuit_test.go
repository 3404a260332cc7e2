package pursuit

import (
	"strings"
	"testing"
	"time"

	"despacho_backend/internal/funnel/domain"
)

func TestCadenceFor(t *testing.T) {
	cases := []struct {
		intensity domain.Intensity
		want      int
	}{
		{domain.IntensityLow, 1},
		{domain.IntensityMedium, 2},
		{domain.IntensityHigh, 7},
	}
	for _, tc := range cases {
		if got := CadenceFor(tc.intensity); got != tc.want {
			t.Errorf("CadenceFor(%s) = %d, want %d", tc.intensity, got, tc.want)
		}
	}
}

func TestNextTouchAt(t *testing.T) {
	last := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	if got := NextTouchAt(last, domain.IntensityHigh); got.Sub(last) != 24*time.Hour {
		t.Errorf("HIGH interval = %v, want 24h", got.Sub(last))
	}
	if got := NextTouchAt(last, domain.IntensityLow); got.Sub(last) != 7*24*time.Hour {
		t.Errorf("LOW interval = %v, want 168h", got.Sub(last))
	}
}

func TestSuggestMessageUsesFirstName(t *testing.T) {
	msg := SuggestMessage(domain.IntensityMedium, "María López García")
	if !strings.Contains(msg, "María") {
		t.Errorf("message should greet by first name: %q", msg)
	}
	if strings.Contains(msg, "López") {
		t.Errorf("message should not include the last name: %q", msg)
	}
}

func TestSuggestMessageTone(t *testing.T) {
	low := SuggestMessage(domain.IntensityLow, "Juan")
	medium := SuggestMessage(domain.IntensityMedium, "Juan")
	high := SuggestMessage(domain.IntensityHigh, "Juan")

	if !strings.Contains(low, "Quedo pendiente") {
		t.Errorf("LOW should be a soft check-in: %q", low)
	}
	if !strings.Contains(medium, "llamada") {
		t.Errorf("MEDIUM should offer a call: %q", medium)
	}
	if !strings.Contains(high, "cerrando agenda") {
		t.Errorf("HIGH should signal urgency: %q", high)
	}
	if low == medium || medium == high {
		t.Error("tones must differ across tiers")
	}
}
