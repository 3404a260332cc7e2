// Package pursuit maps a pursuit-intensity tier to a concrete touch
// cadence and a canned suggested message with escalating tone. The
// resolver is pure and stateless; objection rebuttal belongs to the
// classifier, not here.
package pursuit

import (
	"fmt"
	"strings"
	"time"

	"despacho_backend/internal/funnel/domain"
)

// CadenceFor returns the touches per week for an intensity tier.
// LOW is a weekly check-in, MEDIUM twice a week, HIGH daily.
func CadenceFor(intensity domain.Intensity) int {
	switch intensity {
	case domain.IntensityHigh:
		return 7
	case domain.IntensityMedium:
		return 2
	default:
		return 1
	}
}

// NextTouchAt returns when the next pursuit touch is due after the last
// one, spacing touches evenly across the week.
func NextTouchAt(last time.Time, intensity domain.Intensity) time.Time {
	interval := 7 * 24 * time.Hour / time.Duration(CadenceFor(intensity))
	return last.Add(interval)
}

// SuggestMessage produces the suggested follow-up text for a contact.
// LOW is a soft check-in, MEDIUM offers a call, HIGH signals urgency.
func SuggestMessage(intensity domain.Intensity, contactName string) string {
	first := firstName(contactName)

	switch intensity {
	case domain.IntensityLow:
		return fmt.Sprintf("Hola %s, ¿pudiste revisar la información? Quedo pendiente por cualquier duda.", first)
	case domain.IntensityMedium:
		return fmt.Sprintf("Hola %s, sigo pendiente de tu caso. ¿Te gustaría agendar una llamada rápida para resolver dudas?", first)
	case domain.IntensityHigh:
		return fmt.Sprintf("%s, estamos cerrando agenda para declaraciones de este mes. ¿Te aparto tu lugar o lo dejamos para después?", first)
	default:
		return fmt.Sprintf("Hola %s, ¿tienes alguna duda?", first)
	}
}

func firstName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return trimmed
	}
	return strings.Fields(trimmed)[0]
}
