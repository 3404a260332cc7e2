package classifier

import (
	"context"
	"testing"
)

func TestKeywordClassify(t *testing.T) {
	k := NewKeyword()
	keywords := []string{"uber", "didi", "plataforma"}

	cases := []struct {
		name      string
		text      string
		want      Verdict
		wantReply bool
	}{
		{"keyword match", "Manejo para Uber los fines de semana", Match, false},
		{"case insensitive", "SOY CHOFER DE DIDI", Match, false},
		{"no match", "Tengo una tienda de abarrotes", NoMatch, false},
		{"price question", "¿Cuál es el precio del servicio?", OffTopicRecognized, true},
		{"cost question", "cuanto me va a costar", OffTopicRecognized, true},
		{"location question", "¿Donde están ubicados?", OffTopicRecognized, true},
		{"empty text", "", NoMatch, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := k.Classify(context.Background(), tc.text, keywords)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got.Verdict != tc.want {
				t.Errorf("verdict = %s, want %s", got.Verdict, tc.want)
			}
			if tc.wantReply && got.Reply == "" {
				t.Error("expected an informational reply for off-topic question")
			}
			if !tc.wantReply && got.Reply != "" {
				t.Errorf("unexpected reply %q", got.Reply)
			}
		})
	}
}

func TestKeywordFAQBeatsKeywordMatch(t *testing.T) {
	// A price question mentioning a keyword is still answered as a price
	// question; the stage should not advance on it.
	k := NewKeyword()
	got, err := k.Classify(context.Background(), "cuanto cuesta si soy de uber", []string{"uber"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.Verdict != OffTopicRecognized {
		t.Errorf("verdict = %s, want OFF_TOPIC_RECOGNIZED", got.Verdict)
	}
}

func TestParseVerdict(t *testing.T) {
	cases := []struct {
		raw     string
		want    Verdict
		wantOK  bool
		reply   string
	}{
		{"MATCH", Match, true, ""},
		{"match\nextra line", Match, true, ""},
		{"NO_MATCH", NoMatch, true, ""},
		{"OFF_TOPIC|Desde $300 al mes.", OffTopicRecognized, true, "Desde $300 al mes."},
		{"OFF_TOPIC", OffTopicRecognized, true, ""},
		{"algo inesperado", "", false, ""},
	}
	for _, tc := range cases {
		got, ok := parseVerdict(tc.raw)
		if ok != tc.wantOK {
			t.Errorf("parseVerdict(%q) ok=%v, want %v", tc.raw, ok, tc.wantOK)
			continue
		}
		if ok && (got.Verdict != tc.want || got.Reply != tc.reply) {
			t.Errorf("parseVerdict(%q) = %+v, want verdict %s reply %q", tc.raw, got, tc.want, tc.reply)
		}
	}
}
