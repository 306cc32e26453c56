package calllog

import (
	"math/rand"
	"testing"
)

func TestClassifyOutcome_Keywords(t *testing.T) {
	cases := []struct {
		in   string
		want Outcome
	}{
		{"Caller booked an appointment for viewing", OutcomeAppointmentBooked},
		{"APPOINTMENT scheduled for Tuesday", OutcomeAppointmentBooked},
		{"qualified lead, wants pricing", OutcomeLeadQualified},
		{"strong lead", OutcomeLeadQualified},
		{"provided information about opening hours", OutcomeInformationProvided},
		{"requested a callback tomorrow", OutcomeCallbackScheduled},
		{"", OutcomeOther},
		{"xyz not matching anything", OutcomeOther},
	}
	for _, tc := range cases {
		if got := ClassifyOutcome(tc.in); got != tc.want {
			t.Fatalf("ClassifyOutcome(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestClassifyOutcome_PriorityFirstMatchWins(t *testing.T) {
	// Inputs containing both appointment and lead keywords must resolve to
	// appointment_booked: the rule list is ordered.
	inputs := []string{
		"qualified lead, appointment pending",
		"lead qualified and appointment booked",
		"booked; also a qualified lead",
	}
	for _, in := range inputs {
		if got := ClassifyOutcome(in); got != OutcomeAppointmentBooked {
			t.Fatalf("ClassifyOutcome(%q) = %q, want appointment_booked", in, got)
		}
	}
}

func TestClassifyOutcome_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("abcdefghijklmnopqrstuvwxyz APPOINTMENTleadcallback")
	for i := 0; i < 200; i++ {
		n := rng.Intn(40)
		buf := make([]rune, n)
		for j := range buf {
			buf[j] = alphabet[rng.Intn(len(alphabet))]
		}
		s := string(buf)
		first := ClassifyOutcome(s)
		for k := 0; k < 3; k++ {
			if got := ClassifyOutcome(s); got != first {
				t.Fatalf("ClassifyOutcome(%q) not deterministic: %q vs %q", s, first, got)
			}
		}
	}
}

func TestValidOutcome(t *testing.T) {
	for _, v := range []Outcome{
		OutcomeAppointmentBooked, OutcomeLeadQualified, OutcomeInformationProvided,
		OutcomeCallbackScheduled, OutcomeMissed, OutcomeVoicemail, OutcomeTransferred, OutcomeOther,
	} {
		if !ValidOutcome(v) {
			t.Fatalf("expected %q valid", v)
		}
	}
	if ValidOutcome("no_show") {
		t.Fatalf("expected no_show invalid")
	}
}
