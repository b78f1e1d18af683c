package skill

import "testing"

func TestPhraseMatcher_ExactPhrase(t *testing.T) {
	m := NewPhraseMatcher([]string{"what time is it"})

	matched, span := m.Match("what time is it")
	if !matched || span != len("what time is it") {
		t.Fatalf("Match = %v/%d", matched, span)
	}
}

func TestPhraseMatcher_PhraseInsideSentence(t *testing.T) {
	m := NewPhraseMatcher([]string{"the time"})
	if matched, _ := m.Match("could you tell me the time please"); !matched {
		t.Fatal("phrase inside a sentence should match")
	}
}

func TestPhraseMatcher_NoSubWordMatches(t *testing.T) {
	m := NewPhraseMatcher([]string{"time"})
	if matched, _ := m.Match("sometimes i wonder"); matched {
		t.Fatal("\"time\" must not match inside \"sometimes\"")
	}
}

func TestPhraseMatcher_LongestPhraseSpanReported(t *testing.T) {
	m := NewPhraseMatcher([]string{"time", "what time is it"})
	_, span := m.Match("what time is it")
	if span != len("what time is it") {
		t.Errorf("span = %d, want longest phrase length %d", span, len("what time is it"))
	}
}

func TestPhraseMatcher_PhoneticMisrecognition(t *testing.T) {
	m := NewPhraseMatcher([]string{"what time is it"}, WithPhonetic())

	// "thyme" is what a recognizer may hear; Double Metaphone maps both
	// "time" and "thyme" to the same code.
	if matched, _ := m.Match("what thyme is it"); !matched {
		t.Fatal("phonetic variant should match")
	}
}

func TestPhraseMatcher_PhoneticDoesNotBridgeDifferentCommands(t *testing.T) {
	m := NewPhraseMatcher([]string{"what is the date"}, WithPhonetic())
	if matched, _ := m.Match("what is the time"); matched {
		t.Fatal("\"time\" must not phonetically match \"date\"")
	}
}

func TestPhraseMatcher_DisabledPhoneticRequiresExact(t *testing.T) {
	m := NewPhraseMatcher([]string{"what time is it"})
	if matched, _ := m.Match("what thyme is it"); matched {
		t.Fatal("without phonetic mode only exact phrases match")
	}
}
