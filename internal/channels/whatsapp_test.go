package channels

import "testing"

func TestToJID(t *testing.T) {
	if got := toJID("5511999990000"); got != "5511999990000@s.whatsapp.net" {
		t.Errorf("toJID = %q", got)
	}
	if got := toJID("5511999990000@s.whatsapp.net"); got != "5511999990000@s.whatsapp.net" {
		t.Errorf("full JID should pass through, got %q", got)
	}
}

func TestShouldDropSystemNoise(t *testing.T) {
	if !shouldDropSystemNoise("messageContextInfo:{deviceListMetadata:{...}}") {
		t.Error("protobuf-like payload should be dropped")
	}
	if !shouldDropSystemNoise("senderKeyDistributionMessage") {
		t.Error("sender key noise should be dropped")
	}
	if shouldDropSystemNoise("qual o horario de vcs") {
		t.Error("real customer text must not be dropped")
	}
}
