package queue

import (
	"encoding/json"
	"testing"
)

type testPayload struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

func TestParsePayloadStruct(t *testing.T) {
	in := testPayload{ID: "a", Count: 2}
	got, err := ParsePayload[testPayload](in)
	if err != nil {
		t.Fatal(err)
	}
	if *got != in {
		t.Fatalf("got %+v", got)
	}
}

func TestParsePayloadPointer(t *testing.T) {
	in := &testPayload{ID: "a"}
	got, err := ParsePayload[testPayload](in)
	if err != nil {
		t.Fatal(err)
	}
	if got != in {
		t.Fatal("pointer payload should pass through")
	}
}

func TestParsePayloadMap(t *testing.T) {
	// JSON roundtrips turn payloads into maps; this is the common worker path.
	raw, _ := json.Marshal(Message{Type: "x", Payload: testPayload{ID: "b", Count: 7}})
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatal(err)
	}

	got, err := ParsePayload[testPayload](msg.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "b" || got.Count != 7 {
		t.Fatalf("got %+v", got)
	}
}

func TestParsePayloadInvalid(t *testing.T) {
	if _, err := ParsePayload[testPayload](42); err == nil {
		t.Fatal("expected error for unsupported payload type")
	}
}
