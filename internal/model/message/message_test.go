package message

import (
	"encoding/json"
	"testing"
)

func TestDecodeContentArray(t *testing.T) {
	raw := json.RawMessage(`[{"senderInfo":{"nombre":"Ana","apellido":"Lee","hora":"10:00"},"message":"hi"}]`)
	entries := DecodeContent(raw)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].SenderInfo.FirstName != "Ana" || entries[0].Body != "hi" {
		t.Fatalf("unexpected decode result: %+v", entries[0])
	}
}

func TestDecodeContentEncodedString(t *testing.T) {
	raw := json.RawMessage(`"[{\"senderInfo\":{\"nombre\":\"Ana\",\"apellido\":\"Lee\",\"hora\":\"01/01/2099, 10:00\"},\"message\":\"hi\"}]"`)
	entries := DecodeContent(raw)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].SenderInfo.DisplayTime != "01/01/2099, 10:00" {
		t.Fatalf("unexpected display time: %q", entries[0].SenderInfo.DisplayTime)
	}
}

func TestDecodeContentGarbage(t *testing.T) {
	for _, raw := range []string{``, `null`, `42`, `"not json at all"`, `{"unexpected":"shape"}`} {
		if entries := DecodeContent(json.RawMessage(raw)); len(entries) != 0 {
			t.Errorf("%q: expected empty decode, got %d entries", raw, len(entries))
		}
	}
}

func TestViewerOwnsIsCaseSensitive(t *testing.T) {
	viewer := Viewer{FirstName: "Ana", LastName: "Lee"}
	if !viewer.Owns(SenderInfo{FirstName: "Ana", LastName: "Lee"}) {
		t.Fatal("expected exact match to own")
	}
	if viewer.Owns(SenderInfo{FirstName: "ana", LastName: "Lee"}) {
		t.Fatal("ownership must be case-sensitive")
	}
}

func TestSenderKeyCollidesByName(t *testing.T) {
	if SenderKey("Ana", "Lee") != SenderKey(" ana", "LEE ") {
		t.Fatal("key derivation should fold case and whitespace")
	}
}
