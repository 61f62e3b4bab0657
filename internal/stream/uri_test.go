package stream

import "testing"

func TestStreamURI(t *testing.T) {
	uri, err := StreamURI("oakd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uri != "ipc:///tmp/oakd" {
		t.Fatalf("unexpected uri: %s", uri)
	}

	// Publisher and subscriber rendezvous through this mapping, so the
	// same name must always resolve to the same address.
	again, err := StreamURI("oakd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != uri {
		t.Fatalf("mapping is not deterministic: %s != %s", again, uri)
	}
}

func TestStreamURIEmptyName(t *testing.T) {
	if _, err := StreamURI(""); err == nil {
		t.Fatal("expected error for empty stream name")
	}
}
