/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_sequencer/internal/events"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs map[string][][]byte
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.msgs == nil {
		p.msgs = make(map[string][][]byte)
	}
	p.msgs[subject] = append(p.msgs[subject], data)
	return nil
}

func (p *recordingPublisher) count(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs[subject])
}

func TestForwarderPublishesEvents(t *testing.T) {
	bus := events.NewBus()
	pub := &recordingPublisher{}
	f := newForwarder(pub, bus, "test.seq", zerolog.Nop())
	f.Start()
	f.Start()

	bus.Publish(events.EventSequenceGenerated, events.Payload{"run_id": "r1", "length": 8})

	subject := Subject("test.seq", events.EventSequenceGenerated)
	deadline := time.Now().Add(2 * time.Second)
	for pub.count(subject) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("event was not forwarded")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := pub.count(subject); got != 1 {
		t.Fatalf("expected exactly one forwarded message, got %d", got)
	}

	msg, err := DecodeMessage(pub.msgs[subject][0])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.EventType != events.EventSequenceGenerated || msg.Payload["run_id"] != "r1" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if msg.NodeID == "" || msg.MessageID == "" {
		t.Fatalf("envelope missing ids: %+v", msg)
	}

	// Once closed, nothing is forwarded.
	bus.Publish(events.EventSequenceGenerated, events.Payload{"run_id": "r2"})
	if got := pub.count(subject); got != 1 {
		t.Fatalf("closed forwarder still published (%d messages)", got)
	}
}

func TestConnectUnreachable(t *testing.T) {
	cfg := DefaultNATSConfig()
	cfg.URL = "nats://127.0.0.1:1"
	cfg.Timeout = 200 * time.Millisecond

	f, err := Connect(cfg, events.NewBus(), zerolog.Nop())
	if err == nil {
		_ = f.Close()
		t.Fatal("expected connection error")
	}
}

func TestDecodeMessageRejectsGarbage(t *testing.T) {
	if _, err := DecodeMessage([]byte("{")); err == nil {
		t.Fatal("expected error")
	}
}

func TestCloseNilForwarder(t *testing.T) {
	var f *Forwarder
	if err := f.Close(); err != nil {
		t.Fatalf("close nil: %v", err)
	}
}
