package messaging

import (
	"context"
	"errors"
	"testing"

	"stockgen/internal/pricing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type sent struct{ channel, key string }

func recorder(calls *[]sent, err error) pricing.PublisherFunc {
	return func(_ context.Context, channel, key string, _ []byte) error {
		*calls = append(*calls, sent{channel, key})
		return err
	}
}

func TestTee_PublishesToAll(t *testing.T) {
	var primary, mirror []sent
	tee := NewTee(nil, recorder(&primary, nil), recorder(&mirror, nil))

	if err := tee.Publish(context.Background(), "prices", "AAPL", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	if len(primary) != 1 || len(mirror) != 1 {
		t.Fatalf("primary=%d mirror=%d, want 1/1", len(primary), len(mirror))
	}
	if mirror[0] != (sent{"prices", "AAPL"}) {
		t.Errorf("mirror got %+v", mirror[0])
	}
}

func TestTee_PrimaryFailureSkipsMirrors(t *testing.T) {
	boom := errors.New("broker down")
	var primary, mirror []sent
	tee := NewTee(nil, recorder(&primary, boom), recorder(&mirror, nil))

	if err := tee.Publish(context.Background(), "prices", "AAPL", nil); !errors.Is(err, boom) {
		t.Fatalf("expected primary error, got %v", err)
	}
	if len(mirror) != 0 {
		t.Errorf("mirror should not be called, got %d calls", len(mirror))
	}
}

func TestTee_MirrorFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	var primary, mirror []sent
	tee := NewTee(zap.New(core), recorder(&primary, nil), recorder(&mirror, errors.New("slow client")))

	if err := tee.Publish(context.Background(), "prices", "GOOG", nil); err != nil {
		t.Fatalf("mirror errors must not surface, got %v", err)
	}
	if logs.FilterMessage("mirror publish failed").Len() != 1 {
		t.Errorf("expected one warning, got %v", logs.All())
	}
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	if err := p.Publish(context.Background(), "prices", "TSLA", []byte(`{"symbol":"TSLA"}`)); err != nil {
		t.Fatal(err)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["key"] != "TSLA" {
		t.Errorf("unexpected fields %v", entries[0].ContextMap())
	}
}
