package runtime

import (
	"testing"
	"time"
)

func TestScheduler_RegisterAndCancel(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	fired := make(chan struct{}, 10)
	cancel, err := s.Register("* * * * * *", func() { fired <- struct{}{} })
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("Expected job to fire within 3s")
	}

	cancel()
	cancel()
	time.Sleep(200 * time.Millisecond)
	for len(fired) > 0 {
		<-fired
	}
	time.Sleep(1500 * time.Millisecond)
	if len(fired) > 0 {
		t.Error("Expected no runs after cancel")
	}
}

func TestScheduler_InvalidSpec(t *testing.T) {
	s := NewScheduler()
	if _, err := s.Register("not a cron", func() {}); err == nil {
		t.Error("Expected error for invalid spec")
	}
}
