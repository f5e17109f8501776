package broadcast

import (
	"sync"
	"testing"
	"time"
)

func TestPublishReachesAllClients(t *testing.T) {
	svc := NewService()
	var wg sync.WaitGroup
	wg.Add(1)
	go svc.Start(&wg)
	defer func() {
		svc.Close()
		wg.Wait()
	}()

	a := svc.RegisterClient(nil)
	b := svc.RegisterClient(nil)

	svc.Publish("story-1", "tts", "processing_audio", "")

	for _, client := range []*Client{a, b} {
		select {
		case event := <-client.Send:
			if event.StoryID != "story-1" || event.Stage != "tts" {
				t.Fatalf("unexpected event %+v", event)
			}
		case <-time.After(time.Second):
			t.Fatal("client did not receive event")
		}
	}
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	svc := NewService()
	var wg sync.WaitGroup
	wg.Add(1)
	go svc.Start(&wg)
	defer func() {
		svc.Close()
		wg.Wait()
	}()

	client := svc.RegisterClient(nil)
	svc.UnregisterClient(client)

	select {
	case _, open := <-client.Send:
		if open {
			t.Fatal("expected closed channel, got event")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel never closed")
	}
}

func TestCloseDisconnectsClients(t *testing.T) {
	svc := NewService()
	var wg sync.WaitGroup
	wg.Add(1)
	go svc.Start(&wg)

	client := svc.RegisterClient(nil)
	svc.Close()
	wg.Wait()

	select {
	case _, open := <-client.Send:
		if open {
			t.Fatal("expected closed channel")
		}
	default:
		t.Fatal("send channel should be closed after shutdown")
	}
}
