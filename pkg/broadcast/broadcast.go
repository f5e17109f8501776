// Package broadcast fans story progress events out to connected websocket
// clients.
package broadcast

import (
	"sync"
	"time"

	"github.com/Alexsuad/cuentix/pkg/types"
)

// Service owns the client set and the event fan-out loop.
type Service struct {
	events     chan types.StoryEvent
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	shutdown   chan struct{}
	mutex      sync.Mutex
}

// Client is one subscriber. Conn is opaque here; the web server owns the
// actual websocket.
type Client struct {
	Conn interface{}
	Send chan types.StoryEvent
}

func NewService() *Service {
	return &Service{
		events:     make(chan types.StoryEvent, 100),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		shutdown:   make(chan struct{}),
	}
}

// Start runs the fan-out loop until Close is called.
func (s *Service) Start(wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case client := <-s.register:
			s.mutex.Lock()
			s.clients[client] = true
			s.mutex.Unlock()
		case client := <-s.unregister:
			s.mutex.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.Send)
			}
			s.mutex.Unlock()
		case <-s.shutdown:
			s.mutex.Lock()
			for client := range s.clients {
				delete(s.clients, client)
				close(client.Send)
			}
			s.mutex.Unlock()
			return
		case event := <-s.events:
			s.mutex.Lock()
			for client := range s.clients {
				select {
				case client.Send <- event:
				default:
					// Slow consumers are dropped rather than blocking
					// everyone else.
					delete(s.clients, client)
					close(client.Send)
				}
			}
			s.mutex.Unlock()
		}
	}
}

// Publish queues a progress event for every connected client. It never
// blocks the pipeline: when the buffer is full the event is discarded.
func (s *Service) Publish(storyID, stage, status, message string) {
	event := types.StoryEvent{
		StoryID:   storyID,
		Stage:     stage,
		Status:    status,
		Message:   message,
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
	}
	select {
	case s.events <- event:
	default:
	}
}

// RegisterClient adds a subscriber and returns its receive channel.
func (s *Service) RegisterClient(conn interface{}) *Client {
	client := &Client{
		Conn: conn,
		Send: make(chan types.StoryEvent, 256),
	}
	s.register <- client
	return client
}

func (s *Service) UnregisterClient(client *Client) {
	s.unregister <- client
}

// Close shuts down the loop and disconnects every client.
func (s *Service) Close() {
	close(s.shutdown)
}
