package sse

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/searchktools/fire-server/core/http"
	"github.com/searchktools/fire-server/logger"
)

// ErrTooManyClients is returned by Subscribe when the broker is full.
var ErrTooManyClients = errors.New("sse: max clients reached")

// Broker fans events out to subscribed streams. A client whose buffer is
// full misses the event; a client whose stream died is dropped.
type Broker struct {
	mu      sync.RWMutex
	clients map[string]*Stream

	maxClients int
	keepalive  time.Duration
	log        logger.Logger

	stop     chan struct{}
	stopOnce sync.Once

	published atomic.Uint64
	dropped   atomic.Uint64
	nextID    atomic.Uint64
}

// BrokerOption configures a Broker
type BrokerOption func(*Broker)

// WithMaxClients caps concurrent subscribers.
func WithMaxClients(n int) BrokerOption {
	return func(b *Broker) { b.maxClients = n }
}

// WithKeepalive sets the interval of keepalive events. Zero disables them.
func WithKeepalive(d time.Duration) BrokerOption {
	return func(b *Broker) { b.keepalive = d }
}

// WithLogger sets the broker logger.
func WithLogger(l logger.Logger) BrokerOption {
	return func(b *Broker) { b.log = l }
}

// NewBroker creates a new SSE broker
func NewBroker(opts ...BrokerOption) *Broker {
	b := &Broker{
		clients:    make(map[string]*Stream),
		maxClients: 10000,
		keepalive:  30 * time.Second,
		log:        logger.Nop(),
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.keepalive > 0 {
		go b.keepaliveLoop()
	}
	return b
}

// Subscribe registers s and returns its client id. The client is removed
// automatically once its stream stops.
func (b *Broker) Subscribe(s *Stream) (string, error) {
	id := uuid.NewString()

	b.mu.Lock()
	if len(b.clients) >= b.maxClients {
		b.mu.Unlock()
		return "", ErrTooManyClients
	}
	b.clients[id] = s
	b.mu.Unlock()

	go func() {
		select {
		case <-s.Done():
			b.remove(id)
		case <-b.stop:
		}
	}()

	b.log.Debug("sse client subscribed", "client", id)
	return id, nil
}

// Unsubscribe removes a client and closes its stream.
func (b *Broker) Unsubscribe(id string) {
	if s := b.remove(id); s != nil {
		s.Close()
	}
}

func (b *Broker) remove(id string) *Stream {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.clients[id]
	if !ok {
		return nil
	}
	delete(b.clients, id)
	b.log.Debug("sse client removed", "client", id)
	return s
}

// Publish sends ev to every client and returns how many accepted it. Events
// without an id get the next broker-wide sequence number.
func (b *Broker) Publish(ev *Event) int {
	if ev.ID == "" {
		ev.ID = strconv.FormatUint(b.nextID.Add(1), 10)
	}
	b.published.Add(1)

	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, s := range b.clients {
		if s.TrySend(ev) {
			delivered++
		} else {
			b.dropped.Add(1)
		}
	}
	return delivered
}

// PublishTo sends ev to one client.
func (b *Broker) PublishTo(id string, ev *Event) error {
	b.mu.RLock()
	s, ok := b.clients[id]
	b.mu.RUnlock()
	if !ok {
		return ErrStreamClosed
	}
	return s.Send(ev)
}

// Len returns the number of subscribed clients
func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Stats returns broker statistics
func (b *Broker) Stats() BrokerStats {
	return BrokerStats{
		Clients:   b.Len(),
		Published: b.published.Load(),
		Dropped:   b.dropped.Load(),
	}
}

// BrokerStats contains broker statistics
type BrokerStats struct {
	Clients   int
	Published uint64
	Dropped   uint64
}

// Close stops the keepalive loop and closes every stream.
func (b *Broker) Close() {
	b.stopOnce.Do(func() { close(b.stop) })

	b.mu.Lock()
	clients := b.clients
	b.clients = make(map[string]*Stream)
	b.mu.Unlock()

	for _, s := range clients {
		s.Close()
	}
}

func (b *Broker) keepaliveLoop() {
	ticker := time.NewTicker(b.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.Publish(&Event{
				Event: "keepalive",
				Data:  "timestamp:" + strconv.FormatInt(time.Now().Unix(), 10),
			})
		case <-b.stop:
			return
		}
	}
}

// Handler returns a route handler that turns the request into a stream,
// subscribes it and greets the client with a "connected" event carrying
// its id.
func (b *Broker) Handler() func(req *http.Request) *http.Response {
	return func(req *http.Request) *http.Response {
		if b.Len() >= b.maxClients {
			return http.Textf(503, "Too many event stream clients")
		}

		s, err := Open(req)
		if err != nil {
			return http.Textf(500, "sse: %v", err)
		}

		id, err := b.Subscribe(s)
		if err != nil {
			s.Close()
			return http.NewResponse()
		}
		s.Send(&Event{Event: "connected", Data: "client_id:" + id})

		// Ignored: the socket belongs to the stream now.
		return http.NewResponse()
	}
}
