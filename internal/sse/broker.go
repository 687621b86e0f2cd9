// Package sse streams catalog changes to HTTP clients as Server-Sent Events.
//
// Every event carries a sequence id. A reconnecting client that sends
// Last-Event-ID gets the retained events it missed, and a client may narrow
// note events to one folder with ?prefix=.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Event types sent to clients.
const (
	TypeNoteCreated = "note.created"
	TypeNoteUpdated = "note.updated"
	TypeNoteDeleted = "note.deleted"
	TypeTagsUpdated = "tags.updated"
)

const (
	heartbeat    = 30 * time.Second
	backlogSize  = 128
	clientBuffer = 64
)

// Event is a vault-wide message broadcast to every subscriber.
type Event struct {
	Type string
	Data any
}

// NoteEvent is the payload of the note.* events.
type NoteEvent struct {
	Path string `json:"path"`
}

type message struct {
	id   uint64
	path string // empty for vault-wide events
	raw  []byte
}

type subscriber struct {
	ch     chan []byte
	prefix string
	after  uint64
}

func (s *subscriber) wants(m message) bool {
	return m.path == "" || strings.HasPrefix(m.path, s.prefix)
}

func folderPrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

type outgoing struct {
	event Event
	path  string
	tags  bool // schedule a tags.updated after this event
}

// Broker fans catalog events out to SSE clients.
//
// A single loop goroutine owns the subscribers, the sequence counter, the
// replay backlog and the tags.updated throttle; public methods talk to it
// over channels.
type Broker struct {
	tagsMin time.Duration

	subscribeCh   chan *subscriber
	unsubscribeCh chan chan []byte
	outCh         chan outgoing
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. tagsThrottle is the minimum interval between two
// tags.updated events (default 2s); changes inside the interval are folded
// into one trailing event.
func NewBroker(tagsThrottle time.Duration) *Broker {
	if tagsThrottle <= 0 {
		tagsThrottle = 2 * time.Second
	}
	b := &Broker{
		tagsMin:       tagsThrottle,
		subscribeCh:   make(chan *subscriber),
		unsubscribeCh: make(chan chan []byte),
		outCh:         make(chan outgoing, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.run()
	return b
}

func noteEventType(kind string) (string, bool) {
	switch kind {
	case "created":
		return TypeNoteCreated, true
	case "updated":
		return TypeNoteUpdated, true
	case "deleted":
		return TypeNoteDeleted, true
	}
	return "", false
}

func deliver(ch chan []byte, raw []byte) {
	select {
	case ch <- raw:
	default:
		// Slow client: drop rather than stall the loop.
	}
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]*subscriber)
	backlog := make([]message, 0, backlogSize)
	var seq uint64

	var lastTags time.Time
	var tagsTimer *time.Timer
	var tagsDue <-chan time.Time

	emit := func(typ string, data any, path string) {
		payload, err := json.Marshal(data)
		if err != nil {
			return
		}
		seq++
		m := message{
			id:   seq,
			path: path,
			raw:  fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", seq, typ, payload),
		}
		if len(backlog) == backlogSize {
			backlog = slices.Delete(backlog, 0, 1)
		}
		backlog = append(backlog, m)
		for _, s := range clients {
			if s.wants(m) {
				deliver(s.ch, m.raw)
			}
		}
	}

	emitTags := func() {
		lastTags = time.Now()
		emit(TypeTagsUpdated, struct{}{}, "")
	}

	for {
		select {
		case <-b.stopCh:
			if tagsTimer != nil {
				tagsTimer.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case s := <-b.subscribeCh:
			clients[s.ch] = s
			for _, m := range backlog {
				if m.id > s.after && s.wants(m) {
					deliver(s.ch, m.raw)
				}
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case o := <-b.outCh:
			emit(o.event.Type, o.event.Data, o.path)
			if !o.tags || tagsDue != nil {
				continue
			}
			if wait := b.tagsMin - time.Since(lastTags); wait > 0 {
				tagsTimer = time.NewTimer(wait)
				tagsDue = tagsTimer.C
				continue
			}
			emitTags()

		case <-tagsDue:
			tagsDue = nil
			emitTags()

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel. It is idempotent.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client and returns its message channel. Only note
// events inside the folder prefix are delivered (all of them when prefix is
// empty); "work" matches work/a.md but not workshop/a.md.
// Retained events with an id above lastID are replayed first; 0 skips replay.
func (b *Broker) Subscribe(prefix string, lastID uint64) chan []byte {
	s := &subscriber{ch: make(chan []byte, clientBuffer), prefix: folderPrefix(prefix), after: lastID}
	if lastID == 0 {
		s.after = ^uint64(0)
	}
	if b.closed.Load() {
		close(s.ch)
		return s.ch
	}
	select {
	case b.subscribeCh <- s:
	case <-b.stopped:
		close(s.ch)
	}
	return s.ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

func (b *Broker) send(o outgoing) {
	if b.closed.Load() {
		return
	}
	select {
	case b.outCh <- o:
	case <-b.stopped:
	}
}

// Publish sends a vault-wide event to all connected clients.
func (b *Broker) Publish(event Event) {
	b.send(outgoing{event: event})
}

// NoteChanged publishes a note change followed by a throttled tags.updated
// event. Unknown kinds are ignored. Its signature matches index.EventCallback.
func (b *Broker) NoteChanged(kind, path string) {
	typ, ok := noteEventType(kind)
	if !ok {
		return
	}
	b.send(outgoing{
		event: Event{Type: typ, Data: NoteEvent{Path: path}},
		path:  path,
		tags:  true,
	})
}

// ServeHTTP streams events to one client (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)
	prefix := r.URL.Query().Get("prefix")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(prefix, lastID)
	defer b.Unsubscribe(ch)

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
