package player

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const writeWait = 5 * time.Second

var ErrClosed = errors.New("player: connection closed")

var upgrader = websocket.Upgrader{
	// the page is served by the same local host
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Command is sent to the page hosting the iframe player.
type Command struct {
	Cmd     string  `json:"cmd"`
	MediaID string  `json:"mediaId,omitempty"`
	Seconds float64 `json:"seconds"`
	Percent int     `json:"percent"`
}

// Message is what the page reports back.
type Message struct {
	Event       string  `json:"event"`
	State       *int    `json:"state,omitempty"`
	Code        int     `json:"code,omitempty"`
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
}

// WSPlayer is a Player whose iframe lives in a browser page connected over a
// websocket.
type WSPlayer struct {
	conn   *websocket.Conn
	writeM sync.Mutex

	mu          sync.Mutex
	currentTime float64
	duration    float64
	state       State
	closed      bool

	events chan Event
	logger *log.Entry
}

// Accept upgrades the request and returns a player bound to the connection.
func Accept(w http.ResponseWriter, r *http.Request) (*WSPlayer, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return NewWSPlayer(conn), nil
}

func NewWSPlayer(conn *websocket.Conn) *WSPlayer {
	return &WSPlayer{
		conn:   conn,
		state:  Unstarted,
		events: make(chan Event, 32),
		logger: log.WithFields(log.Fields{"module": "player", "remote": conn.RemoteAddr().String()}),
	}
}

// Events is closed when the read loop exits.
func (p *WSPlayer) Events() <-chan Event {
	return p.events
}

// ReadLoop reads page messages until the connection fails.
func (p *WSPlayer) ReadLoop() error {
	defer close(p.events)
	defer p.Close()

	for {
		var msg Message
		if err := p.conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		ev, ok := p.apply(msg)
		if !ok {
			p.logger.WithFields(log.Fields{"function": "ReadLoop"}).Debugf("ignoring message %q", msg.Event)
			continue
		}
		select {
		case p.events <- ev:
		default:
			p.logger.WithFields(log.Fields{"function": "ReadLoop"}).Warnf("event buffer full, dropping %s", ev.Type)
		}
	}
}

func (p *WSPlayer) apply(msg Message) (Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.currentTime = msg.CurrentTime
	p.duration = msg.Duration
	if msg.State != nil {
		p.state = State(*msg.State)
	}

	switch EventType(msg.Event) {
	case EventReady:
		return Event{Type: EventReady, State: p.state}, true
	case EventStateChanged:
		return Event{Type: EventStateChanged, State: p.state}, true
	case EventError:
		return Event{Type: EventError, State: p.state, Code: msg.Code}, true
	default:
		// progress messages only refresh the cached position
		return Event{}, false
	}
}

func (p *WSPlayer) send(cmd Command) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}

	p.writeM.Lock()
	defer p.writeM.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteJSON(cmd)
}

func (p *WSPlayer) LoadAndPlay(mediaID string) error {
	p.mu.Lock()
	p.currentTime = 0
	p.duration = 0
	p.state = Unstarted
	p.mu.Unlock()
	return p.send(Command{Cmd: "load", MediaID: mediaID})
}

func (p *WSPlayer) Play() error {
	return p.send(Command{Cmd: "play"})
}

func (p *WSPlayer) Pause() error {
	return p.send(Command{Cmd: "pause"})
}

func (p *WSPlayer) Seek(seconds float64) error {
	return p.send(Command{Cmd: "seek", Seconds: seconds})
}

func (p *WSPlayer) SetVolume(percent int) error {
	return p.send(Command{Cmd: "volume", Percent: percent})
}

func (p *WSPlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentTime
}

func (p *WSPlayer) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

func (p *WSPlayer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *WSPlayer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	return p.conn.Close()
}
