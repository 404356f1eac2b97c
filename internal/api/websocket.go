package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"grid-arena/internal/game"
	"grid-arena/internal/notify"
	"grid-arena/internal/registry"
)

// Defaults for the connection caps; GatewayConfig overrides them.
const (
	DefaultMaxWSConnections = 500
	DefaultMaxConnsPerIP    = 10
)

var errNotInGame = errors.New("you are not part of a game yet")

// Command is one inbound client message. Unused fields stay zero; x and y are
// pointers so that an absent coordinate is distinguishable from zero.
type Command struct {
	Cmd    string `json:"cmd"`
	Name   string `json:"name,omitempty"`
	GameID string `json:"gameId,omitempty"`
	X      *int   `json:"x,omitempty"`
	Y      *int   `json:"y,omitempty"`
}

// GatewayConfig holds the WebSocket gateway's abuse-protection settings.
type GatewayConfig struct {
	MaxConnections    int      // total concurrent clients
	MaxConnsPerIP     int      // concurrent clients per IP
	CommandsPerSecond float64  // per-connection command rate, 0 disables
	CommandBurst      int      // per-connection command burst
	AllowedOrigins    []string // extra origins beyond localhost
}

func (c GatewayConfig) withDefaults() GatewayConfig {
	if c.MaxConnections <= 0 {
		c.MaxConnections = DefaultMaxWSConnections
	}
	if c.MaxConnsPerIP <= 0 {
		c.MaxConnsPerIP = DefaultMaxConnsPerIP
	}
	if c.CommandsPerSecond > 0 && c.CommandBurst <= 0 {
		c.CommandBurst = int(c.CommandsPerSecond) * 2
	}
	return c
}

// Gateway serves the WebSocket command protocol. Each connection is one
// player: it gets a fresh player id on connect, issues commands, and receives
// its session's events as {update} pushes from its own subscription cursor.
type Gateway struct {
	registry *registry.Registry
	hub      *notify.Hub
	cfg      GatewayConfig

	connLimiter *ConnLimiter
	connCount   atomic.Int32
	upgrader    websocket.Upgrader
}

// NewGateway creates a gateway over the registry and notification hub.
func NewGateway(reg *registry.Registry, hub *notify.Hub, cfg GatewayConfig) *Gateway {
	cfg = cfg.withDefaults()
	gw := &Gateway{
		registry:    reg,
		hub:         hub,
		cfg:         cfg,
		connLimiter: NewConnLimiter(cfg.MaxConnsPerIP),
	}
	gw.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if IsAllowedOrigin(origin, cfg.AllowedOrigins) {
				return true
			}
			log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
			RecordConnectionRejected("origin")
			return false
		},
	}
	return gw
}

// HandleWS upgrades the request and runs the command loop until disconnect.
func (gw *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if int(gw.connCount.Load()) >= gw.cfg.MaxConnections {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", gw.cfg.MaxConnections)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}
	if !gw.connLimiter.Acquire(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := gw.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		gw.connLimiter.Release(ip)
		return
	}

	c := &client{
		gw:       gw,
		conn:     conn,
		ip:       ip,
		playerID: gw.registry.NextPlayerID(),
		send:     make(chan []byte, 64),
		done:     make(chan struct{}),
	}
	if gw.cfg.CommandsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(gw.cfg.CommandsPerSecond), gw.cfg.CommandBurst)
	}

	count := gw.connCount.Add(1)
	log.Printf("📱 Player %d connected from %s (%d total)", c.playerID, ip, count)
	UpdateWSConnections(int(count))

	go c.writeLoop()
	c.readLoop()

	// Disconnect is an implicit leave.
	c.detach(true)
	c.shutdown()
	gw.connLimiter.Release(ip)
	count = gw.connCount.Add(-1)
	log.Printf("📱 Player %d disconnected (%d remaining)", c.playerID, count)
	UpdateWSConnections(int(count))
	UpdateSessionCount(gw.registry.Count())
}

// client is one connected player: their connection, identity and current
// session subscription. The mutex guards the session fields only; the send
// channel serializes all writes through writeLoop.
type client struct {
	gw       *Gateway
	conn     *websocket.Conn
	ip       string
	playerID int
	limiter  *rate.Limiter

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu        sync.Mutex
	sessionID string
	sub       *notify.Subscription
}

func (c *client) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
	c.conn.Close()
}

func (c *client) readLoop() {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if c.limiter != nil && !c.limiter.Allow() {
			c.sendError("too many commands, slow down")
			continue
		}

		// Malformed input is a reply, never a dropped connection.
		var cmd Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.sendError("missing command")
			continue
		}
		c.dispatch(cmd)
	}
}

func (c *client) writeLoop() {
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.shutdown()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *client) dispatch(cmd Command) {
	started := time.Now()
	var err error
	switch cmd.Cmd {
	case "list":
		err = c.handleList()
	case "create":
		err = c.handleCreate(cmd)
	case "join":
		err = c.handleJoin(cmd)
	case "leave":
		err = c.handleLeave()
	case "remove":
		err = c.handleRemove()
	case "start":
		err = c.handleStart()
	case "move":
		err = c.handleMove(cmd)
	case "attack":
		err = c.handleAttack(cmd)
	default:
		cmd.Cmd = "unknown"
		err = errors.New("missing command")
		c.sendError(err.Error())
	}
	RecordCommand(cmd.Cmd, err, time.Since(started))
	UpdateSessionCount(c.gw.registry.Count())
}

func (c *client) handleList() error {
	summaries, err := c.gw.registry.List()
	if err != nil {
		c.sendError(err.Error())
		return err
	}
	c.sendOK(map[string]interface{}{"list": summaries})
	return nil
}

func (c *client) handleCreate(cmd Command) error {
	s, err := c.gw.registry.Create(c.playerID, cmd.Name)
	if err != nil {
		c.sendError(err.Error())
		return err
	}
	c.detach(true)
	c.attach(s)
	c.sendOK(map[string]interface{}{"created": s.ID()})
	return nil
}

func (c *client) handleJoin(cmd Command) error {
	if cmd.GameID == "" {
		err := errors.New("missing gameId")
		c.sendError(err.Error())
		return err
	}
	// Validate the target first: a rejected join must leave the player's
	// current session untouched. Joining the session they are already in
	// reports AlreadyJoined instead of silently leaving it.
	s, err := c.gw.registry.Join(cmd.GameID, c.playerID)
	if err != nil {
		c.sendError(err.Error())
		return err
	}
	c.detach(true)
	c.attach(s)
	c.sendOK(map[string]interface{}{"joined": s.ID()})
	return nil
}

func (c *client) handleLeave() error {
	c.detach(true)
	c.sendOK(nil)
	return nil
}

func (c *client) handleRemove() error {
	c.detach(true)
	c.gw.registry.Remove(c.playerID)
	c.sendOK(nil)
	return nil
}

func (c *client) handleStart() error {
	s, err := c.currentSession()
	if err == nil {
		err = s.Start(c.playerID)
	}
	if err != nil {
		c.sendError(err.Error())
		return err
	}
	c.gw.registry.Checkpoint(s.ID())
	c.sendOK(nil)
	return nil
}

func (c *client) handleMove(cmd Command) error {
	s, x, y, err := c.gameplayArgs(cmd)
	if err == nil {
		err = s.Move(c.playerID, x, y)
	}
	if err != nil {
		c.sendError(err.Error())
		return err
	}
	c.gw.registry.Checkpoint(s.ID())
	c.sendOK(nil)
	return nil
}

func (c *client) handleAttack(cmd Command) error {
	s, x, y, err := c.gameplayArgs(cmd)
	if err == nil {
		err = s.Attack(c.playerID, x, y)
	}
	if err != nil {
		c.sendError(err.Error())
		return err
	}
	c.gw.registry.Checkpoint(s.ID())
	c.sendOK(nil)
	return nil
}

func (c *client) gameplayArgs(cmd Command) (*game.Session, int, int, error) {
	if cmd.X == nil || cmd.Y == nil {
		return nil, 0, 0, errors.New("missing coordinates")
	}
	s, err := c.currentSession()
	if err != nil {
		return nil, 0, 0, err
	}
	return s, *cmd.X, *cmd.Y, nil
}

// attach subscribes the client to its new session from the beginning of the
// log, so a late joiner replays everything that happened before them.
func (c *client) attach(s *game.Session) {
	sub := c.gw.hub.Subscribe(s, 0)

	c.mu.Lock()
	c.sessionID = s.ID()
	c.sub = sub
	c.mu.Unlock()

	go c.pushEvents(sub)
}

// detach drops the current subscription; when leave is set the player is also
// removed from the session, which destroys it if they were the last one.
func (c *client) detach(leave bool) {
	c.mu.Lock()
	sessionID, sub := c.sessionID, c.sub
	c.sessionID, c.sub = "", nil
	c.mu.Unlock()

	if sub != nil {
		c.gw.hub.Unsubscribe(sub)
	}
	if leave && sessionID != "" {
		c.gw.registry.Leave(sessionID, c.playerID)
	}
}

func (c *client) currentSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *client) currentSession() (*game.Session, error) {
	id := c.currentSessionID()
	if id == "" {
		return nil, errNotInGame
	}
	s, err := c.gw.registry.Find(id)
	if err != nil {
		// The session was destroyed out from under us.
		c.detach(false)
		return nil, errNotInGame
	}
	return s, nil
}

// pushEvents forwards subscription events as {update} pushes until the
// subscription closes. Runs once per attach; replacing the subscription
// closes the old channel and ends the old pump.
func (c *client) pushEvents(sub *notify.Subscription) {
	for event := range sub.Events() {
		c.enqueue(map[string]interface{}{"success": true, "update": event})
		RecordEventDelivered()
	}
}

func (c *client) sendOK(fields map[string]interface{}) {
	msg := map[string]interface{}{"success": true}
	for k, v := range fields {
		msg[k] = v
	}
	c.enqueue(msg)
}

func (c *client) sendError(message string) {
	c.enqueue(map[string]interface{}{"success": false, "error": message})
}

func (c *client) enqueue(msg map[string]interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	}
}
