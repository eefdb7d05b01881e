package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"marketsim/internal/application/usecase/feed"
	"marketsim/internal/application/usecase/session"
	"marketsim/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one attached UI connection.
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// Gateway is the render boundary for browser clients: every feed tick is
// pushed as a JSON frame, and buy/sell commands come back over the same
// connection. A rejected command produces an inline error frame, never a
// closed session.
type Gateway struct {
	feed    *feed.Service
	session *session.Service

	mu      sync.RWMutex
	clients map[*Client]bool

	srv *http.Server
}

func NewGateway(f *feed.Service, s *session.Service) *Gateway {
	return &Gateway{
		feed:    f,
		session: s,
		clients: make(map[*Client]bool),
	}
}

type command struct {
	Action string `json:"action"` // "buy", "sell", "sell_symbol"
	Symbol string `json:"symbol,omitempty"`
	Index  int    `json:"index,omitempty"`
}

type pointFrame struct {
	TsMs  int64   `json:"ts_ms"`
	Price float64 `json:"price"`
}

type instrumentFrame struct {
	Symbol        string       `json:"symbol"`
	Name          string       `json:"name"`
	Price         float64      `json:"price"`
	Open          float64      `json:"open"`
	ChangePercent float64      `json:"change_percent"`
	History       []pointFrame `json:"history"`
}

type positionFrame struct {
	Symbol     string  `json:"symbol"`
	EntryPrice float64 `json:"entry_price"`
	OpenedAtMs int64   `json:"opened_at_ms"`
}

type accountFrame struct {
	Balance   float64         `json:"balance"`
	Equity    float64         `json:"equity"`
	Positions []positionFrame `json:"positions"`
}

type tickFrame struct {
	Type        string            `json:"type"` // "tick" or "account"
	TsMs        int64             `json:"ts_ms"`
	Instruments []instrumentFrame `json:"instruments,omitempty"`
	Account     accountFrame      `json:"account"`
}

type errorFrame struct {
	Type    string `json:"type"` // "error"
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
	}

	g.mu.Lock()
	g.clients[client] = true
	g.mu.Unlock()
	log.Info().Str("remote", conn.RemoteAddr().String()).Msg("client attached")

	// greet with the current state so the UI renders before the next tick
	g.enqueue(client, g.buildTickFrame(g.feed.Snapshot(), g.session.Account()))

	go g.writePump(client)
	g.readPump(client)
}

func (g *Gateway) readPump(c *Client) {
	defer func() {
		g.mu.Lock()
		delete(g.clients, c)
		g.mu.Unlock()
		close(c.send)
		c.conn.Close()
		log.Info().Msg("client detached")
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd command
		if err := json.Unmarshal(message, &cmd); err != nil {
			continue
		}
		g.handleCommand(c, cmd)
	}
}

func (g *Gateway) writePump(c *Client) {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// handleCommand executes one trade command. The snapshot is taken here, at
// command application: that snapshot is the price latch for the trade.
func (g *Gateway) handleCommand(c *Client, cmd command) {
	snap := g.feed.Snapshot()

	var (
		acct domain.Account
		err  error
	)
	switch cmd.Action {
	case "buy":
		acct, err = g.session.Buy(snap, cmd.Symbol)
	case "sell":
		acct, err = g.session.Sell(snap, cmd.Index)
	case "sell_symbol":
		acct, err = g.session.SellFirst(snap, cmd.Symbol)
	default:
		g.enqueue(c, errorFrame{Type: "error", Code: "unknown_action", Message: cmd.Action})
		return
	}

	if err != nil {
		g.enqueue(c, errorFrame{Type: "error", Code: errCode(err), Message: err.Error()})
		return
	}

	g.enqueue(c, tickFrame{
		Type:    "account",
		TsMs:    time.Now().UnixMilli(),
		Account: g.buildAccountFrame(snap, acct),
	})
}

func errCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrInvalidPosition):
		return "invalid_position"
	case errors.Is(err, domain.ErrUnknownSymbol):
		return "unknown_symbol"
	default:
		return "internal"
	}
}

// Broadcast pushes the latest feed and account state to every attached
// client. Slow clients drop frames rather than stalling the tick loop.
func (g *Gateway) Broadcast(snap domain.FeedSnapshot, acct domain.Account) {
	frame := g.buildTickFrame(snap, acct)
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	for client := range g.clients {
		select {
		case client.send <- payload:
		default:
			// frame dropped; next tick resynchronizes the client
		}
	}
}

func (g *Gateway) enqueue(c *Client, frame any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (g *Gateway) buildTickFrame(snap domain.FeedSnapshot, acct domain.Account) tickFrame {
	frame := tickFrame{
		Type:    "tick",
		TsMs:    snap.Time.UnixMilli(),
		Account: g.buildAccountFrame(snap, acct),
	}
	for _, sym := range g.feed.Symbols() {
		in, ok := snap.Instruments[sym]
		if !ok {
			continue
		}
		iv := instrumentFrame{
			Symbol:        in.Symbol,
			Name:          in.DisplayName,
			Price:         in.CurrentPrice,
			Open:          in.OpenPrice,
			ChangePercent: in.DayChangePercent(),
			History:       make([]pointFrame, 0, len(in.History)),
		}
		for _, pt := range in.History {
			iv.History = append(iv.History, pointFrame{TsMs: pt.Time.UnixMilli(), Price: pt.Price})
		}
		frame.Instruments = append(frame.Instruments, iv)
	}
	return frame
}

func (g *Gateway) buildAccountFrame(snap domain.FeedSnapshot, acct domain.Account) accountFrame {
	af := accountFrame{
		Balance:   acct.Balance,
		Equity:    acct.Equity(snap),
		Positions: make([]positionFrame, 0, len(acct.Positions)),
	}
	for _, pos := range acct.Positions {
		af.Positions = append(af.Positions, positionFrame{
			Symbol:     pos.Symbol,
			EntryPrice: pos.EntryPrice,
			OpenedAtMs: pos.OpenedAt.UnixMilli(),
		})
	}
	return af
}

// Start serves the /ws endpoint on addr until Shutdown.
func (g *Gateway) Start(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/ws", g)
	g.srv = &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Info().Str("addr", addr).Msg("websocket gateway listening")
		if err := g.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("websocket gateway exited")
		}
	}()
}

// Shutdown stops the HTTP server and drops all clients.
func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.srv == nil {
		return nil
	}
	return g.srv.Shutdown(ctx)
}
