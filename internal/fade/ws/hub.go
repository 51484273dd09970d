package ws

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/public-fade-tracker/internal/fade/domain"
	"github.com/radieske/public-fade-tracker/pkg/contracts/events"
)

const writeWait = 5 * time.Second

// client serializa as escritas: gorilla aceita um único writer por conexão
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

func (c *client) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(b)
}

// Hub gerencia conexões WebSocket e assinaturas de alertas por esporte
// subs: tópico ("nba", "ncaab", "all") -> conjunto de clientes
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.Logger
	mu       sync.RWMutex
	subs     map[string]map[*client]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(allowOrigin func(r *http.Request) bool, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		log:      log,
		subs:     make(map[string]map[*client]struct{}),
	}
}

// topicFor normaliza o esporte pedido pelo cliente
func topicFor(sport string) (string, bool) {
	s := strings.TrimSpace(sport)
	if s == "" || strings.EqualFold(s, TopicAll) {
		return TopicAll, true
	}
	sp, err := domain.ParseSport(s)
	if err != nil {
		return "", false
	}
	return string(sp), true
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket.
// ?sport=nba já inscreve na conexão; depois o cliente pode mandar subscribe/unsubscribe/ping.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn}
	defer func() {
		h.drop(c)
		_ = conn.Close()
	}()

	if q := r.URL.Query().Get("sport"); q != "" {
		if topic, ok := topicFor(q); ok {
			h.subscribe(topic, c)
		}
	}

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			topic, ok := topicFor(msg.Sport)
			if !ok {
				_ = c.writeJSON(map[string]string{"type": "error", "error": "unknown sport"})
				continue
			}
			h.subscribe(topic, c)
			_ = c.writeJSON(map[string]string{"type": "subscribed", "sport": topic})
		case "unsubscribe":
			if topic, ok := topicFor(msg.Sport); ok {
				h.unsubscribe(topic, c)
			}
		case "ping":
			_ = c.writeJSON(map[string]string{"type": "pong"})
		}
	}
}

func (h *Hub) subscribe(topic string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[topic]; !ok {
		h.subs[topic] = make(map[*client]struct{})
	}
	h.subs[topic][c] = struct{}{}
}

func (h *Hub) unsubscribe(topic string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.subs[topic]; ok {
		delete(m, c)
		if len(m) == 0 {
			delete(h.subs, topic)
		}
	}
}

// drop remove o cliente de todas as assinaturas ao desconectar
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, topic)
		}
	}
}

// Subscribers conta clientes distintos conectados a algum tópico
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[*client]struct{})
	for _, set := range h.subs {
		for c := range set {
			seen[c] = struct{}{}
		}
	}
	return len(seen)
}

// Broadcast envia o alerta para os inscritos no esporte e em "all" (cada cliente recebe uma vez)
func (h *Hub) Broadcast(ev events.FadeAlert) {
	h.mu.RLock()
	targets := make(map[*client]struct{})
	for _, topic := range []string{ev.Sport, TopicAll} {
		for c := range h.subs[topic] {
			targets[c] = struct{}{}
		}
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, err := json.Marshal(ev)
	if err != nil {
		h.log.Warn("ws marshal failed", zap.String("alert_id", ev.AlertID), zap.Error(err))
		return
	}
	for c := range targets {
		if err := c.write(b); err != nil {
			h.log.Debug("ws write failed", zap.Error(err))
		}
	}
}
