package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// Sport: "nba", "ncaab" ou "all" (vazio = all)
type ClientMsg struct {
	Type  string `json:"type"`
	Sport string `json:"sport"`
}

// TopicAll recebe alertas de todos os esportes
const TopicAll = "all"
