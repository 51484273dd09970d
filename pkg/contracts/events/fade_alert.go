package events

import "time"

const (
	FadeAlertKindCreated  = "created"
	FadeAlertKindResolved = "resolved"
)

// Evento publicado em "fade_alert_created" / "fade_alert_resolved".
// O consumidor (bot, UI) formata a notificação; aqui só vão os dados.
type FadeAlert struct {
	Kind               string    `json:"kind"` // "created" | "resolved"
	AlertID            string    `json:"alert_id"`
	GameID             string    `json:"game_id"`
	Sport              string    `json:"sport"`
	Market             string    `json:"market"`
	FadedOutcomeLabel  string    `json:"faded_outcome_label"`
	FadedValue         *float64  `json:"faded_value,omitempty"`
	Odds               int       `json:"odds"`
	ImpliedProbability float64   `json:"implied_probability"`
	TicketsPercent     float64   `json:"tickets_percent"`
	MoneyPercent       float64   `json:"money_percent"`
	Rating             int       `json:"rating"`
	Reason             string    `json:"reason"`
	Date               string    `json:"date"`
	Status             string    `json:"status"`
	Matchup            string    `json:"matchup,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
