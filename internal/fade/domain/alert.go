package domain

import (
	"time"
)

// Market é o tipo de mercado de uma oportunidade/alerta
type Market string

const (
	MarketSpread    Market = "Spread"
	MarketTotal     Market = "Total"
	MarketMoneyline Market = "Moneyline"
)

// Markets na ordem determinística de varredura
var Markets = []Market{MarketSpread, MarketTotal, MarketMoneyline}

// OutcomeLabel é o rótulo humano do lado "fadeado"
type OutcomeLabel string

const (
	LabelHome  OutcomeLabel = "Home"
	LabelAway  OutcomeLabel = "Away"
	LabelOver  OutcomeLabel = "Over"
	LabelUnder OutcomeLabel = "Under"
)

// LabelFor mapeia o lado do feed para o rótulo do mercado.
// Spread/moneyline aceitam home/away; total aceita over/under.
func LabelFor(m Market, s Side) (OutcomeLabel, bool) {
	switch m {
	case MarketSpread, MarketMoneyline:
		switch s {
		case SideHome:
			return LabelHome, true
		case SideAway:
			return LabelAway, true
		}
	case MarketTotal:
		switch s {
		case SideOver:
			return LabelOver, true
		case SideUnder:
			return LabelUnder, true
		}
	}
	return "", false
}

// Opportunity é uma oportunidade de fade detectada (ainda não persistida)
type Opportunity struct {
	GameID             string       `json:"game_id"`
	Sport              Sport        `json:"sport"`
	Market             Market       `json:"market"`
	FadedOutcomeLabel  OutcomeLabel `json:"faded_outcome_label"`
	FadedValue         *float64     `json:"faded_value,omitempty"`
	Odds               int          `json:"odds"`
	ImpliedProbability float64      `json:"implied_probability"`
	TicketsPercent     float64      `json:"tickets_percent"`
	MoneyPercent       float64      `json:"money_percent"`
	Rating             int          `json:"rating"`
	Reason             string       `json:"reason"`
}

// AlertStatus é o estado do ciclo de vida de um alerta
type AlertStatus string

const (
	AlertPending AlertStatus = "pending"
	AlertWon     AlertStatus = "won"
	AlertLost    AlertStatus = "lost"
	AlertError   AlertStatus = "error"
)

// IsTerminal: won/lost/error não transicionam mais
func (s AlertStatus) IsTerminal() bool {
	return s == AlertWon || s == AlertLost || s == AlertError
}

// Alert é a oportunidade persistida com estado.
// Identidade: (game_id, market, faded_outcome_label, date).
type Alert struct {
	ID string `json:"id"`
	Opportunity
	Date      string      `json:"date"`
	Status    AlertStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Bucket agrega contagens de alertas
type Bucket struct {
	Total   int     `json:"total"`
	Won     int     `json:"won"`
	Lost    int     `json:"lost"`
	Pending int     `json:"pending"`
	Errored int     `json:"errored"`
	WinRate float64 `json:"win_rate"`
}

// PerformanceSnapshotID é o id fixo do registro de performance (sobrescrito a cada cálculo)
const PerformanceSnapshotID = "fade_performance"

// PerformanceSnapshot é recalculado a cada passada do resolver, nunca incrementado
type PerformanceSnapshot struct {
	ID          string           `json:"id"`
	LastUpdated time.Time        `json:"last_updated"`
	WindowDays  int              `json:"window_days"`
	Overall     Bucket           `json:"overall"`
	ByRating    map[int]Bucket   `json:"by_rating"`
	BySport     map[Sport]Bucket `json:"by_sport"`
}
