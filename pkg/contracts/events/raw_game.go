package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// FlexID aceita id como string ou número no JSON do provedor
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flex id: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("flex id: non-integer %s", n)
	}
	*f = FlexID(n.String())
	return nil
}

// Evento publicado no tópico "games_raw": snapshot de um jogo como vem do provedor
type RawGame struct {
	ID         FlexID                    `json:"id"`
	Sport      string                    `json:"sport"`
	Status     string                    `json:"status"`
	StartTime  *time.Time                `json:"start_time,omitempty"`
	HomeTeamID int64                     `json:"home_team_id"`
	AwayTeamID int64                     `json:"away_team_id"`
	Teams      []RawTeam                 `json:"teams"`
	Boxscore   *RawBoxscore              `json:"boxscore,omitempty"`
	WinnerID   *int64                    `json:"winner_id,omitempty"`
	Markets    map[string]RawBookMarkets `json:"markets"` // chave = book id
	FetchedAt  time.Time                 `json:"fetched_at"`
	Source     string                    `json:"source"` // "game-feed-simulator", "provider"
}

type RawTeam struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Abbr        string `json:"abbr,omitempty"`
}

type RawBoxscore struct {
	TotalHomePoints *float64 `json:"total_home_points,omitempty"`
	TotalAwayPoints *float64 `json:"total_away_points,omitempty"`
}

type RawBookMarkets struct {
	Event RawEventMarkets `json:"event"`
}

type RawEventMarkets struct {
	Spread    []RawOutcome `json:"spread"`
	Total     []RawOutcome `json:"total"`
	Moneyline []RawOutcome `json:"moneyline"`
}

// RawOutcome: odds fica cru porque o provedor às vezes manda "+150" como texto
type RawOutcome struct {
	Side    string          `json:"side"`
	Value   *float64        `json:"value,omitempty"`
	Odds    json.RawMessage `json:"odds,omitempty"`
	BetInfo *RawBetInfo     `json:"bet_info,omitempty"`
}

type RawBetInfo struct {
	Tickets RawPercent `json:"tickets"`
	Money   RawPercent `json:"money"`
}

type RawPercent struct {
	Percent *float64 `json:"percent,omitempty"`
}
