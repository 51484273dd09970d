package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidGame  = errors.New("invalid game")
	ErrGameNotFound = errors.New("game not found")
)

// Sport identifica a liga monitorada
type Sport string

const (
	SportNBA   Sport = "nba"
	SportNCAAB Sport = "ncaab"
)

// Sports lista as ligas suportadas, na ordem usada pelo orquestrador
var Sports = []Sport{SportNBA, SportNCAAB}

func ParseSport(s string) (Sport, error) {
	switch Sport(strings.ToLower(strings.TrimSpace(s))) {
	case SportNBA:
		return SportNBA, nil
	case SportNCAAB:
		return SportNCAAB, nil
	}
	return "", fmt.Errorf("unknown sport %q", s)
}

// ParseSports converte a lista configurada; vazia ou com nome desconhecido é erro
func ParseSports(names []string) ([]Sport, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("sports must contain at least one sport")
	}
	out := make([]Sport, 0, len(names))
	for _, n := range names {
		sp, err := ParseSport(n)
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, nil
}

// GameStatus é o status normalizado de um jogo
type GameStatus string

const (
	StatusScheduled  GameStatus = "scheduled"
	StatusInProgress GameStatus = "in_progress"
	StatusComplete   GameStatus = "complete"
	StatusClosed     GameStatus = "closed"
	StatusFinal      GameStatus = "final"
	StatusPostponed  GameStatus = "postponed"
	StatusCancelled  GameStatus = "cancelled"
	StatusOther      GameStatus = "other"
)

// ParseGameStatus normaliza o status vindo do provedor ("inprogress", "In-Progress", "CLOSED"...)
func ParseGameStatus(raw string) GameStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
	switch s {
	case "scheduled", "created":
		return StatusScheduled
	case "inprogress", "live", "halftime":
		return StatusInProgress
	case "complete", "completed":
		return StatusComplete
	case "closed":
		return StatusClosed
	case "final":
		return StatusFinal
	case "postponed":
		return StatusPostponed
	case "cancelled", "canceled":
		return StatusCancelled
	}
	return StatusOther
}

// IsTerminal indica se o jogo terminou (complete/closed/final)
func (s GameStatus) IsTerminal() bool {
	return s == StatusComplete || s == StatusClosed || s == StatusFinal
}

// Side é o lado de um outcome de mercado, como vem do feed
type Side string

const (
	SideHome  Side = "home"
	SideAway  Side = "away"
	SideOver  Side = "over"
	SideUnder Side = "under"
)

type Team struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Abbr        string `json:"abbr,omitempty"`
}

// Boxscore traz o placar final; pontos ausentes ficam nil
type Boxscore struct {
	TotalHomePoints *float64 `json:"total_home_points,omitempty"`
	TotalAwayPoints *float64 `json:"total_away_points,omitempty"`
}

// MarketOutcome é um lado de um mercado do book designado.
// Campos opcionais são ponteiros: ausente != zero.
type MarketOutcome struct {
	Side       Side     `json:"side"`
	Value      *float64 `json:"value,omitempty"`
	Odds       *int     `json:"odds,omitempty"`
	TicketsPct *float64 `json:"tickets_pct,omitempty"`
	MoneyPct   *float64 `json:"money_pct,omitempty"`
}

// NormalizedGame é o registro de jogo já validado na fronteira de ingestão
type NormalizedGame struct {
	GameID        string          `json:"game_id"`
	Sport         Sport           `json:"sport"`
	Date          string          `json:"date"` // slate YYYYMMDD
	Status        GameStatus      `json:"status"`
	StartTime     time.Time       `json:"start_time"`
	HomeTeamID    int64           `json:"home_team_id"`
	AwayTeamID    int64           `json:"away_team_id"`
	HomeTeam      Team            `json:"home_team"`
	AwayTeam      Team            `json:"away_team"`
	Boxscore      *Boxscore       `json:"boxscore,omitempty"`
	WinningTeamID *int64          `json:"winning_team_id,omitempty"`
	Spread        []MarketOutcome `json:"spread"`
	Total         []MarketOutcome `json:"total"`
	Moneyline     []MarketOutcome `json:"moneyline"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Validate garante identidade do jogo: id presente e times presentes e distintos
func (g NormalizedGame) Validate() error {
	if strings.TrimSpace(g.GameID) == "" {
		return fmt.Errorf("%w: missing game_id", ErrInvalidGame)
	}
	if g.HomeTeamID == 0 || g.AwayTeamID == 0 {
		return fmt.Errorf("%w: game %s missing team ids", ErrInvalidGame, g.GameID)
	}
	if g.HomeTeamID == g.AwayTeamID {
		return fmt.Errorf("%w: game %s home and away team ids are equal", ErrInvalidGame, g.GameID)
	}
	return nil
}

// Outcomes retorna a lista de outcomes do mercado pedido
func (g NormalizedGame) Outcomes(m Market) []MarketOutcome {
	switch m {
	case MarketSpread:
		return g.Spread
	case MarketTotal:
		return g.Total
	case MarketMoneyline:
		return g.Moneyline
	}
	return nil
}

// Scores retorna o placar final quando os dois lados estão presentes
func (g NormalizedGame) Scores() (home, away float64, ok bool) {
	if g.Boxscore == nil || g.Boxscore.TotalHomePoints == nil || g.Boxscore.TotalAwayPoints == nil {
		return 0, 0, false
	}
	return *g.Boxscore.TotalHomePoints, *g.Boxscore.TotalAwayPoints, true
}

// Matchup devolve "Away @ Home" para logs e notificações
func (g NormalizedGame) Matchup() string {
	return fmt.Sprintf("%s @ %s", g.AwayTeam.DisplayName, g.HomeTeam.DisplayName)
}
