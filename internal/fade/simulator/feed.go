package simulator

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/radieske/public-fade-tracker/pkg/contracts/events"
)

// Matchup é uma partida do catálogo simulado
type Matchup struct {
	Sport  string
	HomeID int64
	Home   string
	AwayID int64
	Away   string
}

// Catálogo fixo de partidas simuladas
var Catalog = []Matchup{
	{Sport: "nba", HomeID: 1, Home: "Boston Celtics", AwayID: 2, Away: "New York Knicks"},
	{Sport: "nba", HomeID: 3, Home: "Denver Nuggets", AwayID: 4, Away: "Los Angeles Lakers"},
	{Sport: "nba", HomeID: 5, Home: "Miami Heat", AwayID: 6, Away: "Chicago Bulls"},
	{Sport: "nba", HomeID: 7, Home: "Phoenix Suns", AwayID: 8, Away: "Golden State Warriors"},
	{Sport: "ncaab", HomeID: 101, Home: "Duke", AwayID: 102, Away: "North Carolina"},
	{Sport: "ncaab", HomeID: 103, Home: "Kansas", AwayID: 104, Away: "Kentucky"},
	{Sport: "ncaab", HomeID: 105, Home: "Gonzaga", AwayID: 106, Away: "Arizona"},
	{Sport: "ncaab", HomeID: 107, Home: "Houston", AwayID: 108, Away: "UConn"},
}

// fases de um jogo simulado: scheduled por alguns passos, depois inprogress, depois closed
const (
	scheduledSteps = 3
	liveSteps      = 2
)

type simGame struct {
	id       int64
	matchup  Matchup
	start    time.Time
	step     int
	homeLine float64 // spread do mandante
	total    float64
	homeML   int
	awayML   int
}

// Feed gera snapshots crus de jogos como o provedor entregaria
type Feed struct {
	BookID string
	Source string
	Now    func() time.Time

	rnd    *rand.Rand
	nextID int64
	games  []*simGame
}

// NewFeed cria um feed com n jogos simultâneos
func NewFeed(bookID string, n int, seed int64, now func() time.Time) *Feed {
	if now == nil {
		now = time.Now
	}
	f := &Feed{BookID: bookID, Source: "game-feed-simulator", Now: now, rnd: rand.New(rand.NewSource(seed)), nextID: 9000}
	for i := 0; i < n; i++ {
		f.games = append(f.games, f.newGame(i))
	}
	return f
}

func (f *Feed) newGame(i int) *simGame {
	f.nextID++
	m := Catalog[i%len(Catalog)]
	line := math.Round(f.rnd.Float64()*20-10) + 0.5
	total := 200.5
	if m.Sport == "ncaab" {
		total = 140.5
	}
	total += math.Round(f.rnd.Float64()*20 - 10)
	homeML, awayML := moneylines(line)
	return &simGame{
		id:       f.nextID,
		matchup:  m,
		start:    f.Now().Add(time.Duration(scheduledSteps) * time.Minute),
		homeLine: line,
		total:    total,
		homeML:   homeML,
		awayML:   awayML,
	}
}

// moneylines deriva odds americanas aproximadas a partir do spread do mandante
func moneylines(homeLine float64) (int, int) {
	fav := -110 - int(math.Abs(homeLine))*25
	dog := -fav - 10
	if homeLine < 0 {
		return fav, dog
	}
	return dog, fav
}

// Next avança cada jogo uma fase e devolve os snapshots; jogos encerrados
// são substituídos no passo seguinte.
func (f *Feed) Next() []events.RawGame {
	out := make([]events.RawGame, 0, len(f.games))
	for i, g := range f.games {
		out = append(out, f.snapshot(g))
		g.step++
		if g.step > scheduledSteps+liveSteps {
			f.games[i] = f.newGame(i)
		}
	}
	return out
}

func (f *Feed) snapshot(g *simGame) events.RawGame {
	start := g.start
	raw := events.RawGame{
		ID:         events.FlexID(fmt.Sprint(g.id)),
		Sport:      g.matchup.Sport,
		StartTime:  &start,
		HomeTeamID: g.matchup.HomeID,
		AwayTeamID: g.matchup.AwayID,
		Teams: []events.RawTeam{
			{ID: g.matchup.HomeID, DisplayName: g.matchup.Home},
			{ID: g.matchup.AwayID, DisplayName: g.matchup.Away},
		},
		FetchedAt: f.Now().UTC(),
		Source:    f.Source,
	}

	switch {
	case g.step < scheduledSteps:
		raw.Status = "scheduled"
	case g.step < scheduledSteps+liveSteps:
		raw.Status = "inprogress"
	default:
		raw.Status = "closed"
		home := math.Round(g.total/2 + f.rnd.Float64()*30 - 15)
		away := math.Round(g.total/2 + f.rnd.Float64()*30 - 15)
		raw.Boxscore = &events.RawBoxscore{TotalHomePoints: &home, TotalAwayPoints: &away}
	}

	raw.Markets = map[string]events.RawBookMarkets{
		f.BookID: {Event: events.RawEventMarkets{
			Spread: []events.RawOutcome{
				f.outcome("home", ptr(g.homeLine), -110),
				f.outcome("away", ptr(-g.homeLine), -110),
			},
			Total: []events.RawOutcome{
				f.outcome("over", ptr(g.total), -110),
				f.outcome("under", ptr(g.total), -110),
			},
			Moneyline: []events.RawOutcome{
				f.outcome("home", nil, g.homeML),
				f.outcome("away", nil, g.awayML),
			},
		}},
	}
	return raw
}

// outcome sorteia a divisão tickets/money; às vezes o público pesa muito num lado
// e às vezes as odds vêm como texto ("+150"), como no provedor real
func (f *Feed) outcome(side string, value *float64, odds int) events.RawOutcome {
	tickets := 30 + f.rnd.Float64()*68
	money := tickets - 40 + f.rnd.Float64()*50
	money = math.Max(2, math.Min(99, money))

	var rawOdds json.RawMessage
	if f.rnd.Intn(4) == 0 {
		rawOdds, _ = json.Marshal(fmt.Sprintf("%+d", odds))
	} else {
		rawOdds, _ = json.Marshal(odds)
	}

	t, m := round1(tickets), round1(money)
	return events.RawOutcome{
		Side:  side,
		Value: value,
		Odds:  rawOdds,
		BetInfo: &events.RawBetInfo{
			Tickets: events.RawPercent{Percent: &t},
			Money:   events.RawPercent{Percent: &m},
		},
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func ptr(v float64) *float64 { return &v }
