package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/radieske/public-fade-tracker/internal/fade/domain"
	"github.com/radieske/public-fade-tracker/internal/fade/oddsmath"
	"github.com/radieske/public-fade-tracker/pkg/contracts/events"
)

// DefaultBookID é o book designado cujo feed alimenta tickets/money/odds
const DefaultBookID = "15"

// Scale é a escala em que o feed publica tickets/money
type Scale string

const (
	// ScaleAuto decide por registro do book: fração só se todos os valores forem <= 1
	ScaleAuto     Scale = "auto"
	ScaleFraction Scale = "fraction"
	ScalePercent  Scale = "percent"
)

// ParseScale aceita "", "auto", "fraction" ou "percent"
func ParseScale(s string) (Scale, error) {
	switch Scale(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScaleAuto:
		return ScaleAuto, nil
	case ScaleFraction:
		return ScaleFraction, nil
	case ScalePercent:
		return ScalePercent, nil
	}
	return "", fmt.Errorf("percent scale %q: want auto, fraction or percent", s)
}

// Normalizer converte o registro cru do provedor em domain.NormalizedGame.
// A validação de identidade acontece aqui, uma única vez.
type Normalizer struct {
	BookID       string
	Location     *time.Location // fuso do slate
	PercentScale Scale          // vazio = ScaleAuto
	Now          func() time.Time
}

func New(bookID string, loc *time.Location) *Normalizer {
	if bookID == "" {
		bookID = DefaultBookID
	}
	return &Normalizer{BookID: bookID, Location: loc, PercentScale: ScaleAuto, Now: time.Now}
}

// Normalize valida e converte. Erros de identidade/esporte retornam domain.ErrInvalidGame.
func (n *Normalizer) Normalize(raw events.RawGame) (domain.NormalizedGame, error) {
	sport, err := domain.ParseSport(raw.Sport)
	if err != nil {
		return domain.NormalizedGame{}, fmt.Errorf("%w: game %s: %v", domain.ErrInvalidGame, raw.ID, err)
	}

	g := domain.NormalizedGame{
		GameID:     strings.TrimSpace(string(raw.ID)),
		Sport:      sport,
		Status:     domain.ParseGameStatus(raw.Status),
		HomeTeamID: raw.HomeTeamID,
		AwayTeamID: raw.AwayTeamID,
		UpdatedAt:  raw.FetchedAt,
	}
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = n.now()
	}
	if err := g.Validate(); err != nil {
		return domain.NormalizedGame{}, err
	}

	// data do slate sai do início do jogo; sem ele, do momento da coleta
	ref := g.UpdatedAt
	if raw.StartTime != nil && !raw.StartTime.IsZero() {
		g.StartTime = raw.StartTime.UTC()
		ref = *raw.StartTime
	}
	g.Date = domain.SlateDate(ref, n.Location)

	g.HomeTeam = findTeam(raw.Teams, raw.HomeTeamID)
	g.AwayTeam = findTeam(raw.Teams, raw.AwayTeamID)

	if raw.Boxscore != nil {
		g.Boxscore = &domain.Boxscore{
			TotalHomePoints: raw.Boxscore.TotalHomePoints,
			TotalAwayPoints: raw.Boxscore.TotalAwayPoints,
		}
	}
	g.WinningTeamID = raw.WinnerID
	if g.WinningTeamID == nil && g.Status.IsTerminal() {
		if home, away, ok := g.Scores(); ok && home != away {
			w := g.AwayTeamID
			if home > away {
				w = g.HomeTeamID
			}
			g.WinningTeamID = &w
		}
	}

	if book, ok := raw.Markets[n.BookID]; ok {
		scale := n.scaleFor(book)
		g.Spread = convertOutcomes(book.Event.Spread, scale)
		g.Total = convertOutcomes(book.Event.Total, scale)
		g.Moneyline = convertOutcomes(book.Event.Moneyline, scale)
	}

	return g, nil
}

// scaleFor resolve a escala do registro inteiro do book, nunca valor a valor:
// um 1 num feed 0-100 é 1%, não 100%.
func (n *Normalizer) scaleFor(book events.RawBookMarkets) Scale {
	if n.PercentScale == ScaleFraction || n.PercentScale == ScalePercent {
		return n.PercentScale
	}
	seen := false
	for _, outcomes := range [][]events.RawOutcome{book.Event.Spread, book.Event.Total, book.Event.Moneyline} {
		for _, r := range outcomes {
			if r.BetInfo == nil {
				continue
			}
			for _, p := range []*float64{r.BetInfo.Tickets.Percent, r.BetInfo.Money.Percent} {
				if p == nil || math.IsNaN(*p) {
					continue
				}
				if *p > 1 {
					return ScalePercent
				}
				seen = true
			}
		}
	}
	if seen {
		return ScaleFraction
	}
	return ScalePercent
}

func (n *Normalizer) now() time.Time {
	if n.Now != nil {
		return n.Now().UTC()
	}
	return time.Now().UTC()
}

func findTeam(teams []events.RawTeam, id int64) domain.Team {
	for _, t := range teams {
		if t.ID == id {
			return domain.Team{ID: t.ID, DisplayName: t.DisplayName, Abbr: t.Abbr}
		}
	}
	return domain.Team{ID: id, DisplayName: fmt.Sprintf("team %d", id)}
}

func convertOutcomes(raw []events.RawOutcome, scale Scale) []domain.MarketOutcome {
	if len(raw) == 0 {
		return nil
	}
	out := make([]domain.MarketOutcome, 0, len(raw))
	for _, r := range raw {
		o := domain.MarketOutcome{
			Side:  domain.Side(strings.ToLower(strings.TrimSpace(r.Side))),
			Value: r.Value,
			Odds:  parseOdds(r.Odds),
		}
		if r.BetInfo != nil {
			o.TicketsPct = Percent(r.BetInfo.Tickets.Percent, scale)
			o.MoneyPct = Percent(r.BetInfo.Money.Percent, scale)
		}
		out = append(out, o)
	}
	return out
}

// parseOdds: ausente ou não numérico vira nil; 0 numérico é mantido e rejeitado pelo finder
func parseOdds(raw json.RawMessage) *int {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		v, err := oddsmath.ParseAmerican(s)
		if err != nil {
			return nil
		}
		return &v
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return nil
	}
	if f != math.Trunc(f) {
		return nil
	}
	v := int(f)
	return &v
}

// Percent normaliza para 0-100 na escala já decidida para o feed.
// Fora da faixa da escala vira nil. ScaleAuto aqui é tratado como percent.
func Percent(p *float64, scale Scale) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	if math.IsNaN(v) || v < 0 {
		return nil
	}
	if scale == ScaleFraction {
		if v > 1 {
			return nil
		}
		v *= 100
	} else if v > 100 {
		return nil
	}
	v = oddsmath.Round2(v)
	return &v
}
