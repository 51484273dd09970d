package finder

import (
	"fmt"

	"github.com/radieske/public-fade-tracker/internal/fade/domain"
	"github.com/radieske/public-fade-tracker/internal/fade/oddsmath"
	"github.com/radieske/public-fade-tracker/internal/fade/scorer"
)

// Kind classifica o resultado da avaliação de um outcome
type Kind int

const (
	// KindSkip: faltam dados ou o lado não passou no gate
	KindSkip Kind = iota
	// KindInvalid: dado presente mas inválido (odds 0, lado desconhecido)
	KindInvalid
	// KindFade: oportunidade encontrada
	KindFade
)

func (k Kind) String() string {
	switch k {
	case KindSkip:
		return "skip"
	case KindInvalid:
		return "invalid"
	case KindFade:
		return "fade"
	}
	return "unknown"
}

// Evaluation é o resultado de um único outcome. Opportunity só é preenchida em KindFade.
type Evaluation struct {
	Market      domain.Market
	Side        domain.Side
	Kind        Kind
	Detail      string
	Opportunity domain.Opportunity
}

// Scan avalia todos os outcomes do jogo na ordem spread, total, moneyline,
// preservando a ordem de cada lista. Jogo terminal ou sem identidade → nil.
func Scan(game domain.NormalizedGame) []Evaluation {
	if game.Status.IsTerminal() {
		return nil
	}
	if err := game.Validate(); err != nil {
		return nil
	}

	var out []Evaluation
	for _, m := range domain.Markets {
		for _, o := range game.Outcomes(m) {
			out = append(out, EvaluateOutcome(game, m, o))
		}
	}
	return out
}

// FindOpportunities devolve só as oportunidades qualificadas do jogo
func FindOpportunities(game domain.NormalizedGame) []domain.Opportunity {
	var opps []domain.Opportunity
	for _, ev := range Scan(game) {
		if ev.Kind == KindFade {
			opps = append(opps, ev.Opportunity)
		}
	}
	return opps
}

// EvaluateOutcome avalia um lado de um mercado. Nunca falha: problemas viram Skip/Invalid.
func EvaluateOutcome(game domain.NormalizedGame, m domain.Market, o domain.MarketOutcome) Evaluation {
	ev := Evaluation{Market: m, Side: o.Side}

	if o.Side == "" || o.Odds == nil || o.TicketsPct == nil || o.MoneyPct == nil {
		ev.Detail = "missing odds or bet distribution"
		return ev
	}

	label, ok := domain.LabelFor(m, o.Side)
	if !ok {
		ev.Kind = KindInvalid
		ev.Detail = fmt.Sprintf("side %q not valid for %s", o.Side, m)
		return ev
	}

	implied, err := oddsmath.ImpliedProbability(*o.Odds)
	if err != nil {
		ev.Kind = KindInvalid
		ev.Detail = err.Error()
		return ev
	}

	score := scorer.Evaluate(*o.TicketsPct, *o.MoneyPct, implied)
	if !score.Qualified() {
		ev.Detail = fmt.Sprintf("below gate (diff %.2f)", score.Difference)
		return ev
	}

	opp := domain.Opportunity{
		GameID:             game.GameID,
		Sport:              game.Sport,
		Market:             m,
		FadedOutcomeLabel:  label,
		Odds:               *o.Odds,
		ImpliedProbability: implied,
		TicketsPercent:     *o.TicketsPct,
		MoneyPercent:       *o.MoneyPct,
		Rating:             score.Rating,
		Reason:             score.Reason,
	}
	if m != domain.MarketMoneyline && o.Value != nil {
		v := *o.Value
		opp.FadedValue = &v
	}

	ev.Kind = KindFade
	ev.Opportunity = opp
	return ev
}
