package resolver

import (
	"fmt"

	"github.com/radieske/public-fade-tracker/internal/fade/domain"
)

// Verdict é a decisão de um mercado para um alerta
type Verdict int

const (
	// VerdictPending: ainda sem resultado (jogo não terminou)
	VerdictPending Verdict = iota
	// VerdictPush: resultado igual à linha; o alerta continua pendente
	VerdictPush
	// VerdictNoData: jogo terminal mas placar/vencedor ausentes
	VerdictNoData
	VerdictWon
	VerdictLost
	// VerdictError: o alerta não tem o que o mercado exige
	VerdictError
)

func (v Verdict) String() string {
	switch v {
	case VerdictPending:
		return "pending"
	case VerdictPush:
		return "push"
	case VerdictNoData:
		return "no_data"
	case VerdictWon:
		return "won"
	case VerdictLost:
		return "lost"
	case VerdictError:
		return "error"
	}
	return "unknown"
}

// Decision carrega o veredito e o motivo (para log)
type Decision struct {
	Verdict Verdict
	Detail  string
}

func decided(fadeWins bool, detail string) Decision {
	if fadeWins {
		return Decision{Verdict: VerdictWon, Detail: detail}
	}
	return Decision{Verdict: VerdictLost, Detail: detail}
}

// Decide despacha pelo mercado do alerta. Jogo não terminal fica pendente.
func Decide(a domain.Alert, g domain.NormalizedGame) Decision {
	if !g.Status.IsTerminal() {
		return Decision{Verdict: VerdictPending, Detail: "game status " + string(g.Status)}
	}
	switch a.Market {
	case domain.MarketSpread:
		return ResolveSpread(a, g)
	case domain.MarketTotal:
		return ResolveTotal(a, g)
	case domain.MarketMoneyline:
		return ResolveMoneyline(a, g)
	}
	return Decision{Verdict: VerdictError, Detail: fmt.Sprintf("unknown market %q", a.Market)}
}

// ResolveSpread: o fade ganha quando o lado fadeado não cobre a linha
func ResolveSpread(a domain.Alert, g domain.NormalizedGame) Decision {
	if a.FadedValue == nil {
		return Decision{Verdict: VerdictError, Detail: "spread alert without faded_value"}
	}
	home, away, ok := g.Scores()
	if !ok {
		return Decision{Verdict: VerdictNoData, Detail: "missing boxscore"}
	}

	var margin float64
	switch a.FadedOutcomeLabel {
	case domain.LabelHome:
		margin = home - away
	case domain.LabelAway:
		margin = away - home
	default:
		return Decision{Verdict: VerdictError, Detail: fmt.Sprintf("spread label %q", a.FadedOutcomeLabel)}
	}

	line := *a.FadedValue
	if margin == line {
		return Decision{Verdict: VerdictPush, Detail: fmt.Sprintf("margin %.1f equals line %.1f", margin, line)}
	}
	covered := margin > line
	return decided(!covered, fmt.Sprintf("margin %.1f vs line %.1f, covered=%t", margin, line, covered))
}

// ResolveTotal: Over fadeado ganha abaixo da linha, Under fadeado ganha acima
func ResolveTotal(a domain.Alert, g domain.NormalizedGame) Decision {
	if a.FadedValue == nil {
		return Decision{Verdict: VerdictError, Detail: "total alert without faded_value"}
	}
	home, away, ok := g.Scores()
	if !ok {
		return Decision{Verdict: VerdictNoData, Detail: "missing boxscore"}
	}

	total := home + away
	line := *a.FadedValue
	if total == line {
		return Decision{Verdict: VerdictPush, Detail: fmt.Sprintf("total %.1f equals line %.1f", total, line)}
	}
	detail := fmt.Sprintf("total %.1f vs line %.1f", total, line)
	switch a.FadedOutcomeLabel {
	case domain.LabelOver:
		return decided(total < line, detail)
	case domain.LabelUnder:
		return decided(total > line, detail)
	}
	return Decision{Verdict: VerdictError, Detail: fmt.Sprintf("total label %q", a.FadedOutcomeLabel)}
}

// ResolveMoneyline: o fade ganha quando o time fadeado não vence.
// Vencedor explícito tem prioridade; senão compara o placar.
func ResolveMoneyline(a domain.Alert, g domain.NormalizedGame) Decision {
	var faded int64
	switch a.FadedOutcomeLabel {
	case domain.LabelHome:
		faded = g.HomeTeamID
	case domain.LabelAway:
		faded = g.AwayTeamID
	default:
		return Decision{Verdict: VerdictError, Detail: fmt.Sprintf("moneyline label %q", a.FadedOutcomeLabel)}
	}

	var winner int64
	switch {
	case g.WinningTeamID != nil:
		winner = *g.WinningTeamID
	default:
		home, away, ok := g.Scores()
		if !ok {
			return Decision{Verdict: VerdictNoData, Detail: "no winner and no boxscore"}
		}
		if home == away {
			return Decision{Verdict: VerdictPush, Detail: "scores tied"}
		}
		winner = g.AwayTeamID
		if home > away {
			winner = g.HomeTeamID
		}
	}

	if winner != g.HomeTeamID && winner != g.AwayTeamID {
		return Decision{Verdict: VerdictError, Detail: fmt.Sprintf("winner %d is not part of the game", winner)}
	}
	return decided(winner != faded, fmt.Sprintf("winner %d, faded %d", winner, faded))
}
