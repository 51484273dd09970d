package scorer

import (
	"fmt"
	"strings"
)

// Limiares da regra de rating
const (
	MinDifference     = 15.0
	StrongDifference  = 25.0
	ExtremeDifference = 35.0
	HeavyTickets      = 85.0
	LopsidedTickets   = 95.0

	MaxRating = 5
)

// Score é o resultado da avaliação de um lado do mercado
type Score struct {
	Rating     int
	Difference float64
	Reason     string
}

// Qualified indica se o lado passou no gate (rating > 0)
func (s Score) Qualified() bool { return s.Rating > 0 }

// RateFade devolve o rating 0..5 de um lado; 0 significa "não é fade"
func RateFade(ticketPct, moneyPct, impliedProb float64) int {
	return Evaluate(ticketPct, moneyPct, impliedProb).Rating
}

// Evaluate aplica o gate (diff >= 15 e tickets > money) e os bônus de magnitude,
// registrando no Reason quais limiares dispararam.
func Evaluate(ticketPct, moneyPct, impliedProb float64) Score {
	diff := ticketPct - impliedProb
	s := Score{Difference: diff}

	if diff < MinDifference || ticketPct <= moneyPct {
		return s
	}

	fired := []string{
		fmt.Sprintf("diff %.1f>=%.0f", diff, MinDifference),
		fmt.Sprintf("tickets %.1f>money %.1f", ticketPct, moneyPct),
	}
	rating := 1
	if diff >= StrongDifference {
		rating++
		fired = append(fired, fmt.Sprintf("diff>=%.0f", StrongDifference))
	}
	if diff >= ExtremeDifference {
		rating++
		fired = append(fired, fmt.Sprintf("diff>=%.0f", ExtremeDifference))
	}
	if ticketPct >= HeavyTickets {
		rating++
		fired = append(fired, fmt.Sprintf("tickets>=%.0f", HeavyTickets))
	}
	if ticketPct >= LopsidedTickets {
		rating++
		fired = append(fired, fmt.Sprintf("tickets>=%.0f", LopsidedTickets))
	}
	if rating > MaxRating {
		rating = MaxRating
	}

	s.Rating = rating
	s.Reason = fmt.Sprintf("tickets %.1f%% vs implied %.2f%%: %s", ticketPct, impliedProb, strings.Join(fired, ", "))
	return s
}
