package oddsmath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidOdds é retornado para odds americanas 0 ou não numéricas
var ErrInvalidOdds = errors.New("invalid american odds")

var hundred = decimal.NewFromInt(100)

// ImpliedProbability converte odds americanas em probabilidade implícita (0-100, 2 casas)
// -150 → 60.00
// +150 → 40.00
func ImpliedProbability(odds int) (float64, error) {
	if odds == 0 {
		return 0, fmt.Errorf("%w: cannot be 0", ErrInvalidOdds)
	}

	o := decimal.NewFromInt(int64(odds))
	var p decimal.Decimal
	if odds < 0 {
		// |o| / (|o| + 100) * 100
		abs := o.Abs()
		p = abs.Div(abs.Add(hundred)).Mul(hundred)
	} else {
		// 100 / (o + 100) * 100
		p = hundred.Div(o.Add(hundred)).Mul(hundred)
	}
	return p.Round(2).InexactFloat64(), nil
}

// ParseAmerican interpreta odds vindas como texto ("+150", "-110", "150")
func ParseAmerican(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidOdds)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOdds, raw)
	}
	if v == 0 {
		return 0, fmt.Errorf("%w: cannot be 0", ErrInvalidOdds)
	}
	return v, nil
}

// Round2 arredonda para 2 casas decimais (half away from zero)
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
