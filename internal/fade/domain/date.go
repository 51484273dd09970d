package domain

import "time"

const slateLayout = "20060102"

// SlateDate devolve a data do slate (YYYYMMDD) no fuso configurado.
// Jogos da noite americana caem no dia certo mesmo rodando em UTC.
func SlateDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(slateLayout)
}

// ParseSlateDate interpreta YYYYMMDD como meia-noite no fuso dado
func ParseSlateDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(slateLayout, s, loc)
}

// StartOfDay trunca para 00:00 no fuso dado
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}
