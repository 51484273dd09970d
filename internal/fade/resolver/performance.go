package resolver

import (
	"time"

	"github.com/radieske/public-fade-tracker/internal/fade/domain"
	"github.com/radieske/public-fade-tracker/internal/fade/oddsmath"
)

// Aggregate monta o snapshot a partir dos alertas da janela.
// Ratings 1..5 e os esportes suportados sempre aparecem, mesmo zerados.
func Aggregate(alerts []domain.Alert, now time.Time, windowDays int) domain.PerformanceSnapshot {
	snap := domain.PerformanceSnapshot{
		ID:          domain.PerformanceSnapshotID,
		LastUpdated: now.UTC(),
		WindowDays:  windowDays,
		ByRating:    make(map[int]domain.Bucket, 5),
		BySport:     make(map[domain.Sport]domain.Bucket, len(domain.Sports)),
	}
	for i := 1; i <= 5; i++ {
		snap.ByRating[i] = domain.Bucket{}
	}
	for _, s := range domain.Sports {
		snap.BySport[s] = domain.Bucket{}
	}

	for _, a := range alerts {
		add(&snap.Overall, a.Status)

		if a.Rating >= 1 && a.Rating <= 5 {
			b := snap.ByRating[a.Rating]
			add(&b, a.Status)
			snap.ByRating[a.Rating] = b
		}

		b := snap.BySport[a.Sport]
		add(&b, a.Status)
		snap.BySport[a.Sport] = b
	}

	finish(&snap.Overall)
	for k, b := range snap.ByRating {
		finish(&b)
		snap.ByRating[k] = b
	}
	for k, b := range snap.BySport {
		finish(&b)
		snap.BySport[k] = b
	}
	return snap
}

func add(b *domain.Bucket, st domain.AlertStatus) {
	b.Total++
	switch st {
	case domain.AlertWon:
		b.Won++
	case domain.AlertLost:
		b.Lost++
	case domain.AlertPending:
		b.Pending++
	case domain.AlertError:
		b.Errored++
	}
}

// WinRate = won / (won + lost) * 100; 0 sem decididos
func WinRate(won, lost int) float64 {
	if won+lost == 0 {
		return 0
	}
	return oddsmath.Round2(float64(won) / float64(won+lost) * 100)
}

func finish(b *domain.Bucket) {
	b.WinRate = WinRate(b.Won, b.Lost)
}
