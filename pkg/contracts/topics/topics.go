package topics

const (
	// Jogos crus do provedor (um registro por jogo)
	GamesRaw = "games_raw"

	// Alertas de fade
	FadeAlertCreated  = "fade_alert_created"
	FadeAlertResolved = "fade_alert_resolved"

	// DLQs
	GamesRawDLQ = "games_raw_dlq"
)
