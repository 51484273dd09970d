package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/public-fade-tracker/internal/shared/config"
)

// DefaultKey é o hash Redis com os ajustes de runtime
const DefaultKey = "fade:settings"

// Campos do hash
const (
	FieldUpdateInterval      = "update_interval" // segundos
	FieldMaxRetries          = "max_retries"
	FieldFadeRatingThreshold = "fade_rating_threshold"
	FieldMaintenanceMode     = "maintenance_mode"
)

var ErrInvalidSetting = errors.New("invalid setting")

// Settings são os ajustes lidos no início de cada tick do orquestrador
type Settings struct {
	UpdateInterval      time.Duration `json:"update_interval"`
	MaxRetries          int           `json:"max_retries"`
	FadeRatingThreshold int           `json:"fade_rating_threshold"`
	MaintenanceMode     bool          `json:"maintenance_mode"`
}

// Store lê/escreve Settings no Redis; campos ausentes ficam com Defaults
type Store struct {
	Client   *redis.Client
	Key      string
	Defaults Settings
}

// DefaultsFrom monta os ajustes usados quando o hash no Redis não tem o campo
func DefaultsFrom(cfg config.Config) Settings {
	return Settings{
		UpdateInterval:      cfg.UpdateInterval,
		MaxRetries:          cfg.MaxRetries,
		FadeRatingThreshold: cfg.FadeRatingThreshold,
	}
}

func NewStore(c *redis.Client, defaults Settings) *Store {
	return &Store{Client: c, Key: DefaultKey, Defaults: defaults}
}

// Load devolve os ajustes correntes. Campos inválidos mantêm o default e
// voltam agregados em ErrInvalidSetting junto com o valor utilizável.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	out := s.Defaults
	vals, err := s.Client.HGetAll(ctx, s.Key).Result()
	if err != nil {
		return out, fmt.Errorf("load settings: %w", err)
	}

	var errs []error
	for field, raw := range vals {
		if err := apply(&out, field, raw); err != nil {
			errs = append(errs, err)
		}
	}
	return out, errors.Join(errs...)
}

// Update valida e grava um campo (equivalente ao antigo comando /config)
func (s *Store) Update(ctx context.Context, field, value string) error {
	var probe Settings
	if err := apply(&probe, field, value); err != nil {
		return err
	}
	return s.Client.HSet(ctx, s.Key, field, strings.TrimSpace(value)).Err()
}

// SetMaintenance liga/desliga o modo manutenção
func (s *Store) SetMaintenance(ctx context.Context, on bool) error {
	return s.Update(ctx, FieldMaintenanceMode, strconv.FormatBool(on))
}

func apply(st *Settings, field, raw string) error {
	v := strings.TrimSpace(raw)
	switch field {
	case FieldUpdateInterval:
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: %s=%q", ErrInvalidSetting, field, raw)
		}
		st.UpdateInterval = time.Duration(n) * time.Second
	case FieldMaxRetries:
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s=%q", ErrInvalidSetting, field, raw)
		}
		st.MaxRetries = n
	case FieldFadeRatingThreshold:
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 5 {
			return fmt.Errorf("%w: %s=%q", ErrInvalidSetting, field, raw)
		}
		st.FadeRatingThreshold = n
	case FieldMaintenanceMode:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidSetting, field, raw)
		}
		st.MaintenanceMode = b
	default:
		return fmt.Errorf("%w: unknown field %q", ErrInvalidSetting, field)
	}
	return nil
}
