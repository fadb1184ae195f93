package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/apexqbank/apex-backend/internal/config"
	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const instructionsTTL = 10 * time.Minute

// SettingStore persists key-value app settings.
type SettingStore interface {
	GetAll(ctx context.Context) ([]model.AppSetting, error)
	UpsertMany(ctx context.Context, values map[string]string) error
	GetByKeys(ctx context.Context, keys []string) (map[string]string, error)
}

var paymentSettingKeys = []string{
	model.SettingTelebirrNumber,
	model.SettingCBEAccount,
	model.SettingCBEAccountName,
	model.SettingContactEmail,
	model.SettingContactTelegram,
	model.SettingApprovalWindow,
}

type SettingService struct {
	settingRepo SettingStore
	rdb         *redis.Client
	log         zerolog.Logger
}

func NewSettingService(settingRepo SettingStore, rdb *redis.Client, log zerolog.Logger) *SettingService {
	return &SettingService{
		settingRepo: settingRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "setting_service").Logger(),
	}
}

func (s *SettingService) GetAllSettings(ctx context.Context) (map[string]string, error) {
	settingsList, err := s.settingRepo.GetAll(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to get all settings")
		return nil, err
	}

	settingsMap := make(map[string]string, len(settingsList))
	for _, setting := range settingsList {
		settingsMap[setting.Key] = setting.Value
	}
	return settingsMap, nil
}

// UpdateSettings upserts values and drops the cached instructions.
func (s *SettingService) UpdateSettings(ctx context.Context, settingsMap map[string]string) error {
	if err := s.settingRepo.UpsertMany(ctx, settingsMap); err != nil {
		s.log.Error().Err(err).Msg("failed to update settings")
		return err
	}
	if err := s.rdb.Del(ctx, config.CacheKey.PaymentInstructionsKey()).Err(); err != nil {
		s.log.Warn().Err(err).Msg("failed to invalidate payment instructions cache")
	}
	return nil
}

// PaymentInstructions returns the public payment page, cached in Redis.
func (s *SettingService) PaymentInstructions(ctx context.Context) (*model.PaymentInstructions, error) {
	key := config.CacheKey.PaymentInstructionsKey()

	cached, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		var out model.PaymentInstructions
		if jsonErr := json.Unmarshal([]byte(cached), &out); jsonErr == nil {
			return &out, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("payment instructions cache read failed")
	}

	values, err := s.settingRepo.GetByKeys(ctx, paymentSettingKeys)
	if err != nil {
		return nil, err
	}

	out := &model.PaymentInstructions{
		TelebirrNumber:  values[model.SettingTelebirrNumber],
		CBEAccount:      values[model.SettingCBEAccount],
		CBEAccountName:  values[model.SettingCBEAccountName],
		ContactEmail:    values[model.SettingContactEmail],
		ContactTelegram: values[model.SettingContactTelegram],
		ApprovalWindow:  values[model.SettingApprovalWindow],
		Plans:           model.Plans,
	}

	if payload, err := json.Marshal(out); err == nil {
		if err := s.rdb.Set(ctx, key, string(payload), instructionsTTL).Err(); err != nil {
			s.log.Warn().Err(err).Msg("payment instructions cache write failed")
		}
	}
	return out, nil
}
