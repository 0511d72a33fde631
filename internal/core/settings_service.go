package core

import (
	"context"

	"go.uber.org/zap"
	"gwi.com/knsystem/internal/store"
)

const (
	EnvironmentDev  = "dev"
	EnvironmentProd = "prod"
)

type SettingsService struct {
	dbStore *store.SQLiteStore
	logger  *zap.Logger
}

func NewSettingsService(db *store.SQLiteStore, logger *zap.Logger) *SettingsService {
	return &SettingsService{dbStore: db, logger: logger}
}

func (s *SettingsService) ChatbotEnvironment(ctx context.Context) (string, error) {
	env, err := s.dbStore.GetSetting(ctx, store.SettingChatbotEnvironment)
	return env, translate(err, "Chatbot environment setting not found")
}

func (s *SettingsService) SetChatbotEnvironment(ctx context.Context, env string) error {
	if env != EnvironmentDev && env != EnvironmentProd {
		return validation(`Invalid environment value. Must be "dev" or "prod"`)
	}
	if err := s.dbStore.UpsertSetting(ctx, store.SettingChatbotEnvironment, env); err != nil {
		return err
	}
	s.logger.Info("chatbot environment changed", zap.String("environment", env))
	return nil
}
