package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"orderbackup/internal/models"
	"orderbackup/internal/repository"
)

// SettingPrefix namespaces sealed access tokens in system_settings.
const SettingPrefix = "credential."

func SettingKey(tokenID string) string {
	return SettingPrefix + strings.TrimSpace(tokenID)
}

func IsSettingKey(key string) bool {
	return strings.HasPrefix(key, SettingPrefix) && len(key) > len(SettingPrefix)
}

// Stored serves access tokens sealed into system settings by operators.
type Stored struct {
	Repo   repository.SettingsRepository
	Sealer *Sealer
}

func (s *Stored) GetValidAccessToken(ctx context.Context, _ string, tokenID string) (string, error) {
	if s == nil || s.Repo == nil || s.Sealer == nil {
		return "", nil
	}
	key := SettingKey(tokenID)
	item, err := s.Repo.GetSystemSettingByKey(ctx, key)
	if err != nil {
		return "", fmt.Errorf("load credential %s: %w", tokenID, err)
	}
	if item == nil {
		return "", nil
	}
	plain, err := s.Sealer.Open(key, item.Value)
	if err != nil {
		return "", fmt.Errorf("open credential %s: %w", tokenID, err)
	}
	return strings.TrimSpace(string(plain)), nil
}

// Put seals accessToken and stores it for tokenID.
func (s *Stored) Put(ctx context.Context, tokenID, accessToken string) (*models.SystemSetting, error) {
	if s == nil || s.Sealer == nil {
		return nil, ErrSealingDisabled
	}
	tokenID, accessToken = strings.TrimSpace(tokenID), strings.TrimSpace(accessToken)
	if tokenID == "" || accessToken == "" {
		return nil, fmt.Errorf("token id and access token are required")
	}
	key := SettingKey(tokenID)
	sealed, err := s.Sealer.Seal(key, []byte(accessToken))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	item := &models.SystemSetting{
		Key:         key,
		Value:       datatypes.JSON(sealed),
		Description: "sealed upstream access token",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.UpsertSystemSetting(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// TokenIDs lists tokens that have a stored credential.
func (s *Stored) TokenIDs(ctx context.Context) ([]string, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	items, err := s.Repo.ListSystemSettings(ctx, repository.ListSystemSettingsParams{Prefix: SettingPrefix, Limit: 1000})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if IsSettingKey(it.Key) {
			out = append(out, strings.TrimPrefix(it.Key, SettingPrefix))
		}
	}
	return out, nil
}

// Redact replaces the value of a credential setting for display.
func Redact(item models.SystemSetting) models.SystemSetting {
	if IsSettingKey(item.Key) {
		item.Value = datatypes.JSON(redacted)
	}
	return item
}

var redacted, _ = json.Marshal("***")

// Chain asks each provider in order and returns the first token found.
type Chain []Provider

func (c Chain) GetValidAccessToken(ctx context.Context, userID, tokenID string) (string, error) {
	for _, p := range c {
		if p == nil {
			continue
		}
		tok, err := p.GetValidAccessToken(ctx, userID, tokenID)
		if err != nil {
			return "", err
		}
		if tok != "" {
			return tok, nil
		}
	}
	return "", nil
}
