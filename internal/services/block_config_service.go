package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"

	"sellerops/internal/catalog"
	"sellerops/internal/crypto"
	"sellerops/internal/dispatch"
	"sellerops/internal/models"
	"sellerops/internal/session"
	"sellerops/internal/store"
)

// BlockConfigInput is an edit to a block configuration. ConfigData and
// Credentials arrive as raw JSON and are validated before any store write.
type BlockConfigInput struct {
	Category     string          `json:"category"`
	Name         string          `json:"name"`
	BlockID      string          `json:"blockId,omitempty"`
	IsFunctional bool            `json:"isFunctional"`
	ConfigData   json.RawMessage `json:"configData"`
	Credentials  json.RawMessage `json:"credentials,omitempty"`
}

// BlockConfigService manages block configurations and serves them to the dispatcher
type BlockConfigService struct {
	store   store.BlockConfigStore
	cipher  *crypto.CredentialCipher
	cache   *ConfigCache
	metrics *Metrics
}

// NewBlockConfigService creates the service. cipher may be nil, in which
// case credentials are stored as given.
func NewBlockConfigService(st store.BlockConfigStore, cipher *crypto.CredentialCipher, cache *ConfigCache, metrics *Metrics) *BlockConfigService {
	if cipher == nil {
		log.Println("⚠️ [BLOCK-CONFIG] No encryption key configured, credentials are stored unencrypted")
	}
	return &BlockConfigService{store: st, cipher: cipher, cache: cache, metrics: metrics}
}

// Upsert validates and stores a configuration
func (s *BlockConfigService) Upsert(ctx context.Context, sess session.Context, input BlockConfigInput) (*models.BlockConfiguration, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	cfg, err := parseBlockConfigInput(input)
	if err != nil {
		return nil, err
	}

	stored := cfg
	if s.cipher != nil && len(cfg.Credentials) > 0 {
		encrypted, err := s.cipher.EncryptMap(sess.UserID, cfg.Credentials)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt credentials: %w", err)
		}
		stored.Credentials = encrypted
	}

	if err := s.store.UpsertBlockConfiguration(ctx, sess, stored); err != nil {
		return nil, fmt.Errorf("failed to save block configuration: %w", err)
	}
	s.invalidate(sess.UserID)

	log.Printf("✅ [BLOCK-CONFIG] Saved %s/%s for user %s (functional=%v)", cfg.Category, cfg.Name, sess.UserID, cfg.IsFunctional)
	cfg.UserID = sess.UserID
	return &cfg, nil
}

// SetFunctional toggles whether a block runs for real. A configuration that
// does not exist yet is created with empty config data.
func (s *BlockConfigService) SetFunctional(ctx context.Context, sess session.Context, category models.Category, name, blockID string, functional bool) (*models.BlockConfiguration, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if !category.Valid() {
		return nil, invalid("category", "unknown category %q", category)
	}

	configs, err := s.store.ListBlockConfigurations(ctx, sess, category)
	if err != nil {
		return nil, fmt.Errorf("failed to load block configurations: %w", err)
	}

	cfg := models.BlockConfiguration{Category: category, Name: name, BlockID: blockID, ConfigData: map[string]any{}}
	for _, c := range configs {
		if c.Name == name && c.BlockID == blockID {
			cfg = c
			break
		}
	}
	if cfg.ID == "" && !catalog.HasOption(category, name) {
		return nil, invalid("name", "%q is not an option of %s", name, category)
	}
	cfg.IsFunctional = functional

	if err := s.store.UpsertBlockConfiguration(ctx, sess, cfg); err != nil {
		return nil, fmt.Errorf("failed to save block configuration: %w", err)
	}
	s.invalidate(sess.UserID)
	return &cfg, nil
}

// List returns the stored configurations, optionally for one category.
// Credentials are returned as stored.
func (s *BlockConfigService) List(ctx context.Context, sess session.Context, category models.Category) ([]models.BlockConfiguration, error) {
	configs, err := s.store.ListBlockConfigurations(ctx, sess, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list block configurations: %w", err)
	}
	return configs, nil
}

// ListBlockConfigurations returns the user's configurations with decrypted
// credentials, served from the cache when possible
func (s *BlockConfigService) ListBlockConfigurations(ctx context.Context, sess session.Context, category models.Category) ([]models.BlockConfiguration, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	all, hit := s.cached(sess.UserID)
	s.metrics.RecordCacheLookup(hit)
	if !hit {
		configs, err := s.store.ListBlockConfigurations(ctx, sess, "")
		if err != nil {
			return nil, err
		}
		for i := range configs {
			if s.cipher == nil || len(configs[i].Credentials) == 0 {
				continue
			}
			plain, err := s.cipher.DecryptMap(sess.UserID, configs[i].Credentials)
			if err != nil {
				return nil, fmt.Errorf("failed to decrypt credentials for %s/%s: %w", configs[i].Category, configs[i].Name, err)
			}
			configs[i].Credentials = plain
		}
		if s.cache != nil {
			s.cache.Set(sess.UserID, configs)
		}
		all = configs
	}

	// cached entries are shared across requests; callers get their own copies
	out := make([]models.BlockConfiguration, 0, len(all))
	for _, c := range all {
		if category == "" || c.Category == category {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

// Resolve returns the configuration governing a block, or nil for demo mode
func (s *BlockConfigService) Resolve(ctx context.Context, sess session.Context, category models.Category, name, blockID string) (*models.BlockConfiguration, error) {
	configs, err := s.ListBlockConfigurations(ctx, sess, "")
	if err != nil {
		return nil, err
	}
	return dispatch.Resolve(configs, category, name, blockID), nil
}

func (s *BlockConfigService) cached(userID string) ([]models.BlockConfiguration, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(userID)
}

func (s *BlockConfigService) invalidate(userID string) {
	if s.cache != nil {
		s.cache.Invalidate(userID)
	}
}

// parseBlockConfigInput rejects anything the store must never receive
func parseBlockConfigInput(input BlockConfigInput) (models.BlockConfiguration, error) {
	if input.Category == "" {
		return models.BlockConfiguration{}, invalid("category", "is required")
	}
	category, ok := catalog.ParseCategory(input.Category)
	if !ok {
		return models.BlockConfiguration{}, invalid("category", "unknown category %q", input.Category)
	}
	if input.Name == "" {
		return models.BlockConfiguration{}, invalid("name", "is required")
	}
	if !catalog.HasOption(category, input.Name) {
		return models.BlockConfiguration{}, invalid("name", "%q is not an option of %s", input.Name, category)
	}

	raw := bytes.TrimSpace(input.ConfigData)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return models.BlockConfiguration{}, invalid("configData", "is required")
	}
	var configData map[string]any
	if err := json.Unmarshal(raw, &configData); err != nil {
		return models.BlockConfiguration{}, invalid("configData", "must be a JSON object: %v", err)
	}

	var credentials map[string]string
	if creds := bytes.TrimSpace(input.Credentials); len(creds) > 0 && !bytes.Equal(creds, []byte("null")) {
		if err := json.Unmarshal(creds, &credentials); err != nil {
			return models.BlockConfiguration{}, invalid("credentials", "must be a JSON object of strings: %v", err)
		}
	}

	return models.BlockConfiguration{
		Category:     category,
		Name:         input.Name,
		BlockID:      input.BlockID,
		IsFunctional: input.IsFunctional,
		ConfigData:   configData,
		Credentials:  credentials,
	}, nil
}
