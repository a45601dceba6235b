package cmab

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BarkinBalci/feature-flag-events/internal/cache"
	"github.com/BarkinBalci/feature-flag-events/internal/domain"
	"github.com/BarkinBalci/feature-flag-events/internal/projectconfig"
)

// Service resolves bandit decisions, caching them per (user, rule) for as
// long as the user's relevant attributes do not change
type Service struct {
	cache   cache.Cache[CacheValue]
	client  Client
	locks   *stripedLock
	newUUID func() string
	log     *zap.Logger
}

// NewService creates a new decision service
func NewService(decisionCache cache.Cache[CacheValue], client Client, log *zap.Logger) *Service {
	return &Service{
		cache:   decisionCache,
		client:  client,
		locks:   &stripedLock{},
		newUUID: uuid.NewString,
		log:     log,
	}
}

// GetDecision returns the decision for the user and rule together with the
// reasons collected while resolving it. Fetch errors are returned as is and
// leave the cache untouched.
func (s *Service) GetDecision(ctx context.Context, cfg projectconfig.ProjectConfig, user domain.UserContext, ruleID string, opts []Option) (Decision, []string, error) {
	unlock := s.locks.lock(user.UserID, ruleID)
	defer unlock()

	return s.getDecision(ctx, cfg, user, ruleID, opts)
}

func (s *Service) getDecision(ctx context.Context, cfg projectconfig.ProjectConfig, user domain.UserContext, ruleID string, opts []Option) (Decision, []string, error) {
	var reasons []string
	filtered := filterAttributes(cfg, user, ruleID)

	if slices.Contains(opts, IgnoreCmabCache) {
		reasons = append(reasons, fmt.Sprintf("Ignoring CMAB cache for user '%s' and rule '%s'.", user.UserID, ruleID))
		decision, err := s.fetchDecision(ctx, ruleID, user.UserID, filtered)
		return decision, reasons, err
	}

	if slices.Contains(opts, ResetCmabCache) {
		s.cache.Reset()
		reasons = append(reasons, fmt.Sprintf("Resetting CMAB cache for user '%s' and rule '%s'.", user.UserID, ruleID))
	}

	key := cacheKey(user.UserID, ruleID)

	if slices.Contains(opts, InvalidateUserCmabCache) {
		s.cache.Remove(key)
		reasons = append(reasons, fmt.Sprintf("Invalidating CMAB cache for user '%s' and rule '%s'.", user.UserID, ruleID))
	}

	attributesHash, err := hashAttributes(filtered)
	if err != nil {
		return Decision{}, reasons, err
	}

	if cached, found := s.cache.Lookup(key); found {
		if cached.AttributesHash == attributesHash {
			reasons = append(reasons, fmt.Sprintf("CMAB cache hit for user '%s' and rule '%s'.", user.UserID, ruleID))
			return Decision{VariationID: cached.VariationID, CmabUUID: cached.CmabUUID}, reasons, nil
		}
		reasons = append(reasons, fmt.Sprintf("CMAB cache attributes mismatch for user '%s' and rule '%s', fetching new decision.", user.UserID, ruleID))
		s.cache.Remove(key)
	} else {
		reasons = append(reasons, fmt.Sprintf("CMAB cache miss for user '%s' and rule '%s'.", user.UserID, ruleID))
	}

	decision, err := s.fetchDecision(ctx, ruleID, user.UserID, filtered)
	if err != nil {
		return Decision{}, reasons, err
	}

	s.cache.Save(key, CacheValue{
		AttributesHash: attributesHash,
		VariationID:    decision.VariationID,
		CmabUUID:       decision.CmabUUID,
	})
	reasons = append(reasons, fmt.Sprintf("CMAB decision fetched for user '%s' and rule '%s'.", user.UserID, ruleID))

	return decision, reasons, nil
}

func (s *Service) fetchDecision(ctx context.Context, ruleID, userID string, attributes map[string]any) (Decision, error) {
	cmabUUID := s.newUUID()

	variationID, err := s.client.FetchDecision(ctx, ruleID, userID, attributes, cmabUUID)
	if err != nil {
		s.log.Warn("Failed to fetch CMAB decision",
			zap.String("rule_id", ruleID),
			zap.String("user_id", userID),
			zap.Error(err))
		return Decision{}, fmt.Errorf("failed to fetch decision for rule %s: %w", ruleID, err)
	}

	return Decision{VariationID: variationID, CmabUUID: cmabUUID}, nil
}

// filterAttributes keeps only the user attributes the rule's bandit
// configuration declares relevant
func filterAttributes(cfg projectconfig.ProjectConfig, user domain.UserContext, ruleID string) map[string]any {
	filtered := make(map[string]any)

	experiment, ok := cfg.ExperimentByID(ruleID)
	if !ok || !experiment.IsCmab() {
		return filtered
	}

	for _, attributeID := range experiment.Cmab.AttributeIDs {
		attribute, ok := cfg.AttributeByID(attributeID)
		if !ok {
			continue
		}
		if value, ok := user.Attributes[attribute.Key]; ok && isFinite(value) {
			filtered[attribute.Key] = value
		}
	}

	return filtered
}

// isFinite rejects NaN and infinite floats, which have no JSON encoding
func isFinite(value any) bool {
	switch v := value.(type) {
	case float64:
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	case float32:
		return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
	}
	return true
}

// cacheKey prefixes the user id with its length so that user and rule ids
// cannot run into each other
func cacheKey(userID, ruleID string) string {
	return strconv.Itoa(len(userID)) + "-" + userID + "-" + ruleID
}

// hashAttributes hashes the JSON encoding of the map. encoding/json sorts map
// keys, so insertion order does not matter.
func hashAttributes(attributes map[string]any) (string, error) {
	data, err := json.Marshal(attributes)
	if err != nil {
		return "", fmt.Errorf("failed to encode attributes: %w", err)
	}
	return strconv.FormatUint(xxhash.Sum64(data), 16), nil
}
