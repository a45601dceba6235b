package cmab

import (
	"context"
	"errors"
)

var (
	ErrFetchFailed     = errors.New("CMAB decision fetch failed")
	ErrInvalidResponse = errors.New("invalid CMAB fetch response")
)

// Option changes how the decision cache is used for a single call
type Option string

const (
	IgnoreCmabCache         Option = "IGNORE_CMAB_CACHE"
	ResetCmabCache          Option = "RESET_CMAB_CACHE"
	InvalidateUserCmabCache Option = "INVALIDATE_USER_CMAB_CACHE"
)

// Decision is the variation chosen by the bandit service
type Decision struct {
	VariationID string
	CmabUUID    string
}

// CacheValue is what the service stores per (user, rule)
type CacheValue struct {
	AttributesHash string
	VariationID    string
	CmabUUID       string
}

// Client fetches a decision from the remote bandit service
type Client interface {
	FetchDecision(ctx context.Context, ruleID, userID string, attributes map[string]any, cmabUUID string) (string, error)
}
