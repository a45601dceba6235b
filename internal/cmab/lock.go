package cmab

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// NumLockStripes bounds how many decisions can be fetched concurrently.
// Unrelated (user, rule) pairs that hash to the same stripe serialize.
const NumLockStripes = 1000

type stripedLock struct {
	stripes [NumLockStripes]sync.Mutex
}

func (l *stripedLock) index(userID, ruleID string) int {
	return int(xxhash.Sum64String(userID+ruleID) % NumLockStripes)
}

func (l *stripedLock) lock(userID, ruleID string) func() {
	m := &l.stripes[l.index(userID, ruleID)]
	m.Lock()
	return m.Unlock
}
