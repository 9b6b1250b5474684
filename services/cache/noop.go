package cachesvc

import (
	"context"
	"time"

	"github.com/trezcool/admissions/core"
)

// noopCache never stores anything. It backs deployments without redis and tests.
type noopCache struct{}

var _ core.Cache = noopCache{}

func NewNoopCache() core.Cache {
	return noopCache{}
}

func (noopCache) GetJSON(context.Context, string, interface{}) error {
	return core.ErrCacheMiss
}

func (noopCache) SetJSON(context.Context, string, interface{}, time.Duration) error {
	return nil
}

func (noopCache) Delete(context.Context, ...string) error {
	return nil
}
