package cache

import (
	"context"
	"strconv"
	"time"

	c "github.com/patrickmn/go-cache"
	"github.com/shelterly/automation/model"
	"github.com/shelterly/automation/persistence"
)

// FlowCache keeps each tenant's triggerable flows for a while so a burst of
// record mutations does not reload them every time. A zero ttl disables it.
type FlowCache struct {
	cache *c.Cache
	flows persistence.FlowStorage
	ttl   time.Duration
}

func NewFlowCache(flows persistence.FlowStorage, ttl time.Duration) *FlowCache {
	return &FlowCache{
		cache: c.New(ttl, 10*time.Minute),
		flows: flows,
		ttl:   ttl,
	}
}

func (ch *FlowCache) TriggerableFlows(ctx context.Context, organizationId int64) ([]*model.Flow, error) {
	key := strconv.FormatInt(organizationId, 10)
	if ch.ttl > 0 {
		if cached, found := ch.cache.Get(key); found {
			return cached.([]*model.Flow), nil
		}
	}
	flows, err := ch.flows.ListTriggerableFlows(ctx, organizationId)
	if err != nil {
		return nil, err
	}
	if ch.ttl > 0 {
		ch.cache.Set(key, flows, c.DefaultExpiration)
	}
	return flows, nil
}

// Invalidate drops the tenant's cached flows; call it after a flow is saved.
func (ch *FlowCache) Invalidate(organizationId int64) {
	ch.cache.Delete(strconv.FormatInt(organizationId, 10))
}
