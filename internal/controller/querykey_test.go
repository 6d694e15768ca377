package controller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/opspanel/opspanel/pkg/model"
)

func TestBuildKey_EquivalentFiltersCollide(t *testing.T) {
	instant := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)
	zone := time.FixedZone("UTC-5", -5*60*60)

	a := BuildKey(model.ResourceLogs, OpList, model.ListFilter{
		Search: "timeout", Start: instant, Page: 1, PageSize: 25,
	})
	b := BuildKey(model.ResourceLogs, OpList, model.ListFilter{
		Start: instant.In(zone), Search: "timeout", Page: 1, PageSize: 25,
	})
	assert.Equal(t, a, b)
}

func TestBuildKey_DistinguishesResourceOpAndFilter(t *testing.T) {
	f := model.ListFilter{Page: 1, PageSize: 25}

	base := BuildKey(model.ResourceLogs, OpList, f)
	assert.NotEqual(t, base, BuildKey(model.ResourceUsers, OpList, f))
	assert.NotEqual(t, base, BuildKey(model.ResourceLogs, OpCount, f))
	assert.NotEqual(t, base, BuildKey(model.ResourceLogs, OpList, model.ListFilter{Page: 2, PageSize: 25}))
}

func TestBuildKey_UnsetOptionalsDoNotLeakIn(t *testing.T) {
	a := BuildKey(model.ResourceLogs, OpList, model.ListFilter{Page: 1, PageSize: 10})
	b := BuildKey(model.ResourceLogs, OpList, model.ListFilter{Search: "", Level: "", Page: 1, PageSize: 10})
	assert.Equal(t, a, b)
	assert.Equal(t, "page=1&pageSize=10", a.Params)
}

func TestQueryKey_String(t *testing.T) {
	k := BuildKey(model.ResourceUsers, OpList, model.ListFilter{Search: "bob", Page: 2, PageSize: 10})
	assert.Equal(t, "users/list?page=2&pageSize=10&search=bob", k.String())
}

func TestQueryKey_UsableAsMapKey(t *testing.T) {
	m := map[QueryKey]int{}
	f := model.ListFilter{Page: 1, PageSize: 10}
	m[BuildKey(model.ResourceLogs, OpList, f)] = 1
	m[BuildKey(model.ResourceLogs, OpList, f)] = 2
	assert.Len(t, m, 1)
}
