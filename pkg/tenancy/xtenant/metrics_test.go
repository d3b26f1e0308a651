package xtenant_test

import (
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xsite/pkg/tenancy/xtenant"
)

func TestMetrics_ZeroValue(t *testing.T) {
	var m xtenant.Metrics
	assert.False(t, m.Started())

	snap := m.Snapshot()
	assert.True(t, snap.StartTime.IsZero())
	assert.Zero(t, snap.TotalRequests)
	assert.Empty(t, snap.Routes)
}

func TestMetrics_BeginInitializesOnce(t *testing.T) {
	var m xtenant.Metrics
	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	m.Begin(first)
	m.Begin(first.Add(time.Hour))
	assert.True(t, m.Started())

	snap := m.Snapshot()
	assert.Equal(t, first, snap.StartTime)
	assert.Zero(t, snap.TotalRequests)
	assert.Empty(t, snap.Routes, "路由条目只在请求完成时创建")

	m.Observe("POST /form", time.Millisecond, http.StatusOK)
	assert.Equal(t, first, m.Snapshot().StartTime)
}

func TestMetrics_Observe(t *testing.T) {
	var m xtenant.Metrics

	m.Begin(time.Now())
	m.Observe("GET /ok", 10*time.Millisecond, http.StatusOK)
	m.Observe("GET /ok", 30*time.Millisecond, http.StatusNoContent)
	m.Observe("GET /missing", 5*time.Millisecond, http.StatusNotFound)
	m.Observe("POST /boom", 1*time.Millisecond, http.StatusInternalServerError)
	m.Observe("GET /redirect", 1*time.Millisecond, http.StatusFound)

	snap := m.Snapshot()
	assert.Equal(t, uint64(5), snap.TotalRequests)
	assert.Equal(t, uint64(2), snap.TotalErrors)

	ok := snap.Routes["GET /ok"]
	assert.Equal(t, uint64(2), ok.Count)
	assert.InDelta(t, 40.0, ok.TotalTimeMs, 0.001)
	assert.InDelta(t, 20.0, ok.AvgTimeMs, 0.001)
}

func TestMetrics_StatusBoundary(t *testing.T) {
	tests := []struct {
		status    int
		wantError bool
	}{
		{http.StatusOK, false},
		{399, false},
		{http.StatusBadRequest, true},
		{http.StatusNotFound, true},
		{http.StatusServiceUnavailable, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			var m xtenant.Metrics
			m.Observe("GET /", time.Millisecond, tt.status)
			snap := m.Snapshot()
			assert.Equal(t, uint64(1), snap.TotalRequests)
			if tt.wantError {
				assert.Equal(t, uint64(1), snap.TotalErrors)
			} else {
				assert.Zero(t, snap.TotalErrors)
			}
		})
	}
}

func TestMetrics_ConcurrentNoLostUpdates(t *testing.T) {
	var m xtenant.Metrics
	keys := []string{"GET /a", "GET /b", "POST /c", "PUT /d", "DELETE /e"}

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := keys[i%len(keys)]
			m.Begin(time.Now())
			status := http.StatusOK
			if i%10 == 0 {
				status = http.StatusNotFound
			}
			m.Observe(key, time.Millisecond, status)
		}(i)
	}
	wg.Wait()

	snap := m.Snapshot()
	assert.Equal(t, uint64(n), snap.TotalRequests)
	assert.Equal(t, uint64(n/10), snap.TotalErrors)
	require.Len(t, snap.Routes, len(keys))

	var sum uint64
	for _, rs := range snap.Routes {
		assert.Equal(t, uint64(n/len(keys)), rs.Count)
		sum += rs.Count
	}
	assert.Equal(t, snap.TotalRequests, sum)
}

func TestMetrics_ConcurrentFirstHitSameKey(t *testing.T) {
	var m xtenant.Metrics

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			m.Begin(time.Now())
			m.Observe("GET /hot", time.Microsecond, http.StatusOK)
		}()
	}
	close(start)
	wg.Wait()

	snap := m.Snapshot()
	require.Len(t, snap.Routes, 1)
	assert.Equal(t, uint64(50), snap.Routes["GET /hot"].Count)
}

func TestMetrics_SnapshotIsCopy(t *testing.T) {
	var m xtenant.Metrics
	m.Observe("GET /", time.Millisecond, http.StatusOK)

	snap := m.Snapshot()
	snap.Routes["GET /"] = xtenant.RouteSnapshot{Count: 999}

	assert.Equal(t, uint64(1), m.Snapshot().Routes["GET /"].Count)
}
