package xtenant_test

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/omeyang/xsite/pkg/tenancy/xtenant"
)

// Example_quickStart 演示构建目录并按主机名解析租户。
func Example_quickStart() {
	dir, err := xtenant.NewDirectory([]xtenant.Definition{
		{ID: 1, Domain: "example.com, www.example.com", Settings: map[string]any{"site_name": "Example"}},
		{ID: 2, Domain: "other.org"},
	})
	if err != nil {
		fmt.Println("build failed:", err)
		return
	}

	t, _ := dir.Resolve(" WWW.Example.com ")
	fmt.Println(t.ID(), t.Config().String("site_name"))

	_, err = dir.Resolve("unknown.test")
	fmt.Println(errors.Is(err, xtenant.ErrTenantNotFound))

	// Output:
	// 1 Example
	// true
}

// ExampleNewDirectory_duplicateDomain 演示跨租户域名冲突。
func ExampleNewDirectory_duplicateDomain() {
	_, err := xtenant.NewDirectory([]xtenant.Definition{
		{ID: 1, Domain: "a.com"},
		{ID: 2, Domain: "b.com, A.com"},
	})
	fmt.Println(errors.Is(err, xtenant.ErrDuplicateDomain))
	fmt.Println(err)

	// Output:
	// true
	// xtenant: duplicate domain "a.com": claimed by tenant 1 and tenant 2
}

// ExampleMetrics 演示请求统计的记录与快照。
func ExampleMetrics() {
	var m xtenant.Metrics
	m.Begin(time.Now())
	m.Observe("GET /", 12*time.Millisecond, http.StatusOK)
	m.Observe("GET /missing", 3*time.Millisecond, http.StatusNotFound)

	snap := m.Snapshot()
	fmt.Println(snap.TotalRequests, snap.TotalErrors, snap.Routes["GET /"].Count)

	// Output:
	// 2 1 1
}
