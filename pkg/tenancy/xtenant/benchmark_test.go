package xtenant_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/omeyang/xsite/pkg/tenancy/xtenant"
)

func BenchmarkDirectory_Resolve(b *testing.B) {
	defs := make([]xtenant.Definition, 0, 1000)
	for i := 0; i < 1000; i++ {
		defs = append(defs, xtenant.Definition{ID: i, Domain: fmt.Sprintf("site-%d.example.com", i)})
	}
	dir, err := xtenant.NewDirectory(defs)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = dir.Resolve("SITE-500.example.com")
	}
}

func BenchmarkMetrics_Observe_Parallel(b *testing.B) {
	var m xtenant.Metrics
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe("GET /", time.Millisecond, http.StatusOK)
		}
	})
}
