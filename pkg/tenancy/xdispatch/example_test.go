package xdispatch_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/omeyang/xsite/pkg/tenancy/xdispatch"
	"github.com/omeyang/xsite/pkg/tenancy/xtenant"
)

func ExampleDispatcher_Middleware() {
	dir, err := xtenant.NewDirectory([]xtenant.Definition{
		{ID: 7, Domain: "shop.example", Settings: map[string]any{"site_name": "Shop"}},
	})
	if err != nil {
		panic(err)
	}

	h := xdispatch.New(dir, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t := xtenant.MustFromContext(r.Context())
		fmt.Fprintf(w, "%d %v", t.ID(), xtenant.Locals(r.Context())["site_name"])
	}))

	for _, host := range []string{"SHOP.example:8443", "other.example"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = host
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		fmt.Println(rec.Code, strings.TrimSpace(rec.Body.String()))
	}

	t, _ := dir.Lookup(7)
	fmt.Println("requests:", t.Metrics().Snapshot().TotalRequests)
	// Output:
	// 200 7 Shop
	// 404 no site configured for host "other.example"
	// requests: 1
}
