package xtenant_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/omeyang/xsite/pkg/tenancy/xtenant"
)

// =============================================================================
// 域名解析 Fuzz 测试
// =============================================================================

func FuzzParseDomains(f *testing.F) {
	f.Add("a.com")
	f.Add("a.com, www.a.com")
	f.Add("A.COM,a.com,,  ")
	f.Add("")
	f.Add(",,,")
	f.Add("\tShop.Example \n")
	f.Add("例子.测试,xn--fsqu00a.xn--0zwm56d")
	f.Add("İSTANBUL.example")
	f.Add("\xff\xfe.com")

	f.Fuzz(func(t *testing.T, raw string) {
		domains := xtenant.ParseDomains(raw)

		for _, d := range domains {
			if d == "" {
				t.Fatalf("ParseDomains(%q) returned an empty domain", raw)
			}
			if strings.Contains(d, ",") {
				t.Fatalf("ParseDomains(%q) returned %q containing a comma", raw, d)
			}
			if got := xtenant.NormalizeHost(d); got != d {
				t.Fatalf("domain %q is not normalized, NormalizeHost gives %q", d, got)
			}
		}

		sorted := slices.Clone(domains)
		slices.Sort(sorted)
		if len(slices.Compact(sorted)) != len(domains) {
			t.Fatalf("ParseDomains(%q) returned duplicates: %q", raw, domains)
		}

		again := xtenant.ParseDomains(strings.Join(domains, ","))
		if !slices.Equal(again, domains) {
			t.Fatalf("reparse of %q = %q, want %q", raw, again, domains)
		}
	})
}

func FuzzNormalizeHost(f *testing.F) {
	f.Add("Example.COM")
	f.Add("  a.com  ")
	f.Add("")
	f.Add(" host ")

	f.Fuzz(func(t *testing.T, host string) {
		once := xtenant.NormalizeHost(host)
		if twice := xtenant.NormalizeHost(once); twice != once {
			t.Fatalf("NormalizeHost not idempotent for %q: %q then %q", host, once, twice)
		}
		if strings.TrimSpace(once) != once {
			t.Fatalf("NormalizeHost(%q) = %q keeps surrounding space", host, once)
		}
	})
}
