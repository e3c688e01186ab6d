package geoip

import (
	"errors"
	"testing"
)

func TestOpenWithoutPathDisablesLookups(t *testing.T) {
	r, err := Open("  ")
	if err != nil || r != nil {
		t.Fatalf("Open(empty) = %v, %v; want nil, nil", r, err)
	}
	if Lookup(r) != nil {
		t.Fatalf("Lookup(nil resolver) returned a func")
	}
	if _, err := r.CountryCode("203.0.113.4"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("CountryCode on nil resolver = %v, want ErrUnavailable", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close nil resolver: %v", err)
	}
}

func TestOpenMissingDatabase(t *testing.T) {
	if _, err := Open(t.TempDir() + "/missing.mmdb"); err == nil {
		t.Fatalf("Open(missing) succeeded")
	}
}

type fixedResolver string

func (f fixedResolver) CountryCode(string) (string, error) { return string(f), nil }

func TestLookupWrapsResolver(t *testing.T) {
	fn := Lookup(fixedResolver("ID"))
	if fn == nil {
		t.Fatalf("Lookup returned nil")
	}
	if got, _ := fn("203.0.113.4"); got != "ID" {
		t.Fatalf("lookup = %q", got)
	}
}
