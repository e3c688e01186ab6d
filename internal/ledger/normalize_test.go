package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"crowdfund/internal/domain"
)

func TestToBigIntEncodings(t *testing.T) {
	want := big.NewInt(1500)
	tests := []struct {
		name string
		in   any
	}{
		{"pointer", big.NewInt(1500)},
		{"value", *big.NewInt(1500)},
		{"int", 1500},
		{"uint64", uint64(1500)},
		{"decimal string", "1500"},
		{"hex string", "0x5dc"},
		{"json number", json.Number("1500")},
		{"decimal", decimal.NewFromInt(1500)},
		{"float", float64(1500)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := toBigInt(tc.in)
			if err != nil {
				t.Fatalf("toBigInt(%v): %v", tc.in, err)
			}
			if got.Cmp(want) != 0 {
				t.Fatalf("toBigInt(%v) = %s", tc.in, got)
			}
		})
	}

	for _, bad := range []any{nil, "", "abc", 1.5, struct{}{}} {
		if _, err := toBigInt(bad); err == nil {
			t.Fatalf("toBigInt(%#v) expected error", bad)
		}
	}
}

func TestWeiConversion(t *testing.T) {
	wei := ToWei(decimal.RequireFromString("1.25"))
	if wei.String() != "1250000000000000000" {
		t.Fatalf("ToWei = %s", wei)
	}
	if got := FromWei(wei); !got.Equal(decimal.RequireFromString("1.25")) {
		t.Fatalf("FromWei = %s", got)
	}
	if !FromWei(nil).IsZero() {
		t.Fatal("FromWei(nil) should be zero")
	}
}

func TestTimeUnits(t *testing.T) {
	at := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)
	for _, unit := range []TimeUnit{UnitSeconds, UnitMilliseconds} {
		got, err := unit.DecodeTime(unit.EncodeTime(at))
		if err != nil {
			t.Fatalf("%s: %v", unit, err)
		}
		if !got.Equal(at) {
			t.Fatalf("%s round trip = %s", unit, got)
		}
	}
	if got, _ := UnitSeconds.DecodeTime("1700000000"); got.Unix() != 1700000000 {
		t.Fatalf("seconds string decoded to %s", got)
	}
	if _, err := ParseTimeUnit("weeks"); err == nil {
		t.Fatal("expected unknown unit error")
	}
	if u, _ := ParseTimeUnit(""); u != UnitMilliseconds {
		t.Fatalf("default unit = %q", u)
	}
}

func TestDecodeCampaignFromMap(t *testing.T) {
	deadline := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	raw := map[string]any{
		"owner":           "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd",
		"title":           "Library",
		"description":     "Books",
		"target":          "2000000000000000000",
		"amountCollected": json.Number("500000000000000000"),
		"deadline":        fmt.Sprint(deadline.UnixMilli()),
		"image":           "https://example.com/x.png",
		"donators":        []any{"0x01", "0x02"},
	}
	c, err := decodeCampaign(raw, 4, UnitMilliseconds)
	if err != nil {
		t.Fatalf("decodeCampaign: %v", err)
	}
	if c.PID != 4 || c.Title != "Library" || !c.IsActive {
		t.Fatalf("unexpected campaign %+v", c)
	}
	if c.Owner != common.HexToAddress("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd").Hex() {
		t.Fatalf("owner not checksummed: %s", c.Owner)
	}
	if !c.Target.Equal(decimal.NewFromInt(2)) || !c.AmountCollected.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("amounts: target=%s collected=%s", c.Target, c.AmountCollected)
	}
	if !c.Deadline.Equal(deadline) {
		t.Fatalf("deadline = %s", c.Deadline)
	}
	if c.Donors != 2 || !c.DonorsKnown {
		t.Fatalf("donors = %d known=%v", c.Donors, c.DonorsKnown)
	}
}

func TestDecodeCampaignFromStruct(t *testing.T) {
	type tuple struct {
		Owner           common.Address
		Title           string
		Target          *big.Int
		AmountCollected *big.Int
		Deadline        *big.Int
		IsActive        bool
	}
	raw := tuple{
		Owner:           common.HexToAddress("0x01"),
		Title:           "Shelter",
		Target:          big.NewInt(1e18),
		AmountCollected: big.NewInt(0),
		Deadline:        big.NewInt(1_800_000_000),
		IsActive:        false,
	}
	c, err := decodeCampaign(&raw, 0, UnitSeconds)
	if err != nil {
		t.Fatalf("decodeCampaign: %v", err)
	}
	if c.IsActive {
		t.Fatal("isActive=false should be kept")
	}
	if c.DonorsKnown {
		t.Fatal("record without donators should leave the count unknown")
	}
	if c.Deadline.Unix() != 1_800_000_000 {
		t.Fatalf("deadline = %s", c.Deadline)
	}
}

func TestDecodeDonationsPairsToShorter(t *testing.T) {
	donors := []common.Address{common.HexToAddress("0x01"), common.HexToAddress("0x02"), common.HexToAddress("0x03")}
	amounts := []*big.Int{big.NewInt(1e18), big.NewInt(2e18)}
	got, skew, err := decodeDonations(1, donors, amounts)
	if err != nil {
		t.Fatalf("decodeDonations: %v", err)
	}
	if len(got) != 2 || skew != 1 {
		t.Fatalf("len=%d skew=%d", len(got), skew)
	}
	if !got[1].Amount.Equal(decimal.NewFromInt(2)) || got[1].PID != 1 {
		t.Fatalf("unexpected donation %+v", got[1])
	}
}

func TestNormalizeErrorMapping(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		kind  domain.Kind
		cause domain.Cause
	}{
		{"user rejected", &ProviderError{Code: CodeUserRejected}, domain.KindTransactionRejected, domain.CauseNone},
		{"unauthorized", &ProviderError{Code: CodeUnauthorized}, domain.KindTransactionFailed, domain.CauseUnauthorized},
		{"unsupported", &ProviderError{Code: CodeUnsupportedMethod}, domain.KindTransactionFailed, domain.CauseUnsupportedMethod},
		{"internal", &ProviderError{Code: CodeInternalRPC}, domain.KindTransactionFailed, domain.CauseInternalNodeError},
		{"funds", &ProviderError{Code: CodeInsufficientFunds, Message: "insufficient funds"}, domain.KindTransactionFailed, domain.CauseInsufficientFunds},
		{"resource", &ProviderError{Code: CodeResourceUnavailable}, domain.KindTransactionFailed, domain.CauseResourceUnavailable},
		{"server revert", &ProviderError{Code: CodeInsufficientFunds, Message: "execution reverted"}, domain.KindTransactionFailed, domain.CauseReverted},
		{"not owner", &ProviderError{Code: 3, Message: "execution reverted: Only owner can delete"}, domain.KindNotOwner, domain.CauseNone},
		{"plain funds message", errors.New("insufficient funds for transfer"), domain.KindTransactionFailed, domain.CauseInsufficientFunds},
		{"deadline", fmt.Errorf("wait: %w", context.DeadlineExceeded), domain.KindTransactionFailed, domain.CauseNetwork},
		{"other", errors.New("boom"), domain.KindTransactionFailed, domain.CauseNone},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := normalizeError("op", tc.err)
			e, ok := domain.AsError(err)
			if !ok {
				t.Fatalf("not normalized: %v", err)
			}
			if e.Kind != tc.kind || e.Cause != tc.cause {
				t.Fatalf("got %s/%s, want %s/%s", e.Kind, e.Cause, tc.kind, tc.cause)
			}
			if !errors.Is(err, tc.err) {
				t.Fatal("original error should stay attached")
			}
		})
	}

	already := domain.Unavailable("op", "gone")
	if normalizeError("other", already) != error(already) {
		t.Fatal("normalized errors should pass through")
	}
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := newKeyedMutex()
	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock(7)
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("expected exclusive access, saw %d holders", maxSeen)
	}
	if len(km.locks) != 0 {
		t.Fatalf("expected lock table to drain, %d left", len(km.locks))
	}
}
