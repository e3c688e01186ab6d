package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"crowdfund/internal/domain"
)

// Decimals of the ledger's native currency.
const Decimals = 18

// TimeUnit is the unit the ledger stores deadlines in.
type TimeUnit string

const (
	UnitSeconds      TimeUnit = "s"
	UnitMilliseconds TimeUnit = "ms"
)

// ParseTimeUnit accepts "s"/"seconds" and "ms"/"milliseconds".
func ParseTimeUnit(raw string) (TimeUnit, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s", "sec", "seconds":
		return UnitSeconds, nil
	case "", "ms", "millis", "milliseconds":
		return UnitMilliseconds, nil
	}
	return "", fmt.Errorf("ledger: unknown time unit %q", raw)
}

// ToWei converts an ether amount to the ledger's smallest unit. Sub-wei
// fractions are truncated.
func ToWei(amount decimal.Decimal) *big.Int {
	return amount.Shift(Decimals).BigInt()
}

// FromWei converts a smallest-unit amount to ether.
func FromWei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -Decimals)
}

// EncodeTime converts t into the ledger's integer timestamp.
func (u TimeUnit) EncodeTime(t time.Time) *big.Int {
	if u == UnitSeconds {
		return big.NewInt(t.Unix())
	}
	return big.NewInt(t.UnixMilli())
}

// DecodeTime converts a raw ledger timestamp into a time.Time.
func (u TimeUnit) DecodeTime(v any) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	n, err := toBigInt(v)
	if err != nil {
		return time.Time{}, err
	}
	if !n.IsInt64() {
		return time.Time{}, fmt.Errorf("ledger: timestamp %s out of range", n)
	}
	if u == UnitSeconds {
		return time.Unix(n.Int64(), 0).UTC(), nil
	}
	return time.UnixMilli(n.Int64()).UTC(), nil
}

var errNilValue = errors.New("ledger: nil value")

// toBigInt accepts the integer encodings ledger responses come back in.
func toBigInt(v any) (*big.Int, error) {
	switch x := v.(type) {
	case nil:
		return nil, errNilValue
	case *big.Int:
		if x == nil {
			return nil, errNilValue
		}
		return new(big.Int).Set(x), nil
	case big.Int:
		return new(big.Int).Set(&x), nil
	case decimal.Decimal:
		if !x.IsInteger() {
			return nil, fmt.Errorf("ledger: non-integer amount %s", x)
		}
		return x.BigInt(), nil
	case json.Number:
		return parseBigInt(x.String())
	case string:
		return parseBigInt(x)
	case fmt.Stringer:
		return parseBigInt(x.String())
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != float64(int64(f)) {
			return nil, fmt.Errorf("ledger: non-integer amount %v", f)
		}
		return big.NewInt(int64(f)), nil
	}
	return nil, fmt.Errorf("ledger: unsupported numeric type %T", v)
}

func parseBigInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errNilValue
	}
	n, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("ledger: invalid integer %q", s)
	}
	return n, nil
}

// toAddress renders account identifiers in checksummed hex when possible.
func toAddress(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case common.Address:
		return x.Hex()
	case *common.Address:
		if x == nil {
			return ""
		}
		return x.Hex()
	case interface{ Hex() string }:
		return x.Hex()
	case string:
		s := strings.TrimSpace(x)
		if common.IsHexAddress(s) {
			return common.HexToAddress(s).Hex()
		}
		return s
	}
	return fmt.Sprint(v)
}

// CanonicalAddress validates and checksums an account identifier.
func CanonicalAddress(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return "", false
	}
	return common.HexToAddress(s).Hex(), true
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	}
	return fmt.Sprint(v)
}

func toBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case *bool:
		if x == nil {
			return false, false
		}
		return *x, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
	}
	return false, false
}

// record reads named fields from a ledger record, which may be a Go struct
// (ABI tuple unpacking) or a map keyed by the contract's field names.
type record struct {
	v reflect.Value
}

func newRecord(v any) record {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return record{}
		}
		rv = rv.Elem()
	}
	return record{v: rv}
}

func (r record) get(name string) (any, bool) {
	if !r.v.IsValid() {
		return nil, false
	}
	switch r.v.Kind() {
	case reflect.Struct:
		f := r.v.FieldByName(exportedName(name))
		if !f.IsValid() || !f.CanInterface() {
			return nil, false
		}
		return f.Interface(), true
	case reflect.Map:
		if r.v.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		for _, key := range []string{name, exportedName(name)} {
			val := r.v.MapIndex(reflect.ValueOf(key).Convert(r.v.Type().Key()))
			if val.IsValid() {
				return val.Interface(), true
			}
		}
	}
	return nil, false
}

func exportedName(name string) string {
	if name == "" {
		return name
	}
	runes := []rune(name)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// sliceOf flattens any slice or array value into []any.
func sliceOf(v any) ([]any, bool) {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return nil, true
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, true
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	// byte arrays are scalars (addresses, hashes), not lists.
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// decodeCampaign normalizes one raw ledger record into the canonical shape.
func decodeCampaign(raw any, pid int64, unit TimeUnit) (domain.Campaign, error) {
	rec := newRecord(raw)
	if !rec.v.IsValid() {
		return domain.Campaign{}, fmt.Errorf("ledger: empty campaign record %d", pid)
	}
	c := domain.Campaign{PID: pid, IsActive: true}
	if v, ok := rec.get("owner"); ok {
		c.Owner = toAddress(v)
	}
	if v, ok := rec.get("title"); ok {
		c.Title = toString(v)
	}
	if v, ok := rec.get("description"); ok {
		c.Description = toString(v)
	}
	if v, ok := rec.get("category"); ok {
		c.Category = strings.ToLower(strings.TrimSpace(toString(v)))
	}
	if v, ok := rec.get("image"); ok {
		c.Image = toString(v)
	}
	if v, ok := rec.get("target"); ok {
		wei, err := toBigInt(v)
		if err != nil {
			return c, fmt.Errorf("ledger: campaign %d target: %w", pid, err)
		}
		c.Target = FromWei(wei)
	}
	if v, ok := rec.get("amountCollected"); ok {
		wei, err := toBigInt(v)
		if err != nil {
			return c, fmt.Errorf("ledger: campaign %d amountCollected: %w", pid, err)
		}
		c.AmountCollected = FromWei(wei)
	}
	if v, ok := rec.get("deadline"); ok {
		t, err := unit.DecodeTime(v)
		if err != nil {
			return c, fmt.Errorf("ledger: campaign %d deadline: %w", pid, err)
		}
		c.Deadline = t
	}
	if v, ok := rec.get("isActive"); ok {
		if b, ok := toBool(v); ok {
			c.IsActive = b
		}
	}
	if v, ok := rec.get("donators"); ok {
		if items, ok := sliceOf(v); ok {
			c.Donors = len(items)
			c.DonorsKnown = true
		}
	}
	return c, nil
}

// isBlankCampaign detects the zero record some contracts return for unknown ids.
func isBlankCampaign(c domain.Campaign) bool {
	owner := strings.TrimSpace(c.Owner)
	zeroOwner := owner == "" || owner == (common.Address{}).Hex()
	return zeroOwner && c.Title == "" && c.Target.IsZero() && c.Deadline.IsZero()
}

// decodeDonations pairs the parallel donor and amount arrays returned by getDonators.
func decodeDonations(pid int64, donors, amounts any) ([]domain.Donation, int, error) {
	ds, ok := sliceOf(donors)
	if !ok {
		return nil, 0, fmt.Errorf("ledger: donors for %d is %T, want list", pid, donors)
	}
	as, ok := sliceOf(amounts)
	if !ok {
		return nil, 0, fmt.Errorf("ledger: amounts for %d is %T, want list", pid, amounts)
	}
	n := len(ds)
	if len(as) < n {
		n = len(as)
	}
	out := make([]domain.Donation, 0, n)
	for i := 0; i < n; i++ {
		wei, err := toBigInt(as[i])
		if err != nil {
			return nil, 0, fmt.Errorf("ledger: donation %d/%d amount: %w", pid, i, err)
		}
		out = append(out, domain.Donation{PID: pid, Donor: toAddress(ds[i]), Amount: FromWei(wei)})
	}
	return out, len(ds) - len(as), nil
}
