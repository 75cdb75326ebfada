package money

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math/big"
)

// ErrNegativeResult is returned by Sub when the result would go below zero.
// Token and stroop balances are never negative anywhere in the ledger.
var ErrNegativeResult = errors.New("money: negative result")

// Money is an exact integer amount denominated in the smallest unit of the
// underlying asset (stroops, 10^-7 of the face unit). It is also used for
// token quantities, which are minted 1:1 against stroops.
//
// The zero value is 0. Money never passes through floating point and is
// serialized as a plain decimal string both in JSON and in the database.
type Money struct {
	v *big.Int
}

func Zero() Money {
	return Money{}
}

func New(v int64) Money {
	return Money{v: big.NewInt(v)}
}

// FromString parses a non-negative decimal integer string.
func FromString(s string) (Money, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Money{}, fmt.Errorf("money: invalid amount %q", s)
	}
	if v.Sign() < 0 {
		return Money{}, fmt.Errorf("money: negative amount %q", s)
	}
	return Money{v: v}, nil
}

// MustFromString is FromString for literals in tests and seeds.
func MustFromString(s string) Money {
	m, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) bigint() *big.Int {
	if m.v == nil {
		return new(big.Int)
	}
	return m.v
}

func (m Money) Add(o Money) Money {
	return Money{v: new(big.Int).Add(m.bigint(), o.bigint())}
}

func (m Money) Sub(o Money) (Money, error) {
	r := new(big.Int).Sub(m.bigint(), o.bigint())
	if r.Sign() < 0 {
		return Money{}, ErrNegativeResult
	}
	return Money{v: r}, nil
}

// Mul returns m * o. Used for per-token prices, payment = tokens * price.
func (m Money) Mul(o Money) Money {
	return Money{v: new(big.Int).Mul(m.bigint(), o.bigint())}
}

// MulBps returns m * bps / 10000, truncating toward zero.
func (m Money) MulBps(bps int64) Money {
	r := new(big.Int).Mul(m.bigint(), big.NewInt(bps))
	r.Quo(r, big.NewInt(10000))
	return Money{v: r}
}

// MulDiv returns m * num / den with exact intermediate precision,
// truncating toward zero. Used for price-proportional amounts such as
// payment = tokens * price / totalTokens.
func (m Money) MulDiv(num, den Money) (Money, error) {
	if den.IsZero() {
		return Money{}, errors.New("money: division by zero")
	}
	r := new(big.Int).Mul(m.bigint(), num.bigint())
	r.Quo(r, den.bigint())
	return Money{v: r}, nil
}

// Div returns m / d, truncating toward zero.
func (m Money) Div(d int64) Money {
	r := new(big.Int).Quo(m.bigint(), big.NewInt(d))
	return Money{v: r}
}

func (m Money) Cmp(o Money) int {
	return m.bigint().Cmp(o.bigint())
}

func (m Money) IsZero() bool {
	return m.bigint().Sign() == 0
}

func (m Money) IsPositive() bool {
	return m.bigint().Sign() > 0
}

func (m Money) String() string {
	return m.bigint().String()
}

// Int64 returns the amount as an int64. Only valid for amounts the caller
// knows are small (basis points, percentages); large amounts overflow.
func (m Money) Int64() int64 {
	return m.bigint().Int64()
}

// Split divides total across len(weights) parts proportionally by weight.
// Each part i gets total * weights[i] / weightSum truncated, and the last
// part absorbs the truncation remainder so the parts always sum to total.
// The caller orders the weights so the designated remainder party
// (the supplier, in settlement distribution) comes last.
func Split(total Money, weights []Money) ([]Money, error) {
	if len(weights) == 0 {
		return nil, errors.New("money: split over zero parts")
	}
	sum := Zero()
	for _, w := range weights {
		sum = sum.Add(w)
	}
	if !sum.IsPositive() {
		return nil, errors.New("money: split weights sum to zero")
	}
	parts := make([]Money, len(weights))
	allocated := Zero()
	for i, w := range weights[:len(weights)-1] {
		p, err := total.MulDiv(w, sum)
		if err != nil {
			return nil, err
		}
		parts[i] = p
		allocated = allocated.Add(p)
	}
	last, err := total.Sub(allocated)
	if err != nil {
		return nil, err
	}
	parts[len(parts)-1] = last
	return parts, nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer, storing the amount as a numeric string.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan implements sql.Scanner for numeric, bigint and text columns.
func (m *Money) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = Zero()
		return nil
	case int64:
		*m = New(v)
		return nil
	case []byte:
		return m.scanString(string(v))
	case string:
		return m.scanString(v)
	default:
		return fmt.Errorf("money: cannot scan %T", src)
	}
}

func (m *Money) scanString(s string) error {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return fmt.Errorf("money: cannot scan %q", s)
	}
	*m = Money{v: v}
	return nil
}
