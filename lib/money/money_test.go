package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubNegativeResult(t *testing.T) {
	_, err := New(100).Sub(New(101))
	assert.Equal(t, ErrNegativeResult, err)

	r, err := New(100).Sub(New(100))
	assert.Nil(t, err)
	assert.True(t, r.IsZero())
}

func TestMulBpsTruncates(t *testing.T) {
	// 2% of 99 stroops is 1.98, truncated to 1
	assert.Equal(t, "1", New(99).MulBps(200).String())
	assert.Equal(t, "20", New(1000).MulBps(200).String())
	assert.Equal(t, "0", New(49).MulBps(200).String())
}

func TestMulDivNoPrecisionLoss(t *testing.T) {
	// tokens * price / totalTokens with values beyond int64 intermediate range
	tokens := MustFromString("9000000000000000000")
	price := MustFromString("9500000000000000000")
	total := MustFromString("10000000000000000000")

	payment, err := tokens.MulDiv(price, total)
	require.Nil(t, err)
	assert.Equal(t, "8550000000000000000", payment.String())

	_, err = tokens.MulDiv(price, Zero())
	assert.NotNil(t, err)
}

func TestSplitSumsExactly(t *testing.T) {
	total := New(1000)
	weights := []Money{New(3), New(3), New(4)}

	parts, err := Split(total, weights)
	require.Nil(t, err)
	require.Len(t, parts, 3)

	sum := Zero()
	for _, p := range parts {
		sum = sum.Add(p)
	}
	assert.Equal(t, 0, sum.Cmp(total))
}

func TestSplitRemainderGoesToLastParty(t *testing.T) {
	// 100 over three equal weights truncates to 33 + 33, last gets 34
	parts, err := Split(New(100), []Money{New(1), New(1), New(1)})
	require.Nil(t, err)
	assert.Equal(t, "33", parts[0].String())
	assert.Equal(t, "33", parts[1].String())
	assert.Equal(t, "34", parts[2].String())
}

func TestSplitRejectsZeroWeights(t *testing.T) {
	_, err := Split(New(100), []Money{})
	assert.NotNil(t, err)
	_, err = Split(New(100), []Money{Zero(), Zero()})
	assert.NotNil(t, err)
}

func TestDivFloors(t *testing.T) {
	assert.Equal(t, "1000", New(2001).Div(2).String())
	assert.Equal(t, "1000", New(2000).Div(2).String())
}

func TestJSONRoundTrip(t *testing.T) {
	in := MustFromString("10000000000000")
	b, err := json.Marshal(in)
	require.Nil(t, err)
	assert.Equal(t, `"10000000000000"`, string(b))

	var out Money
	require.Nil(t, json.Unmarshal(b, &out))
	assert.Equal(t, 0, in.Cmp(out))
}

func TestFromStringRejectsGarbage(t *testing.T) {
	_, err := FromString("12.5")
	assert.NotNil(t, err)
	_, err = FromString("-10")
	assert.NotNil(t, err)
	_, err = FromString("")
	assert.NotNil(t, err)
}

func TestScanVariants(t *testing.T) {
	var m Money
	require.Nil(t, m.Scan(int64(42)))
	assert.Equal(t, "42", m.String())
	require.Nil(t, m.Scan([]byte("10000000")))
	assert.Equal(t, "10000000", m.String())
	require.Nil(t, m.Scan(nil))
	assert.True(t, m.IsZero())
}
