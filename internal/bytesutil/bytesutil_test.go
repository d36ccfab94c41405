package bytesutil

import (
	"strconv"
	. "testing"

	"github.com/mediocregopher/mediocre-go-lib/mrand"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInt(t *T) {
	tests := []struct {
		in     string
		exp    int64
		expErr bool
	}{
		{in: "0", exp: 0},
		{in: "5", exp: 5},
		{in: "+5", exp: 5},
		{in: "-1", exp: -1},
		{in: "1024", exp: 1024},
		{in: "9223372036854775807", exp: 1<<63 - 1},
		{in: "-9223372036854775808", exp: -1 << 63},
		{in: "9223372036854775808", expErr: true},
		{in: "-9223372036854775809", expErr: true},
		{in: "99999999999999999999999", expErr: true},
		{in: "", expErr: true},
		{in: "-", expErr: true},
		{in: "1a", expErr: true},
		{in: " 1", expErr: true},
	}

	for _, test := range tests {
		i, err := ParseInt([]byte(test.in))
		if test.expErr {
			assert.Error(t, err, "in:%q", test.in)
			continue
		}
		require.NoError(t, err, "in:%q", test.in)
		assert.Equal(t, test.exp, i, "in:%q", test.in)
	}

	// randomly generated values should agree with strconv
	for i := 0; i < 1000; i++ {
		n := int64(mrand.Intn(1<<31)) * int64(mrand.Intn(1<<31))
		if mrand.Intn(2) == 0 {
			n = -n
		}
		s := strconv.FormatInt(n, 10)
		got, err := ParseInt([]byte(s))
		require.NoError(t, err, "in:%q", s)
		assert.Equal(t, n, got, "in:%q", s)
	}
}

func TestParseUint(t *T) {
	ui, err := ParseUint([]byte("18446744073709551615"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<64-1), ui)

	_, err = ParseUint([]byte("18446744073709551616"))
	assert.Equal(t, ErrOverflow, err)

	_, err = ParseUint([]byte("-1"))
	assert.Error(t, err)
}

func TestIndexDelim(t *T) {
	assert.Equal(t, -1, IndexDelim(nil))
	assert.Equal(t, -1, IndexDelim([]byte("foo")))
	assert.Equal(t, -1, IndexDelim([]byte("foo\r")))
	assert.Equal(t, -1, IndexDelim([]byte("foo\n\r")))
	assert.Equal(t, 0, IndexDelim([]byte("\r\n")))
	assert.Equal(t, 3, IndexDelim([]byte("foo\r\nbar\r\n")))
	assert.Equal(t, 4, IndexDelim([]byte("foo\r\r\n")))
}

func TestExpand(t *T) {
	b := Expand(nil, 0)
	assert.NotNil(t, b)
	assert.Len(t, b, 0)

	b = Expand(make([]byte, 0, 8), 5)
	assert.Len(t, b, 5)
	assert.Equal(t, 8, cap(b))

	b = Expand(b, 16)
	assert.Len(t, b, 16)
}

func TestClone(t *T) {
	orig := []byte("hello")
	c := Clone(orig)
	assert.Equal(t, orig, c)
	orig[0] = 'j'
	assert.Equal(t, []byte("hello"), c)

	assert.NotNil(t, Clone(nil))
}
