package pubkey

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sbfre/internal/elfx"
	"sbfre/internal/elfx/elftest"
)

const tokenProgram = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

func TestSystemProgramEncoding(t *testing.T) {
	var zero Key
	assert.Equal(t, strings.Repeat("1", 32), zero.String())
}

func TestParseRoundTrip(t *testing.T) {
	k, err := Parse(tokenProgram)
	require.NoError(t, err)
	assert.Equal(t, tokenProgram, k.String())

	_, err = Parse("1111")
	assert.ErrorIs(t, err, ErrKeyLength)

	_, err = Parse("not-base58-0OIl")
	assert.Error(t, err)
}

func TestEncodingDeterministicAndInjective(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		var a Key
		rng.Read(a[:])
		assert.Equal(t, a.String(), a.String())

		b := a
		b[rng.Intn(Size)] ^= byte(rng.Intn(255) + 1)
		assert.NotEqual(t, a.String(), b.String(), "collision for %x / %x", a, b)

		back, err := Parse(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, back)
	}
}

func keyImage(t *testing.T) (*elfx.Image, elfx.Section, Key) {
	t.Helper()
	tok, err := Parse(tokenProgram)
	require.NoError(t, err)

	data := append(bytes.Repeat([]byte{0}, Size), tok[:]...)
	data = append(data, tok[:]...)
	img, err := elfx.Parse(elftest.Build(elftest.Rodata(0x20900, data)))
	require.NoError(t, err)
	sec, err := img.Section(".rodata")
	require.NoError(t, err)
	return img, sec, tok
}

func TestExtractContinuesPastFailures(t *testing.T) {
	img, sec, tok := keyImage(t)

	addrs := []uint64{0x20900, 0x20920, 0x10000, 0x20950, 0x20940}
	res := Extract(img, sec, addrs)
	require.Len(t, res, len(addrs))

	for i, r := range res {
		assert.Equal(t, addrs[i], r.Addr)
	}
	assert.True(t, res[0].OK())
	assert.Equal(t, strings.Repeat("1", 32), res[0].Key.String())
	assert.Equal(t, tok, res[1].Key)
	assert.ErrorIs(t, res[2].Err, elfx.ErrOutOfRange)
	assert.ErrorIs(t, res[3].Err, elfx.ErrOutOfRange, "key crosses section end")
	assert.Equal(t, tok, res[4].Key)
}

func TestUnique(t *testing.T) {
	img, sec, tok := keyImage(t)

	res := Unique(Extract(img, sec, []uint64{0x20920, 0x10, 0x20940, 0x20900}))
	require.Len(t, res, 3)
	assert.Equal(t, uint64(0x20920), res[0].Addr)
	assert.Equal(t, tok, res[0].Key)
	assert.False(t, res[1].OK())
	assert.Equal(t, uint64(0x20900), res[2].Addr)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		label string
		want  Category
	}{
		{"Raydium AMM V4", CategoryDEX},
		{"Orca Whirlpool", CategoryDEX},
		{"SPL Token Program", CategoryInfra},
		{"System Program", CategoryInfra},
		{"Wrapped SOL (Native Mint)", CategoryInfra},
		{"unknown program", CategoryUnknown},
		{"Empty account (off-curve) - PDA/seed", CategoryNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.label), tt.label)
	}
}

func TestLabelsCounts(t *testing.T) {
	labels := Labels{
		"a": "Raydium AMM V4",
		"b": "Orca Whirlpool",
		"c": "System Program",
		"d": "unknown program",
		"e": "Empty account (on-curve) - PDA/seed",
	}
	got := labels.Counts()
	assert.Equal(t, 2, got[CategoryDEX])
	assert.Equal(t, 1, got[CategoryInfra])
	assert.Equal(t, 1, got[CategoryUnknown])
	assert.Equal(t, 1, got[CategoryNone])
}

func TestLabels(t *testing.T) {
	system := strings.Repeat("1", 32)
	labels := Labels{
		tokenProgram: "SPL Token Program",
		system:       "System Program",
	}
	require.NoError(t, labels.Validate())

	tok, err := Parse(tokenProgram)
	require.NoError(t, err)
	name, ok := labels.Lookup(tok)
	assert.True(t, ok)
	assert.Equal(t, "SPL Token Program", name)

	var other Key
	other[0] = 1
	_, ok = labels.Lookup(other)
	assert.False(t, ok)

	assert.Equal(t, []string{tokenProgram, system}, labels.Keys())

	bad := Labels{"1111": "short"}
	assert.ErrorIs(t, bad.Validate(), ErrKeyLength)
}
