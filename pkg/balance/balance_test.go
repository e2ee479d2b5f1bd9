package balance

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

// must unwraps a (Balance, error) pair. Only use it on operations the test
// expects to succeed.
func must(b Balance, err error) Balance {
	if err != nil {
		panic(fmt.Sprintf("unexpected error: %v", err))
	}
	return b
}

func TestBalance_ZeroValueIsEmpty(t *testing.T) {
	var b Balance
	if !b.IsEmpty() {
		t.Error("zero-value Balance should be empty")
	}
	if b.Base() != 0 || b.TokenCount() != 0 {
		t.Errorf("zero Balance = %d base, %d tokens", b.Base(), b.TokenCount())
	}
	if !b.Equal(New()) {
		t.Error("zero value should equal New()")
	}
}

func TestBalance_AddBaseAdditive(t *testing.T) {
	pairs := [][2]int64{{0, 0}, {1, 2}, {1500000, 1500000}, {0, 7}, {123456789, 987654321}}
	for _, p := range pairs {
		a, b := p[0], p[1]
		twice := must(must(New().AddBase(a)).AddBase(b))
		once := must(New().AddBase(a + b))
		if !twice.Equal(once) {
			t.Errorf("AddBase(%d).AddBase(%d) = %s, want %s", a, b, twice, once)
		}
	}
}

func TestBalance_AddTokenAdditive(t *testing.T) {
	b := must(New().AddToken("p.t", 3))
	b = must(b.AddToken("p.t", 4))
	if got := b.Quantity("p.t"); got != 7 {
		t.Errorf("quantity = %d, want 7", got)
	}
	tok := b.Token("p.t")
	if tok.Policy != "p" || tok.Name != "t" {
		t.Errorf("token = %+v, want policy p name t", tok)
	}
}

func TestBalance_AddRemoveRoundTrip(t *testing.T) {
	b := must(New().AddToken("12345.tokenA", 5))
	b = must(b.RemoveToken("12345.tokenA", 5))
	if b.Has("12345.tokenA") {
		t.Error("token entry should be removed when quantity reaches zero")
	}
	if b.TokenCount() != 0 {
		t.Errorf("token count = %d, want 0", b.TokenCount())
	}
}

func TestBalance_RemoveTokenCreatesNegativeEntry(t *testing.T) {
	b := must(New().RemoveToken("56789.tokenA", 2))
	if got := b.Quantity("56789.tokenA"); got != -2 {
		t.Errorf("quantity = %d, want -2", got)
	}
	b = must(b.AddToken("56789.tokenA", 2))
	if b.Has("56789.tokenA") {
		t.Error("entry should vanish once the burn is balanced")
	}
}

func TestBalance_SetTokenOverwrites(t *testing.T) {
	b := must(New().AddToken("p.t", 10))
	b = must(b.SetToken("p.t", 3))
	if got := b.Quantity("p.t"); got != 3 {
		t.Errorf("quantity = %d, want 3", got)
	}
	b = must(b.SetToken("p.u", 1))
	if got := b.Quantity("p.u"); got != 1 {
		t.Errorf("new entry quantity = %d, want 1", got)
	}
}

func TestBalance_InvalidArguments(t *testing.T) {
	b := must(New().AddBase(100))
	b = must(b.AddToken("p.t", 1))

	tests := []struct {
		name string
		fn   func() (Balance, error)
	}{
		{"add token zero", func() (Balance, error) { return b.AddToken("p.t", 0) }},
		{"add token negative", func() (Balance, error) { return b.AddToken("p.t", -1) }},
		{"remove token zero", func() (Balance, error) { return b.RemoveToken("p.t", 0) }},
		{"set token zero", func() (Balance, error) { return b.SetToken("p.t", 0) }},
		{"add token no separator", func() (Balance, error) { return b.AddToken("nodot", 1) }},
		{"remove token no separator", func() (Balance, error) { return b.RemoveToken("nodot", 1) }},
		{"set token no separator", func() (Balance, error) { return b.SetToken("nodot", 1) }},
		{"add base negative", func() (Balance, error) { return b.AddBase(-1) }},
		{"remove base negative", func() (Balance, error) { return b.RemoveBase(-1) }},
		{"set base negative", func() (Balance, error) { return b.SetBase(-1) }},
		{"add scaled negative", func() (Balance, error) { return b.AddScaled(-0.5) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn()
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
			// The original is never touched.
			if b.Base() != 100 || b.Quantity("p.t") != 1 || b.TokenCount() != 1 {
				t.Errorf("receiver mutated: %s", b)
			}
		})
	}
}

func TestBalance_Immutability(t *testing.T) {
	orig := must(New().AddToken("p.a", 1))
	_ = must(orig.AddToken("p.a", 5))
	_ = must(orig.AddToken("p.b", 5))
	_ = must(orig.RemoveToken("p.a", 1))
	_ = must(orig.SetToken("p.a", 9))
	_ = must(orig.AddBase(10))
	_ = orig.Combine(orig)

	if orig.Quantity("p.a") != 1 || orig.TokenCount() != 1 || orig.Base() != 0 {
		t.Errorf("original mutated: %s", orig)
	}
}

func TestBalance_RemoveBaseMayGoNegative(t *testing.T) {
	b := must(New().AddBase(100))
	b = must(b.RemoveBase(250))
	if b.Base() != -150 {
		t.Errorf("base = %d, want -150", b.Base())
	}
	if err := b.Validate(); !errors.Is(err, ErrNegativeBalance) {
		t.Errorf("Validate: expected ErrNegativeBalance, got %v", err)
	}
}

func TestBalance_Validate(t *testing.T) {
	ok := must(New().AddBase(5))
	ok = must(ok.AddToken("p.a", 1))
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	burn := must(ok.RemoveToken("p.b", 1))
	if err := burn.Validate(); !errors.Is(err, ErrNegativeBalance) {
		t.Errorf("expected ErrNegativeBalance for negative token, got %v", err)
	}
}

func TestBalance_SetBase(t *testing.T) {
	b := must(New().AddBase(10))
	b = must(b.SetBase(3))
	if b.Base() != 3 {
		t.Errorf("base = %d, want 3", b.Base())
	}
}

func TestBalance_TokensOnly(t *testing.T) {
	b := must(New().AddBase(9000000))
	b = must(b.AddToken("p.a", 4))

	blank := b.TokensOnly()
	if blank.Base() != 0 || blank.Quantity("p.a") != 4 {
		t.Errorf("TokensOnly() = %s, want 0+\"4 p.a\"", blank)
	}
	if b.Base() != 9000000 {
		t.Errorf("original base changed to %d", b.Base())
	}

	neg := must(New().RemoveBase(5))
	if neg.TokensOnly().Base() != 0 {
		t.Error("TokensOnly() should clear a negative base too")
	}
}

func TestBalance_Size(t *testing.T) {
	b := New()
	if b.Size() != 1 {
		t.Errorf("empty Size() = %d, want 1", b.Size())
	}
	b = must(b.AddToken("p.a", 1))
	b = must(b.AddToken("p.b", 1))
	b = must(b.AddToken("p.a", 1))
	if b.Size() != 3 {
		t.Errorf("Size() = %d, want 3", b.Size())
	}
}

func TestBalance_CombineSelf(t *testing.T) {
	a := must(New().AddBase(1500000))
	sum := a.Combine(a)
	if sum.Base() != 3000000 {
		t.Errorf("base = %d, want 3000000", sum.Base())
	}
	want := must(New().AddBase(3000000))
	if !sum.Equal(want) {
		t.Errorf("sum = %s, want %s", sum, want)
	}
}

func TestBalance_CombineLaws(t *testing.T) {
	a := must(New().AddBase(10))
	a = must(a.AddToken("p.x", 2))
	a = must(a.AddToken("p.only_a", 7))

	b := must(New().AddBase(5))
	b = must(b.AddToken("p.x", 3))
	b = must(b.RemoveToken("p.only_b", 4))

	c := must(New().AddBase(1))
	c = must(c.RemoveToken("p.x", 5))

	ab := a.Combine(b)
	if !ab.Equal(b.Combine(a)) {
		t.Errorf("combine not commutative: %s vs %s", ab, b.Combine(a))
	}
	if !ab.Combine(c).Equal(a.Combine(b.Combine(c))) {
		t.Error("combine not associative")
	}

	if ab.Base() != 15 {
		t.Errorf("base = %d, want 15", ab.Base())
	}
	if got := ab.Quantity("p.x"); got != 5 {
		t.Errorf("p.x = %d, want 5", got)
	}
	if got := ab.Quantity("p.only_a"); got != 7 {
		t.Errorf("p.only_a = %d, want 7", got)
	}
	if got := ab.Quantity("p.only_b"); got != -4 {
		t.Errorf("p.only_b = %d, want -4", got)
	}

	// p.x cancels out and must not linger as a zero entry.
	abc := ab.Combine(c)
	if abc.Has("p.x") {
		t.Error("cancelled entry should be dropped")
	}
}

func TestBalance_Equal(t *testing.T) {
	a := must(New().AddToken("p.a", 1))
	b := must(New().AddToken("p.b", 1))
	if a.Equal(b) {
		t.Error("balances with different token keys should differ")
	}
	c := must(New().AddToken("p.a", 2))
	if a.Equal(c) {
		t.Error("balances with different quantities should differ")
	}
	d := must(New().AddBase(1))
	if New().Equal(d) {
		t.Error("balances with different base should differ")
	}
}

func TestBalance_String(t *testing.T) {
	tests := []struct {
		name  string
		build func() Balance
		want  string
	}{
		{
			name:  "base only",
			build: func() Balance { return must(New().AddBase(1500000)) },
			want:  "1500000",
		},
		{
			name: "one token",
			build: func() Balance {
				b := must(New().AddBase(1500000))
				return must(b.AddToken("12345.tokenA", 2))
			},
			want: `1500000+"2 12345.tokenA"`,
		},
		{
			name: "same token added twice",
			build: func() Balance {
				b := must(New().AddBase(1500000))
				b = must(b.AddToken("12345.tokenA", 2))
				return must(b.AddToken("12345.tokenA", 2))
			},
			want: `1500000+"4 12345.tokenA"`,
		},
		{
			name: "sorted regardless of insertion order",
			build: func() Balance {
				b := must(New().AddBase(1500000))
				b = must(b.AddToken("56789.tokenA", 2))
				return must(b.AddToken("12345.tokenA", 2))
			},
			want: `1500000+"2 12345.tokenA + 2 56789.tokenA"`,
		},
		{
			name: "negative quantity for burning",
			build: func() Balance {
				b := must(New().AddBase(1500000))
				b = must(b.AddToken("12345.tokenA", 2))
				return must(b.RemoveToken("56789.tokenA", 2))
			},
			want: `1500000+"2 12345.tokenA + -2 56789.tokenA"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.build().String(); got != tt.want {
				t.Errorf("String() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBalance_ArgForms(t *testing.T) {
	b := must(New().AddBase(2000000))
	b = must(b.AddToken("pol.B", 1))
	b = must(b.RemoveToken("pol.A", 3))

	if got, want := b.Arg(), "2000000+-3 pol.A + 1 pol.B"; got != want {
		t.Errorf("Arg() = %q, want %q", got, want)
	}
	if got, want := b.MintString(), `"-3 pol.A + 1 pol.B"`; got != want {
		t.Errorf("MintString() = %q, want %q", got, want)
	}
	if got, want := b.MintArg(), "-3 pol.A + 1 pol.B"; got != want {
		t.Errorf("MintArg() = %q, want %q", got, want)
	}
}

func TestBalance_TokensSorted(t *testing.T) {
	b := must(New().AddToken("z.z", 1))
	b = must(b.AddToken("a.a", 2))
	b = must(b.AddToken("m.m", 3))
	toks := b.Tokens()
	if len(toks) != 3 {
		t.Fatalf("len = %d, want 3", len(toks))
	}
	want := []string{"a.a", "m.m", "z.z"}
	for i, tok := range toks {
		if tok.ID().String() != want[i] {
			t.Errorf("Tokens()[%d] = %s, want %s", i, tok.ID(), want[i])
		}
	}
}

func TestBalance_GetTokenAbsent(t *testing.T) {
	tok := New().Token("p.none")
	if tok != (Token{}) {
		t.Errorf("absent token = %+v, want zero Token", tok)
	}
}

func TestBalance_JSON(t *testing.T) {
	b := must(New().AddBase(42))
	b = must(b.AddToken("p.a", 3))
	b = must(b.RemoveToken("p.b", 1))

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Balance
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !back.Equal(b) {
		t.Errorf("decoded %s, want %s", back, b)
	}
	if back.Token("p.a").Policy != "p" {
		t.Error("decoded token should carry its policy id")
	}
}
