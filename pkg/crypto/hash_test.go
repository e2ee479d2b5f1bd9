package crypto

import "testing"

func TestSum(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "empty input",
			input: []byte{},
			want:  "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262",
		},
		{
			name:  "hello",
			input: []byte("hello"),
			want:  "ea8f163db38682925e4491c5e58d4bb3506ef8c14eb78a86e908c5624a67200f",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sum(tt.input).String(); got != tt.want {
				t.Errorf("Sum(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestKey(t *testing.T) {
	a := Key("addr1qxyz")
	b := Key("addr1qxyz")
	c := Key("addr1qabc")
	if a != b {
		t.Error("Key should be deterministic")
	}
	if a == c {
		t.Error("different inputs should give different keys")
	}
	full := Sum([]byte("addr1qxyz"))
	for i := 0; i < KeySize; i++ {
		if a[i] != full[i] {
			t.Fatalf("Key byte %d = %x, want %x", i, a[i], full[i])
		}
	}
}
