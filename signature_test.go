package dbus

import "testing"

func TestParseSignatureRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"y",
		"ay",
		"a{sv}",
		"(ii)",
		"a(oa{sv})",
		"sii",
	}
	for _, s := range cases {
		sig, err := ParseSignature(s)
		if err != nil {
			t.Fatalf("ParseSignature(%q): %v", s, err)
		}
		if got := sig.String(); got != s {
			t.Errorf("ParseSignature(%q).String() = %q", s, got)
		}
	}
}

func TestParseSignatureInvalid(t *testing.T) {
	cases := []string{
		"(",
		"{sv}",
		"{as}",
		"{vs}",
		"z",
		"a",
	}
	for _, s := range cases {
		if _, err := ParseSignature(s); err == nil {
			t.Errorf("ParseSignature(%q) succeeded, want error", s)
		}
	}
}

func TestSignatureAlign(t *testing.T) {
	cases := []struct {
		sig  Signature
		want int
	}{
		{SigByte, 1},
		{SigVariant, 1},
		{SigInt16, 2},
		{SigUint32, 4},
		{SigString, 4},
		{Array(SigByte), 4},
		{SigInt64, 8},
		{Struct(SigByte), 8},
		{DictEntry(SigString, SigVariant), 8},
	}
	for _, c := range cases {
		if got := c.sig.Align(); got != c.want {
			t.Errorf("%s.Align() = %d, want %d", c.sig, got, c.want)
		}
	}
}

func TestSignatureEqual(t *testing.T) {
	a := Array(Struct(SigString, SigInt32))
	b := Array(Struct(SigString, SigInt32))
	c := Array(Struct(SigString, SigInt64))

	if !a.Equal(b) {
		t.Errorf("a.Equal(b) = false, want true")
	}
	if a.Equal(c) {
		t.Errorf("a.Equal(c) = true, want false")
	}
}

func TestDictEntryKeyMustBeBasic(t *testing.T) {
	_, err := ParseSignature("a{(i)s}")
	if err == nil {
		t.Fatal("expected error for struct dict-entry key")
	}
}
