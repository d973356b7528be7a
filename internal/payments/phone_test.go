package payments

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"254712345678", "254712345678"},
		{"+254712345678", "254712345678"},
		{"0712345678", "254712345678"},
		{"712345678", "254712345678"},
		{"0110345678", "254110345678"},
		{"110345678", "254110345678"},
		{"+254 712 345 678", "254712345678"},
		{"0712-345-678", "254712345678"},
	}
	for _, tc := range cases {
		got, err := NormalizePhone(tc.in)
		if err != nil {
			t.Errorf("NormalizePhone(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizePhoneRejectsInvalid(t *testing.T) {
	for _, in := range []string{
		"",
		"12345",
		"254812345678",  // 8 is not a valid mobile prefix
		"25471234567",   // too short
		"2547123456789", // too long
		"0812345678",
		"not a number",
	} {
		if _, err := NormalizePhone(in); err == nil {
			t.Errorf("NormalizePhone(%q) must fail", in)
		}
	}
}
