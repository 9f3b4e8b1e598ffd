package identity

import "testing"

func TestFullName(t *testing.T) {
	cases := []struct {
		first, last, want string
	}{
		{"Jo", "Bloggs", "Jo Bloggs"},
		{"Jo", "", "Jo"},
		{"", "Bloggs", "Bloggs"},
		{"", "", ""},
	}
	for _, tc := range cases {
		u := &User{FirstName: tc.first, LastName: tc.last}
		if got := u.FullName(); got != tc.want {
			t.Errorf("FullName(%q, %q) = %q, want %q", tc.first, tc.last, got, tc.want)
		}
	}
}

func TestHasAddress(t *testing.T) {
	u := &User{AddressLine1: "1 High St", Postcode: "LS1 1AA"}
	if !u.HasAddress() {
		t.Error("expected address to be usable")
	}
	if (&User{AddressLine1: "1 High St"}).HasAddress() {
		t.Error("missing postcode should not count as an address")
	}
	if (&User{Postcode: "LS1 1AA"}).HasAddress() {
		t.Error("missing line1 should not count as an address")
	}
}
