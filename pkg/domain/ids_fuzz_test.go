//go:build go1.18

package domain

import "testing"

// FuzzParseProjectID checks parsing never panics and accepted ids round-trip.
func FuzzParseProjectID(f *testing.F) {
	f.Add("")
	f.Add("1")
	f.Add("0")
	f.Add("18446744073709551615")
	f.Add("'; DROP TABLE registry_kv;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseProjectID(input)
		if err != nil {
			return
		}
		if id.IsNil() {
			t.Fatal("zero id was accepted")
		}
		roundTrip, err := ParseProjectID(id.String())
		if err != nil {
			t.Fatalf("valid id failed round-trip: %v", err)
		}
		if roundTrip != id {
			t.Fatal("round-trip changed id value")
		}
	})
}
