package evidence

import "testing"

func TestSetAddHasCount(t *testing.T) {
	var s Set
	if s.Count() != 0 {
		t.Fatalf("empty set count = %d, want 0", s.Count())
	}

	s = s.Add(FamilyLiquidity).Add(FamilyProtocol)
	if !s.Has(FamilyLiquidity) || !s.Has(FamilyProtocol) {
		t.Error("added families not present")
	}
	if s.Has(FamilyPriceVolume) {
		t.Error("price_volume should not be present")
	}
	if s.Count() != 2 {
		t.Errorf("count = %d, want 2", s.Count())
	}

	// Adding the same family twice is idempotent
	s = s.Add(FamilyLiquidity)
	if s.Count() != 2 {
		t.Errorf("count after duplicate add = %d, want 2", s.Count())
	}
}

func TestSufficiency(t *testing.T) {
	cases := []struct {
		set  Set
		want bool
	}{
		{NewSet(), false},
		{NewSet(FamilyLiquidity), false},
		{NewSet(FamilyLiquidity, FamilyPriceVolume), true},
		{NewSet(FamilyLiquidity, FamilyPriceVolume, FamilyBehavior, FamilyIncentive, FamilyProtocol), true},
	}
	for _, tc := range cases {
		if got := tc.set.Sufficient(); got != tc.want {
			t.Errorf("Sufficient(%s) = %v, want %v", tc.set, got, tc.want)
		}
	}
}

func TestBitmapRoundTrip(t *testing.T) {
	s := NewSet(FamilyPriceVolume, FamilyIncentive)
	decoded := FromBitmap(s.Bitmap())
	if decoded != s {
		t.Errorf("round trip mismatch: %s != %s", decoded, s)
	}

	// Undefined high bits are dropped on decode
	if FromBitmap(0xff).Count() != NumFamilies {
		t.Errorf("undefined bits leaked into set")
	}
}

func TestFamiliesOrder(t *testing.T) {
	s := NewSet(FamilyProtocol, FamilyPriceVolume, FamilyBehavior)
	fams := s.Families()
	want := []Family{FamilyPriceVolume, FamilyBehavior, FamilyProtocol}
	if len(fams) != len(want) {
		t.Fatalf("got %d families, want %d", len(fams), len(want))
	}
	for i := range want {
		if fams[i] != want[i] {
			t.Errorf("families[%d] = %s, want %s", i, fams[i], want[i])
		}
	}
}

func TestInvalidFamilyIgnored(t *testing.T) {
	s := NewSet().Add(Family(7))
	if s.Count() != 0 {
		t.Errorf("invalid family added to set")
	}
	if Family(9).String() != "unknown" {
		t.Errorf("invalid family name = %q", Family(9).String())
	}
}
