package query

import "testing"

func TestParseFormatIsCaseInsensitive(t *testing.T) {
	cases := []struct {
		in   string
		want Format
	}{
		{"bam", FormatBAM},
		{"BAM", FormatBAM},
		{"Cram", FormatCRAM},
		{"vcf", FormatVCF},
		{"BCF", FormatBCF},
	}
	for _, c := range cases {
		got, ok := ParseFormat(c.in)
		if !ok || got != c.want {
			t.Fatalf("ParseFormat(%q) = (%v,%v), want (%v,true)", c.in, got, ok, c.want)
		}
	}
}

func TestParseFormatRejectsUnknownValue(t *testing.T) {
	if _, ok := ParseFormat("sam"); ok {
		t.Fatal("expected ParseFormat to reject an unsupported format")
	}
}

func TestHeadersGetIsCaseInsensitive(t *testing.T) {
	h := NewHeaders()
	h.Set("authorization", "Bearer xyz")
	v, ok := h.Get("Authorization")
	if !ok || v != "Bearer xyz" {
		t.Fatalf("Get = (%q,%v)", v, ok)
	}
}

func TestHeadersGetMissingKeyReturnsFalse(t *testing.T) {
	h := NewHeaders()
	if _, ok := h.Get("X-Missing"); ok {
		t.Fatal("expected Get to report false for a missing header")
	}
}

func TestNilHeadersGetReturnsFalse(t *testing.T) {
	var h Headers
	if _, ok := h.Get("anything"); ok {
		t.Fatal("expected a nil Headers map to report false, not panic")
	}
}

func TestQueryIsUnmappedDetectsAsteriskReferenceName(t *testing.T) {
	star := "*"
	q := Query{ReferenceName: &star}
	if !q.IsUnmapped() {
		t.Fatal("expected IsUnmapped to be true for referenceName \"*\"")
	}

	chr1 := "chr1"
	q.ReferenceName = &chr1
	if q.IsUnmapped() {
		t.Fatal("expected IsUnmapped to be false for a real reference name")
	}

	q.ReferenceName = nil
	if q.IsUnmapped() {
		t.Fatal("expected IsUnmapped to be false when ReferenceName is nil")
	}
}
