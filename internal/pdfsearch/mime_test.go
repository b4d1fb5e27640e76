package pdfsearch

import "testing"

func TestMimeClassifierIsPDF(t *testing.T) {
	t.Parallel()

	c := NewMimeClassifier()
	tests := []struct {
		mime string
		want bool
	}{
		{"application/pdf", true},
		{"application/x-pdf", true},
		{"application/acrobat", true},
		{"text/x-pdf", true},
		{"text/pdf", true},
		{"applications/vnd.pdf", true},
		{"Application/PDF", true},
		{"application/pdf; charset=binary", true},
		{" application/pdf ", true},
		{"text/plain", false},
		{"application/zip", false},
		{"", false},
		{"application/pdfx", false},
	}
	for _, tt := range tests {
		if got := c.IsPDF(tt.mime); got != tt.want {
			t.Fatalf("IsPDF(%q) = %v, want %v", tt.mime, got, tt.want)
		}
	}
}

func TestMimeClassifierExtraTypes(t *testing.T) {
	t.Parallel()

	c := NewMimeClassifier("application/x-bzpdf", "  ")
	if !c.IsPDF("application/x-bzpdf") {
		t.Fatalf("expected extra type to match")
	}
	if c.IsPDF("") {
		t.Fatalf("blank extra type must not match empty mime")
	}
	if !c.IsPDF("application/pdf") {
		t.Fatalf("defaults must survive extras")
	}
}
