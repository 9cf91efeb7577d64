package urns

import (
	"errors"
	"testing"
)

func TestFromTel_NationalNumberWithCountryHint(t *testing.T) {
	urn, err := FromTel("0771234567", "KE")
	if err != nil {
		t.Fatalf("normalize national number: %v", err)
	}
	if urn != "tel:+254771234567" {
		t.Fatalf("expected tel:+254771234567, got %s", urn)
	}
}

func TestFromTel_AlreadyQualified(t *testing.T) {
	urn, err := FromTel("+250 788 383 383", "")
	if err != nil {
		t.Fatalf("normalize qualified number: %v", err)
	}
	if urn != "tel:+250788383383" {
		t.Fatalf("expected tel:+250788383383, got %s", urn)
	}
}

func TestFromTel_LongNumberWithoutPlus(t *testing.T) {
	urn, err := FromTel("254771234567", "")
	if err != nil {
		t.Fatalf("normalize unprefixed qualified number: %v", err)
	}
	if urn != "tel:+254771234567" {
		t.Fatalf("expected tel:+254771234567, got %s", urn)
	}
}

func TestFromTel_StripsFormatting(t *testing.T) {
	urn, err := FromTel("(077) 123-4567", "KE")
	if err != nil {
		t.Fatalf("normalize formatted number: %v", err)
	}
	if urn != "tel:+254771234567" {
		t.Fatalf("expected tel:+254771234567, got %s", urn)
	}
}

func TestFromTel_RejectsGarbage(t *testing.T) {
	if _, err := FromTel("not-a-number", ""); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
	if _, err := FromTel("", "KE"); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress for empty number, got %v", err)
	}
}

func TestNormalize_PlatformIDsPassThrough(t *testing.T) {
	urn, err := Normalize("25028612", SchemeTelegram, "")
	if err != nil {
		t.Fatalf("normalize telegram id: %v", err)
	}
	if urn != "telegram:25028612" {
		t.Fatalf("expected telegram:25028612, got %s", urn)
	}
}

func TestNormalize_RequiresScheme(t *testing.T) {
	if _, err := Normalize("123", "", ""); !errors.Is(err, ErrInvalidURN) {
		t.Fatalf("expected ErrInvalidURN, got %v", err)
	}
}

func TestParts(t *testing.T) {
	urn := URN("tel:+254771234567")
	scheme, path, err := urn.Parts()
	if err != nil {
		t.Fatalf("split urn: %v", err)
	}
	if scheme != "tel" || path != "+254771234567" {
		t.Fatalf("unexpected parts: %s %s", scheme, path)
	}

	if _, _, err := URN("tel").Parts(); !errors.Is(err, ErrInvalidURN) {
		t.Fatalf("expected ErrInvalidURN for missing path, got %v", err)
	}
}
