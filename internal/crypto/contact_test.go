package crypto

import (
	"strings"
	"testing"

	"github.com/luxecraft/atelier/internal/models"
)

func TestContactRoundTrip(t *testing.T) {
	t.Parallel()

	enc, err := NewEncryptor(strings.Repeat("k", 32))
	if err != nil {
		t.Fatalf("failed to build encryptor: %v", err)
	}

	customer := models.CustomerInfo{
		Name:  "Ayesha Khan",
		Email: "ayesha@example.com",
		Phone: "+923001234567",
	}

	sealed, err := EncryptContact(enc, customer)
	if err != nil {
		t.Fatalf("EncryptContact failed: %v", err)
	}
	if sealed.Name != customer.Name {
		t.Errorf("name should stay cleartext, got %q", sealed.Name)
	}
	if sealed.Email == customer.Email || sealed.Phone == customer.Phone {
		t.Error("email and phone should be encrypted")
	}

	opened, err := DecryptContact(enc, sealed)
	if err != nil {
		t.Fatalf("DecryptContact failed: %v", err)
	}
	if opened != customer {
		t.Fatalf("round trip mismatch: got %+v, want %+v", opened, customer)
	}
}
