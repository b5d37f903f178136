package crypto

import (
	"fmt"

	"github.com/luxecraft/atelier/internal/models"
)

// EncryptContact returns a copy of the customer snapshot with email and phone
// encrypted for storage. Name stays in the clear for admin list views.
func EncryptContact(enc Encryptor, customer models.CustomerInfo) (models.CustomerInfo, error) {
	email, err := enc.Encrypt(customer.Email)
	if err != nil {
		return models.CustomerInfo{}, fmt.Errorf("failed to encrypt email: %w", err)
	}
	phone, err := enc.Encrypt(customer.Phone)
	if err != nil {
		return models.CustomerInfo{}, fmt.Errorf("failed to encrypt phone: %w", err)
	}

	customer.Email = email
	customer.Phone = phone
	return customer, nil
}

// DecryptContact reverses EncryptContact on a customer snapshot read from
// storage.
func DecryptContact(enc Encryptor, customer models.CustomerInfo) (models.CustomerInfo, error) {
	email, err := enc.Decrypt(customer.Email)
	if err != nil {
		return models.CustomerInfo{}, fmt.Errorf("failed to decrypt email: %w", err)
	}
	phone, err := enc.Decrypt(customer.Phone)
	if err != nil {
		return models.CustomerInfo{}, fmt.Errorf("failed to decrypt phone: %w", err)
	}

	customer.Email = email
	customer.Phone = phone
	return customer, nil
}
