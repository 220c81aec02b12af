package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateQRToken returns a 64 character hex token for an employee's QR code
func GenerateQRToken(employeeCode string, orgID uuid.UUID, now time.Time) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate qr token: %w", err)
	}

	data := fmt.Sprintf("%s-%s-%d-%s", employeeCode, orgID, now.UnixNano(), hex.EncodeToString(nonce))
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:]), nil
}

// QRCodeURL is the public emergency page a QR code points at
func QRCodeURL(frontendURL, token string) string {
	return frontendURL + "/emergency/" + token
}
