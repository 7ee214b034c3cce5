package util

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

func GenerateUUID() string {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		log.Fatalf("Failed to generate UUID: %v", err)
	}
	return newUUID.String()
}

// GeneratePrefixedID returns ids such as "payment_1718000000_3f2a9c1be".
func GeneratePrefixedID(prefix string, now time.Time) string {
	hex := strings.ReplaceAll(GenerateUUID(), "-", "")
	return fmt.Sprintf("%s_%d_%s", prefix, now.Unix(), hex[:9])
}
