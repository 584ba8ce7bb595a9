package sms

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileSender implements the Sender interface by appending SMS content to a
// file. Enabled via LOG_SMS alongside the primary sender.
type FileSender struct {
	filePath string
}

// NewFileSender creates a new FileSender, ensuring the directory for the
// log file exists.
func NewFileSender(filePath string) (*FileSender, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, fmt.Errorf("sms log file path cannot be empty")
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for sms log file '%s': %w", dir, err)
	}

	return &FileSender{filePath: filePath}, nil
}

// Send appends the SMS to the configured file.
func (s *FileSender) Send(ctx context.Context, recipient, message string) (string, error) {
	timestamp := time.Now().Format(time.RFC3339Nano)

	file, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("FileSender: Failed to open log file '%s': %v", s.filePath, err)
		return "", fmt.Errorf("failed to open sms log file: %w", err)
	}
	defer file.Close()

	entry := fmt.Sprintf("--- SMS Logged at %s (To: %s) ---\n%s\n--- End Logged SMS ---\n\n", timestamp, recipient, message)
	if _, err := file.WriteString(entry); err != nil {
		log.Printf("FileSender: Failed to write to log file '%s': %v", s.filePath, err)
		return "", fmt.Errorf("failed to write sms to log file: %w", err)
	}

	return "", nil
}
