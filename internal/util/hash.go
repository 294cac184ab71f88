package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SubmissionID is stable for the same PDF bytes uploaded for the same student.
func SubmissionID(pdf []byte, studentID string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(studentID))))
	h.Write([]byte{0})
	h.Write(pdf)
	return hex.EncodeToString(h.Sum(nil))
}
