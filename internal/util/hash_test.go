package util

import "testing"

func TestSubmissionIDStable(t *testing.T) {
	pdf := []byte("%PDF-1.4 body")
	a := SubmissionID(pdf, "STU-1")
	b := SubmissionID(pdf, " stu-1 ")
	if a != b {
		t.Fatalf("expected case/space-insensitive student id, got %s vs %s", a, b)
	}
	if a == SubmissionID(pdf, "STU-2") {
		t.Fatalf("expected different ids for different students")
	}
	if len(a) != 64 {
		t.Fatalf("expected sha256 hex, got %q", a)
	}
}
