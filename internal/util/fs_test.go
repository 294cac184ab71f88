package util

import (
	"path/filepath"
	"testing"
)

func TestSafeJoinStaysUnderRoot(t *testing.T) {
	got := SafeJoin("/data", "../../etc/passwd")
	if got != filepath.Join("/data", "etc", "passwd") {
		t.Fatalf("unexpected path: %s", got)
	}
	got = SafeJoin("/data", "submissions/abc/report.pdf")
	if got != filepath.Join("/data", "submissions", "abc", "report.pdf") {
		t.Fatalf("unexpected path: %s", got)
	}
}
