package storage

import "testing"

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"security-reports/security_summary.json": "application/json",
		"security-reports/security_summary.md":   "text/markdown; charset=utf-8",
		"REPORT.HTML":                            "text/html",
		"bandit.txt":                             "application/octet-stream",
	}
	for in, want := range tests {
		if got := contentType(in); got != want {
			t.Errorf("contentType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestObjectURL(t *testing.T) {
	got := objectURL("https", "minio.example.com:9000", "security-reports", "demo/run-1/security_summary.json")
	if got != "https://minio.example.com:9000/security-reports/demo/run-1/security_summary.json" {
		t.Errorf("objectURL = %s", got)
	}
	if got := objectURL("", "localhost:9000", "b", "k"); got != "http://localhost:9000/b/k" {
		t.Errorf("objectURL default scheme = %s", got)
	}
}
