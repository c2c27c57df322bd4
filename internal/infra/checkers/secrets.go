package checkers

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

type detector struct {
	re    *regexp.Regexp
	title string
}

// Secret and credential detectors. Matches are never echoed into reports.
var detectors = []detector{
	{regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`), "Private key material committed"},
	{regexp.MustCompile(`AKIA[0-9A-Z]{16}`), "AWS access key exposed"},
	{regexp.MustCompile(`(?i)aws_secret_access_key\s*[:=]\s*["']?[A-Za-z0-9/+=]{20,}`), "AWS secret access key exposed"},
	{regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{20,}`), "GitHub token exposed"},
	{regexp.MustCompile(`github_pat_[A-Za-z0-9_]{20,}`), "GitHub PAT exposed"},
	{regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`), "Google API key exposed"},
	{regexp.MustCompile(`xox[baprs]-[A-Za-z0-9\-]{10,}`), "Slack token exposed"},
	{regexp.MustCompile(`sk_(?:live|test)_[0-9A-Za-z]{10,}`), "Stripe secret key exposed"},
	{regexp.MustCompile(`sk-(?:proj-)?[A-Za-z0-9_\-]{20,}`), "OpenAI API key exposed"},
	{regexp.MustCompile(`(?i)(api[_-]?key|client[_-]?secret|secret|token|password)\s*[:=]\s*["'][^\s"']{12,}["']`), "Hard-coded credential literal"},
	{regexp.MustCompile(`://[^\s/:@]+:[^\s/@]+@`), "Credentials embedded in URL"},
}

var scanExts = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".go": true, ".yaml": true, ".yml": true,
	".json": true, ".toml": true, ".ini": true, ".cfg": true, ".sh": true,
}

var skipDirs = map[string]bool{
	".git": true, "__pycache__": true, "node_modules": true, "venv": true, ".venv": true,
}

const maxScanSize = 1 << 20

type secretHit struct {
	File  string // relative to the scanned root
	Line  int
	Title string
}

// scanSecrets walks dir and reports at most one hit per line.
func scanSecrets(root, dir string) ([]secretHit, error) {
	var hits []secretHit
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !scanExts[strings.ToLower(filepath.Ext(p))] {
			return nil
		}
		if info, err := d.Info(); err != nil || info.Size() > maxScanSize {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			rel = p
		}
		found, err := scanFile(p, filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		hits = append(hits, found...)
		return nil
	})
	return hits, err
}

func scanFile(path, rel string) ([]secretHit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var hits []secretHit
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxScanSize)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		for _, d := range detectors {
			if d.re.MatchString(text) {
				hits = append(hits, secretHit{File: rel, Line: line, Title: d.title})
				break
			}
		}
	}
	return hits, sc.Err()
}
