package wordlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"
	"golang.org/x/text/unicode/norm"
)

var ErrNotFound = errors.New("wordlist file not found")

type Wordlist struct {
	Path        string
	Words       []string
	Fingerprint string
	Duplicates  int
}

func (w *Wordlist) Len() int { return len(w.Words) }

// Load reads whitespace-separated labels from path. Every token is a label,
// including ones starting with '#'. Labels are NFC-normalized and
// lowercased, and repeated labels keep their first position.
func Load(path string, logger *logrus.Logger) (*Wordlist, error) {
	if logger == nil {
		logger = logrus.New()
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open wordlist file: %w", err)
	}
	defer f.Close()

	hasher := xxh3.New()
	words, dups, err := parse(io.TeeReader(f, hasher))
	if err != nil {
		return nil, fmt.Errorf("failed to scan wordlist %s: %w", path, err)
	}

	wl := &Wordlist{
		Path:        path,
		Words:       words,
		Fingerprint: fmt.Sprintf("%016x", hasher.Sum64()),
		Duplicates:  dups,
	}
	logger.WithFields(logrus.Fields{
		"path":        path,
		"words":       len(words),
		"duplicates":  dups,
		"fingerprint": wl.Fingerprint,
	}).Debug("Loaded wordlist")
	return wl, nil
}

// Parse is Load for an already open reader.
func Parse(r io.Reader) ([]string, error) {
	words, _, err := parse(r)
	return words, err
}

func parse(r io.Reader) ([]string, int, error) {
	sc := bufio.NewScanner(r)
	const maxLine = 1024 * 1024
	buf := make([]byte, 64*1024)
	sc.Buffer(buf, maxLine)

	seen := make(map[string]struct{})
	var words []string
	dups := 0
	for sc.Scan() {
		for _, field := range strings.Fields(sc.Text()) {
			w := strings.ToLower(norm.NFC.String(field))
			if _, ok := seen[w]; ok {
				dups++
				continue
			}
			seen[w] = struct{}{}
			words = append(words, w)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, 0, err
	}
	return words, dups, nil
}
