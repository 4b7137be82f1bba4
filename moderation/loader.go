package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"strings"

	"quickchat/errors"
)

//go:embed wordlists/*
var wordlistFS embed.FS

// Blacklist carries the loaded terms plus metadata for logging.
type Blacklist struct {
	Terms     []string
	Languages []string
}

// LoadBlacklist reads every embedded .txt wordlist, one term per line,
// deduplicated across languages.
func LoadBlacklist() (*Blacklist, error) {
	entries, err := fs.ReadDir(wordlistFS, "wordlists")
	if err != nil {
		return nil, err
	}

	var languages []string
	unique := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := wordlistFS.ReadFile("wordlists/" + entry.Name())
		if err != nil {
			return nil, err
		}

		// A scanner handles both \n and \r\n line endings
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				unique[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(unique) == 0 {
		return nil, errors.ErrEmptyWords
	}

	terms := make([]string, 0, len(unique))
	for term := range unique {
		terms = append(terms, term)
	}
	return &Blacklist{Terms: terms, Languages: languages}, nil
}
