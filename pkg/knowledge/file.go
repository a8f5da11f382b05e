package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// File is the on-disk import format:
//
//	[[entries]]
//	question = "How do I reset my password?"
//	answer = "Use the 'Forgot password' link on the sign-in page."
type File struct {
	Entries []FileEntry `toml:"entries"`
}

// FileEntry is one entry of an import file.
type FileEntry struct {
	Question string `toml:"question"`
	Answer   string `toml:"answer"`
}

// ImportResult summarizes an import run.
type ImportResult struct {
	Created int
	Updated int
	Skipped int
}

// LoadFile reads and decodes a knowledge import file.
func LoadFile(path string) (*File, error) {
	f := &File{}
	md, err := toml.DecodeFile(path, f)
	if err != nil {
		return nil, fmt.Errorf("decoding knowledge file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys in knowledge file %s: %v", path, undecoded)
	}
	return f, nil
}

// Import writes every entry of f into store. Entries with a blank question
// or answer are skipped.
func Import(ctx context.Context, store Store, f *File) (ImportResult, error) {
	var res ImportResult
	if f == nil {
		return res, errors.New("nil knowledge file")
	}

	for _, e := range f.Entries {
		if strings.TrimSpace(e.Question) == "" || strings.TrimSpace(e.Answer) == "" {
			res.Skipped++
			continue
		}

		created, err := store.PutKnowledge(ctx, Entry{Question: e.Question, Answer: e.Answer})
		if err != nil {
			return res, fmt.Errorf("importing %q: %w", e.Question, err)
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}

	return res, nil
}
