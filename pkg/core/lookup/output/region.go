// Package output holds the output regions shown under the lookup forms,
// one per browser client.
package output

import (
	"sync"
)

// Token orders submissions. Later submissions get larger tokens.
type Token uint64

// Region is the display area that one client's lookups write into.
// A response only replaces the text if its token is newer than the
// token of the text currently shown, so a slow older request can never
// overwrite a newer one.
type Region struct {
	mu     sync.Mutex
	issued Token
	shown  Token
	text   string
}

func NewRegion() *Region {
	return &Region{}
}

// Begin issues the token for a submission that is about to go out.
func (r *Region) Begin() Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issued++
	return r.issued
}

// Commit renders data and shows it if t is still the newest response.
// It reports whether the region changed. Malformed JSON leaves the region
// untouched.
func (r *Region) Commit(t Token, data []byte) (bool, error) {
	text, err := Render(data)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t <= r.shown {
		return false, nil
	}
	r.shown = t
	r.text = text
	return true, nil
}

// Text returns what the region currently shows.
func (r *Region) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text
}
