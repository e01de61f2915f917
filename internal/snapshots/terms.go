package snapshots

import (
	_ "embed"
	"fmt"
	"io"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// RequestKey must be echoed by the extension to receive the URL list.
const RequestKey = "send_me_the_terms"

//go:embed terms.yaml
var defaultTerms []byte

// Terms describes the pages captured by the periodic snapshot worker.
type Terms struct {
	FrontPages     []string `yaml:"front_pages"`
	SearchPrefixes []string `yaml:"search_prefixes"`
	Queries        []string `yaml:"queries"`
}

// Default returns the built-in terms.
func Default() (*Terms, error) {
	var t Terms
	if err := yaml.Unmarshal(defaultTerms, &t); err != nil {
		return nil, fmt.Errorf("failed to decode built-in terms: %w", err)
	}
	return &t, nil
}

func Read(r io.Reader) (*Terms, error) {
	var t Terms
	if err := yaml.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to decode terms: %w", err)
	}
	if len(t.FrontPages) == 0 && len(t.SearchPrefixes) == 0 {
		return nil, fmt.Errorf("terms define no pages")
	}
	return &t, nil
}

// Load reads terms from path, or returns the built-in terms when path is empty.
func Load(path string) (*Terms, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open terms file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// URLs lists the front pages followed by every search prefix combined with
// every query, prefixes in the outer loop. Queries are form-encoded.
func (t *Terms) URLs() []string {
	urls := make([]string, 0, len(t.FrontPages)+len(t.SearchPrefixes)*len(t.Queries))
	urls = append(urls, t.FrontPages...)
	for _, prefix := range t.SearchPrefixes {
		for _, query := range t.Queries {
			urls = append(urls, prefix+url.QueryEscape(query))
		}
	}
	return urls
}
