package credibility

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source score values.
const (
	SourceReliable   = 20
	SourceNeutral    = 10
	SourceUnreliable = 0
)

var defaultReliable = []string{
	"thehackernews.com",
	"bleepingcomputer.com",
	"krebsonsecurity.com",
	"securityweek.com",
	"darkreading.com",
	"therecord.media",
	"theregister.com",
	"arstechnica.com",
	"wired.com",
	"zdnet.com",
	"reuters.com",
	"apnews.com",
	"bbc.com",
	"bbc.co.uk",
	"cisa.gov",
	"nist.gov",
	"ncsc.gov.uk",
	"enisa.europa.eu",
	"microsoft.com",
	"googleblog.com",
	"mandiant.com",
	"unit42.paloaltonetworks.com",
	"talosintelligence.com",
	"welivesecurity.com",
	"securelist.com",
}

var defaultUnreliable = []string{
	"infowars.com",
	"naturalnews.com",
	"beforeitsnews.com",
	"yournewswire.com",
	"worldnewsdailyreport.com",
	"theonion.com",
}

// Reputation maps hostnames to a source score. Subdomains inherit the score
// of the closest listed parent domain.
type Reputation struct {
	domains map[string]int
}

// ReputationFile is the YAML shape of an override file.
type ReputationFile struct {
	Reliable   []string `yaml:"reliable"`
	Unreliable []string `yaml:"unreliable"`
}

// DefaultReputation returns the built-in list.
func DefaultReputation() *Reputation {
	r := &Reputation{domains: make(map[string]int, len(defaultReliable)+len(defaultUnreliable))}
	r.add(ReputationFile{Reliable: defaultReliable, Unreliable: defaultUnreliable})

	return r
}

// LoadReputation returns the built-in list extended by the YAML file at path.
// Entries in the file win over built-in ones. An empty path returns the defaults.
func LoadReputation(path string) (*Reputation, error) {
	r := DefaultReputation()
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reputation file: %w", err)
	}

	var file ReputationFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse reputation file: %w", err)
	}

	r.add(file)

	return r, nil
}

func (r *Reputation) add(file ReputationFile) {
	for _, d := range file.Reliable {
		if d = normalizeHost(d); d != "" {
			r.domains[d] = SourceReliable
		}
	}

	for _, d := range file.Unreliable {
		if d = normalizeHost(d); d != "" {
			r.domains[d] = SourceUnreliable
		}
	}
}

// Score returns the source score for an article URL. Unknown and malformed
// URLs are neutral.
func (r *Reputation) Score(rawURL string) int {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return SourceNeutral
	}

	host := normalizeHost(u.Hostname())
	for host != "" {
		if score, ok := r.domains[host]; ok {
			return score
		}

		i := strings.IndexByte(host, '.')
		if i < 0 {
			break
		}

		host = host[i+1:]
	}

	return SourceNeutral
}

func normalizeHost(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimSuffix(h, ".")

	return strings.TrimPrefix(h, "www.")
}
