package companydomain

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConsumerDomains are public mail providers that never identify an employer.
var DefaultConsumerDomains = []string{
	"gmail.com",
	"googlemail.com",
	"yahoo.com",
	"yahoo.co.uk",
	"ymail.com",
	"outlook.com",
	"hotmail.com",
	"hotmail.co.uk",
	"live.com",
	"msn.com",
	"aol.com",
	"icloud.com",
	"me.com",
	"mac.com",
	"proton.me",
	"protonmail.com",
	"gmx.com",
	"gmx.de",
	"web.de",
	"mail.com",
	"mail.ru",
	"yandex.ru",
	"yandex.com",
	"zoho.com",
	"qq.com",
	"163.com",
	"126.com",
	"fastmail.com",
	"tutanota.com",
	"hey.com",
}

// Blocklist is an immutable set of consumer mail domains.
type Blocklist struct {
	domains map[string]struct{}
}

// NewBlocklist builds a block-list from the given domains. Entries are case-folded;
// blank entries are ignored.
func NewBlocklist(domains ...string) *Blocklist {
	b := &Blocklist{domains: make(map[string]struct{}, len(domains))}
	for _, d := range domains {
		d = normalizeDomain(d)
		if d == "" {
			continue
		}
		b.domains[d] = struct{}{}
	}
	return b
}

// DefaultBlocklist returns the built-in consumer providers plus any extra domains.
func DefaultBlocklist(extra ...string) *Blocklist {
	all := make([]string, 0, len(DefaultConsumerDomains)+len(extra))
	all = append(all, DefaultConsumerDomains...)
	all = append(all, extra...)
	return NewBlocklist(all...)
}

// With returns a new block-list holding the receiver's domains plus extra.
func (b *Blocklist) With(extra ...string) *Blocklist {
	all := make([]string, 0, len(b.domains)+len(extra))
	for d := range b.domains {
		all = append(all, d)
	}
	all = append(all, extra...)
	return NewBlocklist(all...)
}

// Contains reports whether host is a listed domain or a subdomain of one.
func (b *Blocklist) Contains(host string) bool {
	host = normalizeDomain(host)
	if host == "" {
		return false
	}
	for {
		if _, ok := b.domains[host]; ok {
			return true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			return false
		}
		host = host[i+1:]
	}
}

// Len returns the number of listed domains.
func (b *Blocklist) Len() int { return len(b.domains) }

type blocklistFile struct {
	ConsumerDomains []string `yaml:"consumer_domains"`
}

// ParseYAML reads a document of the form
//
//	consumer_domains:
//	  - example-mail.com
//
// and returns the listed domains.
func ParseYAML(r io.Reader) ([]string, error) {
	var f blocklistFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode consumer domain list: %w", err)
	}
	return f.ConsumerDomains, nil
}

func normalizeDomain(d string) string {
	d = strings.TrimSpace(d)
	d = strings.TrimSuffix(d, ".")
	return strings.ToLower(d)
}
