// Package companydomain decides whether an email address belongs to an organisation
// and derives a display name for that organisation from its domain.
package companydomain

import (
	"fmt"
	"strings"

	"github.com/jobportal-api/internal/domain"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RejectionReason explains why an address is not a company address.
type RejectionReason string

const (
	ReasonNone           RejectionReason = ""
	ReasonInvalidFormat  RejectionReason = "invalid_format"
	ReasonConsumerDomain RejectionReason = "consumer_domain"
)

// legalSuffixes are dropped when they make up an entire DNS label, e.g. acme.inc.example.
var legalSuffixes = map[string]struct{}{
	"inc":  {},
	"corp": {},
	"ltd":  {},
	"llc":  {},
	"plc":  {},
	"gmbh": {},
	"co":   {},
}

// Classification is the outcome of classifying one address.
type Classification struct {
	IsCompanyDomain    bool
	DerivedCompanyName string
	Reason             RejectionReason
	Domain             string
}

// Classifier is safe for concurrent use; its block-list never changes after construction.
type Classifier struct {
	blocklist *Blocklist
}

func NewClassifier(blocklist *Blocklist) *Classifier {
	if blocklist == nil {
		blocklist = DefaultBlocklist()
	}
	return &Classifier{blocklist: blocklist}
}

// Classify inspects email. Malformed input returns an error wrapping domain.ErrInvalidFormat.
// A consumer domain is not an error: IsCompanyDomain is false and Reason says why.
func (c *Classifier) Classify(email string) (Classification, error) {
	host, err := splitDomain(email)
	if err != nil {
		return Classification{Reason: ReasonInvalidFormat}, err
	}
	if c.blocklist.Contains(host) {
		return Classification{Reason: ReasonConsumerDomain, Domain: host}, nil
	}
	return Classification{
		IsCompanyDomain:    true,
		DerivedCompanyName: c.deriveName(host),
		Domain:             host,
	}, nil
}

// DeriveName returns the display name derived from host without consulting the block-list.
func (c *Classifier) DeriveName(host string) string {
	return c.deriveName(normalizeDomain(host))
}

func (c *Classifier) deriveName(host string) string {
	label := registrableLabel(host)
	words := strings.FieldsFunc(label, func(r rune) bool { return r == '-' || r == '_' })
	if len(words) == 0 {
		return label
	}
	// Casers hold transform state and are not safe to share between goroutines.
	return cases.Title(language.Und).String(strings.Join(words, " "))
}

// registrableLabel returns the label immediately left of the public suffix, skipping
// labels that are only a legal-entity suffix. Subdomains further left are ignored.
func registrableLabel(host string) string {
	labels := strings.Split(host, ".")
	suffix, _ := publicsuffix.PublicSuffix(host)
	n := len(labels) - len(strings.Split(suffix, "."))
	if n <= 0 {
		// host is itself a public suffix; use its leftmost label.
		return labels[0]
	}
	i := n - 1
	for i > 0 {
		if _, ok := legalSuffixes[labels[i]]; !ok {
			break
		}
		i--
	}
	return labels[i]
}

func splitDomain(email string) (string, error) {
	email = strings.TrimSpace(email)
	if strings.Count(email, "@") != 1 {
		return "", fmt.Errorf("email must contain exactly one '@': %w", domain.ErrInvalidFormat)
	}
	at := strings.IndexByte(email, '@')
	local, host := email[:at], normalizeDomain(email[at+1:])
	if local == "" {
		return "", fmt.Errorf("email local part is empty: %w", domain.ErrInvalidFormat)
	}
	if host == "" {
		return "", fmt.Errorf("email domain is empty: %w", domain.ErrInvalidFormat)
	}
	for _, l := range strings.Split(host, ".") {
		if l == "" {
			return "", fmt.Errorf("email domain %q has an empty label: %w", host, domain.ErrInvalidFormat)
		}
	}
	return host, nil
}
