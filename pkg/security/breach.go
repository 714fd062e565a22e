package security

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/apex/log"
)

// BreachStatus classifies a password after a breach check.
type BreachStatus string

const (
	// BreachCommon means the password is on the local common-password list.
	// No network request is made for common passwords.
	BreachCommon BreachStatus = "Common"
	// BreachExposed means the password appears in a known breach corpus.
	BreachExposed BreachStatus = "Exposed"
	// BreachOk means no exposure was found. Lookup failures also report Ok:
	// the check is best effort and never blocks vault use.
	BreachOk BreachStatus = "Ok"
)

// DefaultBreachServiceURL is the Have I Been Pwned range API.
const DefaultBreachServiceURL = "https://api.pwnedpasswords.com"

const (
	// hashPrefixLength is the number of leading hash characters sent to the
	// remote service. The rest of the hash never leaves the process.
	hashPrefixLength = 5

	breachRequestTimeout = 10 * time.Second
)

// BreachCache stores breach verdicts keyed by password hash so each hash is
// looked up remotely at most once per cache window.
type BreachCache interface {
	// BreachStatus returns the cached verdict for a hash. found is false on
	// a cache miss.
	BreachStatus(hash string) (exposed, found bool, err error)
	// StoreBreachStatus records a verdict for a hash.
	StoreBreachStatus(hash string, exposed bool) error
}

// BreachChecker looks up passwords against a k-anonymity breach service.
// Only the first hashPrefixLength characters of the SHA-1 hash are sent;
// matching against the candidate suffixes happens locally. A single-permit
// slot serializes remote lookups.
type BreachChecker struct {
	baseURL string
	client  *http.Client
	cache   BreachCache
	slot    chan struct{}
	logger  *log.Entry
}

// NewBreachChecker creates a checker against the given service base URL,
// using cache to avoid repeat lookups. cache may be nil.
func NewBreachChecker(baseURL string, cache BreachCache) *BreachChecker {
	if baseURL == "" {
		baseURL = DefaultBreachServiceURL
	}
	return &BreachChecker{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: breachRequestTimeout},
		cache:   cache,
		slot:    make(chan struct{}, 1),
		logger:  log.WithField("component", "breach-checker"),
	}
}

// HashPassword returns the uppercase hex SHA-1 digest of a password, the
// form used by the breach service and the cache.
func HashPassword(password string) string {
	sum := sha1.Sum([]byte(password))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// Check classifies a password. The common-password list is consulted first;
// otherwise the cached verdict for the password's hash is used when present,
// and a remote range query is made when not. Any failure along the remote
// path degrades to BreachOk.
func (c *BreachChecker) Check(ctx context.Context, password string) BreachStatus {
	if IsCommon(password) {
		return BreachCommon
	}

	hash := HashPassword(password)

	select {
	case c.slot <- struct{}{}:
	case <-ctx.Done():
		return BreachOk
	}
	defer func() { <-c.slot }()

	if c.cache != nil {
		exposed, found, err := c.cache.BreachStatus(hash)
		if err != nil {
			c.logger.WithError(err).Warn("breach cache lookup failed")
		} else if found {
			return verdict(exposed)
		}
	}

	exposed, err := c.query(ctx, hash)
	if err != nil {
		c.logger.WithError(err).Warn("breach lookup failed")
		return BreachOk
	}

	if c.cache != nil {
		if err := c.cache.StoreBreachStatus(hash, exposed); err != nil {
			c.logger.WithError(err).Warn("breach cache store failed")
		}
	}

	return verdict(exposed)
}

// query performs the range request and scans the response for the hash
// suffix.
func (c *BreachChecker) query(ctx context.Context, hash string) (bool, error) {
	prefix, suffix := hash[:hashPrefixLength], hash[hashPrefixLength:]

	url := c.baseURL + "/range/" + prefix
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("build range request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("range request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("range request: unexpected status %d", resp.StatusCode)
	}

	// Each response line is "SUFFIX:COUNT".
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if strings.HasPrefix(strings.TrimSpace(scanner.Text()), suffix) {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("read range response: %w", err)
	}
	return false, nil
}

func verdict(exposed bool) BreachStatus {
	if exposed {
		return BreachExposed
	}
	return BreachOk
}
