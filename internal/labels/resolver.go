// Package labels resolves wallet addresses to human-readable labels.
package labels

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"gopkg.in/yaml.v3"
)

// Policy decides what happens to addresses that are not in the map.
type Policy string

const (
	// PolicyStrict reports unmapped addresses as unknown; callers drop the event.
	PolicyStrict Policy = "strict"
	// PolicyPermissive uses the raw address as the label.
	PolicyPermissive Policy = "permissive"
)

// ErrInvalidAddress is returned when a map key is not a 32-byte base58 public key.
var ErrInvalidAddress = errors.New("invalid address")

// ParsePolicy parses a policy name (case-insensitive).
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyStrict:
		return PolicyStrict, nil
	case PolicyPermissive:
		return PolicyPermissive, nil
	default:
		return "", fmt.Errorf("unknown label policy %q (want strict or permissive)", s)
	}
}

// Resolver maps addresses to labels. It is read-only after construction and
// safe for concurrent use.
type Resolver struct {
	labels map[string]string
	policy Policy
}

// NewResolver validates every address and builds a resolver over a private copy of m.
func NewResolver(m map[string]string, policy Policy) (*Resolver, error) {
	if _, err := ParsePolicy(string(policy)); err != nil {
		return nil, err
	}

	labels := make(map[string]string, len(m))
	for addr, label := range m {
		if _, err := decodeAddress(addr); err != nil {
			return nil, fmt.Errorf("label %q: %w", label, err)
		}
		labels[addr] = label
	}

	return &Resolver{labels: labels, policy: policy}, nil
}

// Resolve returns the label for address. Under the strict policy an unmapped
// address yields ok == false; under the permissive policy the address itself
// is returned.
func (r *Resolver) Resolve(address string) (label string, ok bool) {
	if label, ok := r.labels[address]; ok {
		return label, true
	}
	if r.policy == PolicyPermissive {
		return address, true
	}
	return "", false
}

// Policy returns the configured policy.
func (r *Resolver) Policy() Policy {
	return r.policy
}

// Len returns the number of mapped addresses.
func (r *Resolver) Len() int {
	return len(r.labels)
}

// OffCurve returns mapped addresses that are not valid ed25519 points.
// Such keys are program-derived addresses and can never sign a trade.
func (r *Resolver) OffCurve() []string {
	var result []string
	for addr := range r.labels {
		key, err := decodeAddress(addr)
		if err != nil {
			continue
		}
		if _, err := new(edwards25519.Point).SetBytes(key); err != nil {
			result = append(result, addr)
		}
	}
	return result
}

// Load reads an address -> label YAML map from path.
func Load(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label file: %w", err)
	}

	var m map[string]string
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse label file %s: %w", path, err)
	}
	return m, nil
}

func decodeAddress(addr string) ([]byte, error) {
	key, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAddress, addr, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: %s decodes to %d bytes", ErrInvalidAddress, addr, len(key))
	}
	return key, nil
}
