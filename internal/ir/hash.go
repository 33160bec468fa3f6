package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content keys.
// Version suffix enables future algorithm migration.
const (
	DomainRequest  = "fragwatch/request/v1"
	DomainFragment = "fragwatch/fragment/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FragmentHash computes the content key of a fragment definition.
// Two fragments with the same name, type condition and selections hash the
// same regardless of which document they were compiled from.
func FragmentHash(f *Fragment) (string, error) {
	if f == nil {
		return "", fmt.Errorf("FragmentHash: nil fragment")
	}
	canonical, err := MarshalCanonical(f.ToIR())
	if err != nil {
		return "", fmt.Errorf("FragmentHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainFragment, canonical), nil
}

// RequestKey computes the content key of a diff request. Requests with equal
// keys read the same selection of the same record with the same options, so
// an active watch for one can serve the other.
func RequestKey(opts DiffOptions) (string, error) {
	fragmentHash, err := FragmentHash(opts.Fragment)
	if err != nil {
		return "", fmt.Errorf("RequestKey: %w", err)
	}

	variables := opts.Variables
	if variables == nil {
		variables = IRObject{}
	}

	obj := IRObject{
		"id":                  IRString(opts.ID),
		"fragment":            IRString(fragmentHash),
		"variables":           variables,
		"optimistic":          IRBool(opts.Optimistic),
		"return_partial_data": IRBool(opts.ReturnPartialData),
		"canonize_results":    IRBool(opts.CanonizeResults),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("RequestKey: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRequest, canonical), nil
}
