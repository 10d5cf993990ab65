package ir

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Domain prefixes for content-addressed identity. The version suffix
// enables future algorithm migration.
const (
	DomainSource   = "manifest/source/v1"
	DomainDocument = "manifest/document/v1"
	DomainEvent    = "manifest/event/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash computes the provenance hash of Manifest source text.
//
// The source is normalized first so whitespace-insignificant variants
// hash identically: CRLF/CR become LF, trailing whitespace is stripped
// per line, trailing blank lines are dropped, and the text is NFC
// normalized. Semantically identical programs that differ only in those
// respects produce the same hash.
func ContentHash(source string) string {
	return hashWithDomain(DomainSource, []byte(NormalizeSource(source)))
}

// NormalizeSource applies the normalization ContentHash hashes over.
func NormalizeSource(source string) string {
	s := strings.ReplaceAll(source, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = norm.NFC.String(s)

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	s = strings.Join(lines, "\n")
	return strings.TrimRight(s, "\n")
}

// DocumentHash computes a content-addressed hash of a compiled Document,
// excluding the compile timestamp. Two compilations of the same source
// always agree on this value.
func DocumentHash(doc *Document) (string, error) {
	// Round-trip through canonical JSON with compiled_at zeroed.
	stripped := *doc
	stripped.Provenance.CompiledAt = ""

	data, err := marshalDocumentCanonical(&stripped)
	if err != nil {
		return "", fmt.Errorf("DocumentHash: %w", err)
	}
	return hashWithDomain(DomainDocument, data), nil
}

// marshalDocumentCanonical round-trips a Document through plain JSON and
// re-marshals canonically. UseNumber keeps integers out of float64.
func marshalDocumentCanonical(doc *Document) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	irv, err := ToIRValue(v)
	if err != nil {
		return nil, err
	}
	return MarshalCanonical(irv)
}

// EventID computes a content-addressed identity for an emitted event.
// Used as the outbox idempotency key: the same command execution always
// yields the same event IDs.
func EventID(tenantID, aggregateID, eventType string, payload IRObject, index int) (string, error) {
	obj := IRObject{
		"tenant_id":    IRString(tenantID),
		"aggregate_id": IRString(aggregateID),
		"event_type":   IRString(eventType),
		"payload":      payload,
		"index":        IRInt(int64(index)),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainEvent, canonical), nil
}

// MustEventID is like EventID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustEventID(tenantID, aggregateID, eventType string, payload IRObject, index int) string {
	id, err := EventID(tenantID, aggregateID, eventType, payload, index)
	if err != nil {
		panic(err)
	}
	return id
}
