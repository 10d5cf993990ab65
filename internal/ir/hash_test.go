package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHash_StableAcrossCalls(t *testing.T) {
	src := "entity Task {\n  property name: string\n}\n"
	assert.Equal(t, ContentHash(src), ContentHash(src))
}

func TestContentHash_NormalizesLineEndings(t *testing.T) {
	unix := "entity Task {\n  property name: string\n}"
	dos := "entity Task {\r\n  property name: string\r\n}"
	assert.Equal(t, ContentHash(unix), ContentHash(dos))
}

func TestContentHash_IgnoresTrailingWhitespace(t *testing.T) {
	clean := "entity Task {\n}"
	trailing := "entity Task {   \n}\n\n"
	assert.Equal(t, ContentHash(clean), ContentHash(trailing))
}

func TestContentHash_DiffersForDifferentSource(t *testing.T) {
	a := ContentHash("entity Task {}")
	b := ContentHash("entity Station {}")
	assert.NotEqual(t, a, b)
}

func TestContentHash_DomainSeparated(t *testing.T) {
	// A source hash and an event hash over the same bytes must differ.
	src := ContentHash("x")
	evt := hashWithDomain(DomainEvent, []byte("x"))
	assert.NotEqual(t, src, evt)
}

func TestDocumentHash_IgnoresCompiledAt(t *testing.T) {
	doc := func(ts string) *Document {
		return &Document{
			Version:  SchemaVersion,
			Entities: []Entity{{Name: "Task", Properties: []Property{{Name: "status", Kind: PropertyField, Type: "string"}}}},
			Provenance: Provenance{
				ContentHash:     ContentHash("entity Task {}"),
				CompilerVersion: CompilerVersion,
				SchemaVersion:   SchemaVersion,
				CompiledAt:      ts,
			},
		}
	}

	h1, err := DocumentHash(doc("2026-01-01T00:00:00Z"))
	require.NoError(t, err)
	h2, err := DocumentHash(doc("2026-06-15T12:30:00Z"))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestDocumentHash_SensitiveToContent(t *testing.T) {
	a := &Document{Version: SchemaVersion, Entities: []Entity{{Name: "Task"}}}
	b := &Document{Version: SchemaVersion, Entities: []Entity{{Name: "Station"}}}

	ha, err := DocumentHash(a)
	require.NoError(t, err)
	hb, err := DocumentHash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

func TestEventID_StableAndDistinct(t *testing.T) {
	payload := IRObject{"taskId": IRString("t1"), "userId": IRString("u1")}

	id1, err := EventID("tenant-a", "t1", "kitchen.task.claimed", payload, 0)
	require.NoError(t, err)
	id2, err := EventID("tenant-a", "t1", "kitchen.task.claimed", payload, 0)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	other, err := EventID("tenant-a", "t1", "kitchen.task.claimed", payload, 1)
	require.NoError(t, err)
	assert.NotEqual(t, id1, other)

	otherTenant, err := EventID("tenant-b", "t1", "kitchen.task.claimed", payload, 0)
	require.NoError(t, err)
	assert.NotEqual(t, id1, otherTenant)
}
