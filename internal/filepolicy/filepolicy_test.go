package filepolicy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsConformingSet(t *testing.T) {
	policy := Policy{
		MaxFiles:          3,
		MaxFileSize:       10 * 1024 * 1024,
		AllowedExtensions: []string{"pdf", "docx"},
	}

	result := Validate([]FileInfo{
		{Name: "essay.pdf", Size: 1024},
		{Name: "notes.DOCX", Size: 2048},
	}, policy)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateReportsEveryViolation(t *testing.T) {
	policy := Policy{
		MaxFiles:          2,
		MaxFileSize:       100,
		AllowedExtensions: []string{"pdf"},
	}

	// Three files against maxFiles=2, one oversized, one wrong type.
	result := Validate([]FileInfo{
		{Name: "a.pdf", Size: 50},
		{Name: "b.pdf", Size: 500},
		{Name: "c.exe", Size: 50},
	}, policy)

	require.False(t, result.Valid)
	assert.Len(t, result.Errors, 3)
}

func TestValidateEmptySetAlwaysValid(t *testing.T) {
	policy := Policy{MaxFiles: 1, MaxFileSize: 1, AllowedExtensions: []string{"pdf"}}
	result := Validate(nil, policy)
	assert.True(t, result.Valid)
}

func TestValidateZeroValuesRelaxRules(t *testing.T) {
	result := Validate([]FileInfo{
		{Name: "anything.xyz", Size: 1 << 40},
		{Name: "noext", Size: 1},
	}, Policy{})
	assert.True(t, result.Valid)
}

func TestValidateExtensionsCaseAndDotInsensitive(t *testing.T) {
	policy := Policy{AllowedExtensions: []string{".PDF"}}
	result := Validate([]FileInfo{{Name: "report.pdf", Size: 1}}, policy)
	assert.True(t, result.Valid)
}

func TestValidateRejectsMissingExtension(t *testing.T) {
	policy := Policy{AllowedExtensions: []string{"pdf"}}
	result := Validate([]FileInfo{{Name: "README", Size: 1}}, policy)
	require.False(t, result.Valid)
	assert.Len(t, result.Errors, 1)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "pdf", Extension("a.pdf"))
	assert.Equal(t, "gz", Extension("archive.tar.gz"))
	assert.Equal(t, "pdf", Extension("UPPER.PDF"))
	assert.Equal(t, "", Extension("noext"))
	assert.Equal(t, "", Extension("trailingdot."))
}
