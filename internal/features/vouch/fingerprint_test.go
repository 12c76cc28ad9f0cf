package vouch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_Deterministic(t *testing.T) {
	t.Parallel()

	att := Attachment{ContentType: "image/png", Size: 1024, Width: 100, Height: 100, Filename: "a.png"}

	first := Fingerprint(att)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Fingerprint(att))
	}
}

func TestFingerprint_DistinctInputsDiffer(t *testing.T) {
	t.Parallel()

	base := Attachment{ContentType: "image/png", Size: 1024, Width: 100, Height: 100, Filename: "a.png"}

	variants := []Attachment{
		{ContentType: "image/png", Size: 1025, Width: 100, Height: 100, Filename: "a.png"},
		{ContentType: "image/png", Size: 1024, Width: 101, Height: 100, Filename: "a.png"},
		{ContentType: "image/png", Size: 1024, Width: 100, Height: 101, Filename: "a.png"},
		{ContentType: "image/png", Size: 1024, Width: 100, Height: 100, Filename: "b.png"},
	}

	fp := Fingerprint(base)
	for _, v := range variants {
		assert.NotEqual(t, fp, Fingerprint(v))
	}
}

func TestFingerprint_MissingMetadataFailsOpen(t *testing.T) {
	t.Parallel()

	// Нет размеров (нерастровый файл) — каждый вызов уникален,
	// изображение считается новым, а не блокирует автора
	att := Attachment{ContentType: "image/svg+xml", Size: 512, Filename: "logo.svg"}

	first := Fingerprint(att)
	second := Fingerprint(att)

	assert.True(t, strings.HasPrefix(first, "unique:"))
	assert.NotEqual(t, first, second)
}

func TestAttachment_IsImage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		want        bool
	}{
		{"image/png", true},
		{"image/jpeg", true},
		{"video/mp4", false},
		{"application/pdf", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Attachment{ContentType: tt.contentType}.IsImage(), tt.contentType)
	}
}
