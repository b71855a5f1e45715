package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

const collectionPrefix = "chat_"

// CollectionID returns the vector collection owned by a conversation.
// Every PDF uploaded into the same session shares this collection.
func CollectionID(sessionID string) string {
	return collectionPrefix + sessionID
}

// ChunkID returns the id of the index-th chunk of filename within its collection
func ChunkID(filename string, index int) string {
	return fmt.Sprintf("%s_%d", filename, index)
}

// SanitizeFilename reduces an uploaded filename to a safe base name,
// keeping its extension. Names with no safe characters, such as Devanagari
// ones, become document-<hash> so distinct originals stay distinct.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := filepath.Ext(name)
	original := strings.TrimSuffix(name, ext)
	stem := strings.Trim(safeChars(original), "._")
	if stem == "" {
		sum := sha1.Sum([]byte(original))
		stem = "document-" + hex.EncodeToString(sum[:4])
	}
	return stem + strings.ToLower(safeChars(ext))
}

func safeChars(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return b.String()
}
