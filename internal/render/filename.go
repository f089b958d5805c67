package render

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"
)

// filenameSanitizer replaces every character that is illegal in a filename on
// any supported platform, plus spaces for consistency.
var filenameSanitizer = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", `"`, "_", "|", "_",
	"?", "_", "*", "_", `\`, "_", "/", "_", " ", "_",
)

// SanitizeFilename makes a string safe to use as a filename component.
// Illegal characters become underscores, runs of underscores collapse, and
// leading/trailing underscores are trimmed.
func SanitizeFilename(name string) string {
	sanitized := filenameSanitizer.Replace(name)
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	return strings.Trim(sanitized, "_")
}

// ReportFilename derives the deterministic per-student filename from student
// name, assignment title and date.
func ReportFilename(student, title, date string) string {
	return fmt.Sprintf("%s_%s_%s.docx", SanitizeFilename(student), SanitizeFilename(title), SanitizeFilename(date))
}

// ArchiveEntry is one named document inside a batch archive.
type ArchiveEntry struct {
	Name string
	Data []byte
}

// WriteArchive streams the entries into a zip archive on w, preserving entry
// order. Entries are written one at a time so the archive can be streamed to
// a response without buffering the whole batch.
func WriteArchive(w io.Writer, entries []ArchiveEntry) error {
	zw := zip.NewWriter(w)
	for _, entry := range entries {
		f, err := zw.Create(entry.Name)
		if err != nil {
			return fmt.Errorf("create archive entry %s: %w", entry.Name, err)
		}
		if _, err := f.Write(entry.Data); err != nil {
			return fmt.Errorf("write archive entry %s: %w", entry.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}
