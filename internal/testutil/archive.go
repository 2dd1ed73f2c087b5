// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"testing"
)

// ArchiveFile is one member of a generated archive. Dir members are written
// as directories and carry no body.
type ArchiveFile struct {
	Name string
	Body string
	Dir  bool
}

// BuildArchive returns a gzip-compressed tar holding files in order.
func BuildArchive(t testing.TB, files ...ArchiveFile) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, f := range files {
		hdr := &tar.Header{Name: f.Name, Mode: 0o644, Size: int64(len(f.Body)), Typeflag: tar.TypeReg}
		if f.Dir {
			hdr = &tar.Header{Name: f.Name, Mode: 0o755, Typeflag: tar.TypeDir}
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write tar header %s: %v", f.Name, err)
		}
		if !f.Dir {
			if _, err := tw.Write([]byte(f.Body)); err != nil {
				t.Fatalf("write tar body %s: %v", f.Name, err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return buf.Bytes()
}

// DecisionXML renders a minimal decision document in the CASS format.
func DecisionXML(id, title, formation, content string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<TEXTE_JURI_JUDI>
<META>
<META_COMMUN><ID>%s</ID></META_COMMUN>
<META_SPEC>
<META_JURI><TITRE>%s</TITRE></META_JURI>
<META_JURI_JUDI><FORMATION>%s</FORMATION></META_JURI_JUDI>
</META_SPEC>
</META>
<TEXTE><BLOC_TEXTUEL><CONTENU>%s</CONTENU></BLOC_TEXTUEL></TEXTE>
</TEXTE_JURI_JUDI>`, id, title, formation, content)
}
