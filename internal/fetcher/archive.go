package fetcher

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"strings"
)

const documentSuffix = ".xml"

// readEntries walks a gzip-compressed tar stream and yields each regular
// .xml file. Stream errors are yielded once and end the walk.
func readEntries(r io.Reader, yield func(Entry, error) bool) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		yield(Entry{}, fmt.Errorf("%w: open gzip: %v", ErrArchive, err))
		return
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			yield(Entry{}, fmt.Errorf("%w: read tar header: %v", ErrArchive, err))
			return
		}
		if hdr.Typeflag != tar.TypeReg || !strings.HasSuffix(hdr.Name, documentSuffix) {
			continue
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			yield(Entry{}, fmt.Errorf("%w: read %s: %v", ErrArchive, hdr.Name, err))
			return
		}
		if !yield(Entry{Name: hdr.Name, Data: data}, nil) {
			return
		}
	}
}
