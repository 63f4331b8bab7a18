// Package bugreport bundles a merge reproducer (the three input
// revisions and the stored merged outputs) into one
// zstd-compressed tarball for `mergiraf report` (spec §6 "report").
package bugreport

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// File is one named entry to include in the bundle.
type File struct {
	Name    string
	Content []byte
}

// Build packs files into a zstd-compressed tar archive and returns its
// bytes.
func Build(files []File) ([]byte, error) {
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)

	for _, f := range files {
		hdr := &tar.Header{
			Name: f.Name,
			Mode: 0o644,
			Size: int64(len(f.Content)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("writing tar header for %s: %w", f.Name, err)
		}
		if _, err := tw.Write(f.Content); err != nil {
			return nil, fmt.Errorf("writing tar entry %s: %w", f.Name, err)
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("closing tar writer: %w", err)
	}

	var compressed bytes.Buffer
	encoder, err := zstd.NewWriter(&compressed)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	if _, err := encoder.Write(tarBuf.Bytes()); err != nil {
		encoder.Close()
		return nil, fmt.Errorf("compressing bug report: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("closing zstd encoder: %w", err)
	}

	return compressed.Bytes(), nil
}

// Extract reverses Build, returning the archive's files.
func Extract(bundle []byte) ([]File, error) {
	decoder, err := zstd.NewReader(bytes.NewReader(bundle))
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer decoder.Close()

	tr := tar.NewReader(decoder)
	var out []File
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar entry: %w", err)
		}
		content := make([]byte, hdr.Size)
		if _, err := io.ReadFull(tr, content); err != nil {
			return nil, fmt.Errorf("reading tar content for %s: %w", hdr.Name, err)
		}
		out = append(out, File{Name: hdr.Name, Content: content})
	}
	return out, nil
}
