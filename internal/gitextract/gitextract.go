// Package gitextract is the sole Git collaborator in the module (spec
// §1's "out of scope" boundary): it reads Base/Left/Right blobs out of
// the unmerged stages of a repository's index. The merge pipeline itself never
// imports this package or touches Git - it only ever sees byte slices.
package gitextract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
)

// Revisions holds the three byte slices extracted for one conflicted
// path. A stage can be absent (e.g. a file added on only one side),
// signaled by HaveBase, HaveLeft and HaveRight.
type Revisions struct {
	Base, Left, Right             []byte
	HaveBase, HaveLeft, HaveRight bool
}

// OpenRepository opens the Git repository containing startPath,
// searching parent directories for a `.git` the way `git` itself does.
func OpenRepository(startPath string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(startPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening git repository at %s: %w", startPath, err)
	}
	return repo, nil
}

// ExtractConflictStages reads the Base (stage 1), Left/"ours" (stage 2)
// and Right/"theirs" (stage 3) blobs for path out of the repository's
// index, the representation Git leaves behind for an unmerged path
// (spec §6 "Language detection"/"out of scope" Git boundary).
func ExtractConflictStages(repo *git.Repository, path string) (Revisions, error) {
	idx, err := repo.Storer.Index()
	if err != nil {
		return Revisions{}, fmt.Errorf("reading git index: %w", err)
	}

	var out Revisions
	for _, entry := range idx.Entries {
		if entry.Name != path {
			continue
		}
		content, err := readBlob(repo, entry.Hash)
		if err != nil {
			return Revisions{}, fmt.Errorf("reading %s stage %d: %w", path, entry.Stage, err)
		}
		switch entry.Stage {
		case index.AncestorMode:
			out.Base, out.HaveBase = content, true
		case index.OurMode:
			out.Left, out.HaveLeft = content, true
		case index.TheirMode:
			out.Right, out.HaveRight = content, true
		}
	}
	if !out.HaveLeft && !out.HaveRight {
		return out, fmt.Errorf("no unmerged stages found for %s (is it actually conflicted?)", path)
	}
	return out, nil
}

func readBlob(repo *git.Repository, hash plumbing.Hash) ([]byte, error) {
	blob, err := repo.BlobObject(hash)
	if err != nil {
		return nil, err
	}
	reader, err := blob.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
