package capability

import (
	"context"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/chris-bluera/bluera-knowledge/internal/engineerr"
)

// goGit implements Git with go-git, the way the pack's MCP git helper opens
// and walks repositories directly in-process rather than shelling out to the
// git binary.
type goGit struct{}

// NewGoGit creates the go-git-backed Git capability implementation.
func NewGoGit() Git { return goGit{} }

func (goGit) Clone(ctx context.Context, url, localPath, ref string) error {
	opts := &git.CloneOptions{URL: url, Depth: 1}
	if ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(ref)
	}
	_, err := git.PlainCloneContext(ctx, localPath, false, opts)
	if err != nil {
		return engineerr.Wrap(engineerr.IO, "git.Clone", "clone failed for "+url, err)
	}
	return nil
}

func (goGit) Pull(ctx context.Context, localPath string) error {
	repo, err := git.PlainOpen(localPath)
	if err != nil {
		return engineerr.Wrap(engineerr.IO, "git.Pull", "open failed for "+localPath, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return engineerr.Wrap(engineerr.IO, "git.Pull", "worktree unavailable", err)
	}
	err = wt.PullContext(ctx, &git.PullOptions{})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return engineerr.Wrap(engineerr.IO, "git.Pull", "pull failed for "+localPath, err)
	}
	return nil
}

func (goGit) Head(ctx context.Context, localPath string) (CommitInfo, error) {
	repo, err := git.PlainOpen(localPath)
	if err != nil {
		return CommitInfo{}, engineerr.Wrap(engineerr.IO, "git.Head", "open failed for "+localPath, err)
	}
	ref, err := repo.Head()
	if err != nil {
		return CommitInfo{}, engineerr.Wrap(engineerr.IO, "git.Head", "HEAD unavailable", err)
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return CommitInfo{}, engineerr.Wrap(engineerr.IO, "git.Head", "commit object unavailable", err)
	}
	return CommitInfo{
		Hash:    commit.Hash.String(),
		Author:  commit.Author.Name,
		Message: commit.Message,
	}, nil
}
