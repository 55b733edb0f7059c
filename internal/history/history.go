// Package history versions the data directory with an embedded git
// repository. Commits are fire-and-forget after mutations: a history
// failure must never fail the operation that triggered it.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog/log"
)

// Tracker commits snapshots of one directory.
type Tracker struct {
	dir  string
	repo *git.Repository
}

// Open opens the git repository at dir, initializing it on first use.
func Open(dir string) (*Tracker, error) {
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainInit(dir, false)
	}
	if err != nil {
		return nil, fmt.Errorf("open history repo: %w", err)
	}
	log.Info().Str("dir", dir).Msg("History tracker ready")
	return &Tracker{dir: dir, repo: repo}, nil
}

// Commit stages everything in the tracked directory and records one
// commit. A clean worktree is not an error.
func (t *Tracker) Commit(_ context.Context, message string) error {
	wt, err := t.repo.Worktree()
	if err != nil {
		return fmt.Errorf("history worktree: %w", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("stage history changes: %w", err)
	}

	_, err = wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "framer",
			Email: "framer@localhost",
			When:  time.Now().UTC(),
		},
	})
	if errors.Is(err, git.ErrEmptyCommit) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("commit history: %w", err)
	}
	log.Debug().Str("message", message).Msg("History committed")
	return nil
}

// Entry is one recorded history commit.
type Entry struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	When    time.Time `json:"when"`
}

// Log returns the most recent commits, newest first.
func (t *Tracker) Log(_ context.Context, limit int) ([]Entry, error) {
	iter, err := t.repo.Log(&git.LogOptions{})
	if err != nil {
		// A repo with no commits yet has no HEAD reference to walk.
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history log: %w", err)
	}
	defer iter.Close()

	var entries []Entry
	err = iter.ForEach(func(c *object.Commit) error {
		if limit > 0 && len(entries) >= limit {
			return errStopIteration
		}
		entries = append(entries, Entry{
			Hash:    c.Hash.String(),
			Message: c.Message,
			When:    c.Author.When,
		})
		return nil
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return nil, fmt.Errorf("iterate history log: %w", err)
	}
	return entries, nil
}

var errStopIteration = errors.New("stop iteration")
