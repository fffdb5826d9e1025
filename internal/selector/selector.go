package selector

import (
	"fmt"
	"strconv"

	"go-songsterr-download/internal/api"
	"go-songsterr-download/internal/models"
	"go-songsterr-download/internal/prompt"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const revisionPrompt = "Choose a revision number (Enter for latest): "

// Latest returns the highest revisionId. createdAt is deliberately ignored:
// "latest" means the largest id even when the timestamps disagree.
func Latest(revisions []models.Revision) (int, error) {
	if len(revisions) == 0 {
		return 0, api.ErrNoRevisions
	}
	best := lo.MaxBy(revisions, func(a, b models.Revision) bool {
		return a.RevisionID > b.RevisionID
	})
	return best.RevisionID, nil
}

// Selector picks one revision of a song.
type Selector struct {
	prompter *prompt.Prompter
}

// New creates a Selector. prompter may be nil for batch-only use.
func New(prompter *prompt.Prompter) *Selector {
	return &Selector{prompter: prompter}
}

// Select returns the revision to download. Batch mode always takes Latest.
// Interactive mode auto-picks a lone revision, otherwise lists them and lets
// the user choose; a blank answer means Latest.
func (s *Selector) Select(revisions []models.Revision, interactive bool) (int, error) {
	if len(revisions) == 0 {
		return 0, api.ErrNoRevisions
	}
	if !interactive {
		return Latest(revisions)
	}
	if len(revisions) == 1 {
		log.Debugf("Only one revision (%d), selecting it without prompting", revisions[0].RevisionID)
		return revisions[0].RevisionID, nil
	}
	if s.prompter == nil {
		return 0, fmt.Errorf("interactive revision selection needs a prompter")
	}

	rows := lo.Map(revisions, func(rev models.Revision, _ int) []string {
		createdAt := rev.CreatedAt
		if createdAt == "" {
			createdAt = "?"
		}
		return []string{strconv.Itoa(rev.RevisionID), createdAt, rev.Author.DisplayName()}
	})
	s.prompter.Table("Available revisions:", []string{"Revision ID", "Created At", "Author"}, rows)

	idx, blank, err := s.prompter.Choose(revisionPrompt, len(revisions), true)
	if err != nil {
		return 0, err
	}
	if blank {
		return Latest(revisions)
	}
	return revisions[idx].RevisionID, nil
}
