package storage

import (
	"fmt"

	"github.com/Epistemic-Technology/paper-assistant/models"
)

// CalculateResourcePaths returns the resource URIs that can currently be read
// for a paper. Summary and compliance resources exist only once processing
// has completed.
func CalculateResourcePaths(paper *models.Paper) []string {
	paths := []string{fmt.Sprintf("paper://%s", paper.ID)}

	if paper.Status == models.PaperStatusCompleted {
		paths = append(paths,
			fmt.Sprintf("paper://%s/summary", paper.ID),
			fmt.Sprintf("paper://%s/compliance", paper.ID),
		)
	}

	return append(paths, fmt.Sprintf("paper://%s/chat", paper.ID))
}
