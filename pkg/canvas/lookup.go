package canvas

import (
	"context"
	"fmt"
	"regexp"

	"github.com/redkyn/canvas-client/pkg/classify"
)

// shortNamePattern finds the search token in a homework name, e.g. "hw3"
// in "hw3-linked-lists".
var shortNamePattern = regexp.MustCompile(`[A-Za-z]+\d+`)

// ShortAssignmentName returns the first letters-then-digits token of name.
func ShortAssignmentName(name string) (string, bool) {
	token := shortNamePattern.FindString(name)
	return token, token != ""
}

// LookupCanvasIDs resolves each section's course ID and the ID of the
// assignment named hwName inside it. Both maps are keyed by section name.
//
// The assignment must match exactly one Canvas assignment per section;
// zero or several matches yield classify.ErrAssignmentNotFound. Any other
// failure to list a section's assignments, a missing course included, is
// reported as ErrAssignmentNotFound only; authentication and name resolution
// failures are returned unchanged.
func (a *API) LookupCanvasIDs(ctx context.Context, sections []Section, hwName string) (map[string]int, map[string]int, error) {
	sectionIDs := make(map[string]int, len(sections))
	for _, section := range sections {
		sectionIDs[section.Name] = section.CourseID
	}

	shortName, ok := ShortAssignmentName(hwName)
	if !ok {
		return nil, nil, classify.New(classify.KindAssignmentNotFound, 0,
			fmt.Errorf("no assignment token in %q", hwName))
	}

	assignmentIDs := make(map[string]int, len(sections))
	for _, section := range sections {
		assignments, err := a.GetCourseAssignments(ctx, section.CourseID, shortName)
		if err != nil {
			a.logger.Error().
				Err(err).
				Str("section", section.Name).
				Msg("Failed to pull assignment list from Canvas")

			switch classify.KindOf(err) {
			case classify.KindAuthenticationFailed, classify.KindNameResolutionFailed:
				return nil, nil, err
			}
			return nil, nil, classify.New(classify.KindAssignmentNotFound, 0,
				fmt.Errorf("section %s: %v", section.Name, err))
		}

		if len(assignments) != 1 {
			a.logger.Error().
				Str("assignment", shortName).
				Str("section", section.Name).
				Int("matches", len(assignments)).
				Msg("Could not uniquely identify Canvas assignment")
			return nil, nil, classify.New(classify.KindAssignmentNotFound, 0,
				fmt.Errorf("%d assignments match %q in section %s", len(assignments), shortName, section.Name))
		}

		assignmentIDs[section.Name] = assignments[0].ID
	}

	return sectionIDs, assignmentIDs, nil
}
