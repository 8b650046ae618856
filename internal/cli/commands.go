package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
)

func (a *app) coursesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "courses",
		Short: "List courses you teach, assist or grade",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			courses, err := a.api.GetInstructorCourses(a.context(cmd))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), courses)
		},
	}
}

func (a *app) studentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "students <course-id>",
		Short: "List the active students of a course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			courseID, err := parseID("course id", args[0])
			if err != nil {
				return err
			}

			students, err := a.api.GetCourseStudents(a.context(cmd), courseID)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), students)
		},
	}
}

func (a *app) assignmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assignments <course-id> [search-term]",
		Short: "List a course's assignments, optionally filtered by name",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			courseID, err := parseID("course id", args[0])
			if err != nil {
				return err
			}

			var search string
			if len(args) == 2 {
				search = args[1]
			}

			assignments, err := a.api.GetCourseAssignments(a.context(cmd), courseID, search)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), assignments)
		},
	}
}

func (a *app) gradeCmd() *cobra.Command {
	var comment string

	cmd := &cobra.Command{
		Use:   "grade <course-id> <assignment-id> <student-id> <grade>",
		Short: "Post a grade for a student's submission",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int, 3)
			for i, name := range []string{"course id", "assignment id", "student id"} {
				id, err := parseID(name, args[i])
				if err != nil {
					return err
				}
				ids[i] = id
			}

			submission, err := a.api.PutAssignmentSubmission(a.context(cmd), ids[0], ids[1], ids[2], args[3], comment)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), submission)
		},
	}

	cmd.Flags().StringVarP(&comment, "comment", "m", "", "text comment attached to the submission")
	return cmd
}

func (a *app) lookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <homework-name>",
		Short: "Resolve course and assignment IDs for every configured section",
		Long: `lookup finds the Canvas assignment matching a homework name (e.g.
"hw3-linked-lists" searches for "hw3") in every section listed under
"sections" in the config file. Each section must match exactly one assignment.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(a.cfg.Sections) == 0 {
				return fmt.Errorf("no sections configured")
			}

			courseIDs, assignmentIDs, err := a.api.LookupCanvasIDs(a.context(cmd), a.cfg.Sections, args[0])
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), map[string]map[string]int{
				"courses":     courseIDs,
				"assignments": assignmentIDs,
			})
		},
	}
}

func parseID(name, value string) (int, error) {
	id, err := strconv.Atoi(value)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, value)
	}
	return id, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
