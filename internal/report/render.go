package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/starford/obvault/internal/models"
)

// WriteInvalid prints each invalid note followed by its indented issues.
func WriteInvalid(w io.Writer, invalid []InvalidNote) error {
	if len(invalid) == 0 {
		_, err := fmt.Fprintln(w, "All notes are valid.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Invalid Notes"); err != nil {
		return err
	}
	for _, in := range invalid {
		if _, err := fmt.Fprintf(w, "  %s\n", in.Subpath); err != nil {
			return err
		}
		for _, is := range in.Issues {
			if _, err := fmt.Fprintf(w, "    - %s\n", is); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteTodo prints the todo-tagged notes, then a note/task table.
func WriteTodo(w io.Writer, r TodoReport) error {
	if _, err := fmt.Fprintln(w, "Notes with #todo tags"); err != nil {
		return err
	}
	for _, sp := range r.Notes {
		if _, err := fmt.Fprintf(w, "  %s\n", sp); err != nil {
			return err
		}
	}
	if len(r.Tasks) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "\nTasks"); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NOTE\tTASK")
	for _, task := range r.Tasks {
		for i, line := range task.Lines {
			note := ""
			if i == 0 {
				note = task.Subpath.String()
			}
			fmt.Fprintf(tw, "%s\t%s\n", note, line)
		}
	}
	return tw.Flush()
}

// WriteTags prints a tag/count table.
func WriteTags(w io.Writer, counts []TagCount) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TAG\tNOTES")
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%d\n", c.Tag, c.Count)
	}
	return tw.Flush()
}

// WriteSubpaths prints one subpath per line.
func WriteSubpaths(w io.Writer, subpaths []models.Subpath) error {
	for _, sp := range subpaths {
		if _, err := fmt.Fprintln(w, sp); err != nil {
			return err
		}
	}
	return nil
}
