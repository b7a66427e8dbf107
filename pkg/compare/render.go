package compare

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// String returns the report as uncoloured text.
func (r *Report) String() string {
	var sb strings.Builder
	_ = r.Render(&sb, false)
	return sb.String()
}

// Render writes the report as text. With useColor set, change types and diff
// lines are coloured.
func (r *Report) Render(w io.Writer, useColor bool) error {
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	modified := color.New(color.FgYellow)
	header := color.New(color.Bold)
	for _, c := range []*color.Color{added, removed, modified, header} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	var sb strings.Builder
	sb.WriteString(header.Sprintf("Catalog diff: %s -> %s", r.Base, r.Target))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")

	sb.WriteString("Summary:\n")
	sb.WriteString(fmt.Sprintf("  Modules added: %d\n", r.Added))
	sb.WriteString(fmt.Sprintf("  Modules removed: %d\n", r.Removed))
	sb.WriteString(fmt.Sprintf("  Modules modified: %d\n", r.Modified))
	sb.WriteString(fmt.Sprintf("  Modules unchanged: %d\n", r.Unchanged))

	if len(r.Changes) > 0 {
		sb.WriteString("\nChanges:\n")
	}
	for _, change := range r.Changes {
		label := change.Type.String()
		switch change.Type {
		case ChangeAdded:
			label = added.Sprint(label)
		case ChangeRemoved:
			label = removed.Sprint(label)
		case ChangeModified:
			label = modified.Sprint(label)
		}

		ref := change.Code
		if change.Occurrence > 0 {
			ref = fmt.Sprintf("%s (#%d)", change.Code, change.Occurrence+1)
		}
		sb.WriteString(fmt.Sprintf("\n%s %s: %s\n", label, ref, change.Name))

		for _, field := range change.Fields {
			sb.WriteString(fmt.Sprintf("  %s (%d%% similar)\n", field.Field, field.Similarity))
			for _, line := range strings.Split(strings.TrimSuffix(field.Diff, "\n"), "\n") {
				if line == "" {
					continue
				}
				switch {
				case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
					line = header.Sprint(line)
				case strings.HasPrefix(line, "+"):
					line = added.Sprint(line)
				case strings.HasPrefix(line, "-"):
					line = removed.Sprint(line)
				}
				sb.WriteString("    " + line + "\n")
			}
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
