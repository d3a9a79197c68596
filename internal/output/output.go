// Package output renders pipeline responses and status messages for the CLI.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/veracite/veracite/internal/consolidate"
	"github.com/veracite/veracite/internal/index"
	"github.com/veracite/veracite/internal/pipeline"
)

// Writer provides formatted output for the CLI.
type Writer struct {
	out    io.Writer
	styles Styles
}

// New creates an output Writer. Color is disabled when noColor is set or
// the destination is not a terminal.
func New(out io.Writer, noColor bool) *Writer {
	return &Writer{
		out:    out,
		styles: GetStyles(noColor || !IsTerminal(out)),
	}
}

// IsTerminal reports whether the writer is an interactive terminal.
func IsTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Successf prints a success message.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Successf(format string, args ...any) {
	_, _ = fmt.Fprintln(w.out, w.styles.Success.Render(fmt.Sprintf(format, args...)))
}

// Warningf prints a warning message.
func (w *Writer) Warningf(format string, args ...any) {
	_, _ = fmt.Fprintln(w.out, w.styles.Warning.Render(fmt.Sprintf(format, args...)))
}

// Errorf prints an error message.
func (w *Writer) Errorf(format string, args ...any) {
	_, _ = fmt.Fprintln(w.out, w.styles.Error.Render(fmt.Sprintf(format, args...)))
}

// Statusf prints a plain status line.
func (w *Writer) Statusf(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, format+"\n", args...)
}

// Response renders a full search response: answer first, then the
// consolidated documents with their citation excerpts.
func (w *Writer) Response(resp *pipeline.Response) {
	if resp.Message != "" {
		w.Warningf("%s", resp.Message)
		return
	}

	if resp.AnswerText != "" {
		_, _ = fmt.Fprintln(w.out, w.styles.Header.Render("Answer"))
		_, _ = fmt.Fprintln(w.out, w.styles.Answer.Render(resp.AnswerText))
		_, _ = fmt.Fprintln(w.out)
	}

	if len(resp.ConsolidatedDocuments) == 0 {
		return
	}

	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(
		fmt.Sprintf("Sources (%d)", len(resp.ConsolidatedDocuments))))
	for _, doc := range resp.ConsolidatedDocuments {
		w.document(doc)
	}
}

// document renders one consolidated document block.
func (w *Writer) document(doc consolidate.Document) {
	title := doc.Title
	if title == "" {
		title = doc.DocumentID
	}
	_, _ = fmt.Fprintf(w.out, "\n%s %s\n",
		w.styles.DocTitle.Render(title),
		w.relevanceStyle(doc.Relevance).Render("["+string(doc.Relevance)+"]"))

	if meta := docMeta(doc); meta != "" {
		_, _ = fmt.Fprintln(w.out, w.styles.Citation.Render(meta))
	}

	for _, ex := range doc.Excerpts {
		_, _ = fmt.Fprintf(w.out, "  %s\n", w.styles.Excerpt.Render(`"`+ex.Text+`"`))
		if cite := citation(ex); cite != "" {
			_, _ = fmt.Fprintf(w.out, "  %s\n", w.styles.Citation.Render(cite))
		}
	}
}

// Report renders a reindex report.
func (w *Writer) Report(report index.Report) {
	w.Successf("Indexed %d documents (%d chunks, %d embeddings)",
		report.Documents, report.TotalChunks, report.EmbeddingsCreated)
	for _, id := range report.Failed {
		w.Warningf("failed: %s", id)
	}
}

func (w *Writer) relevanceStyle(r consolidate.Relevance) Style {
	switch r {
	case consolidate.RelevanceHigh:
		return w.styles.High
	case consolidate.RelevanceMedium:
		return w.styles.Medium
	default:
		return w.styles.Low
	}
}

// docMeta formats the client/matter/file line for a document.
func docMeta(doc consolidate.Document) string {
	var parts []string
	if doc.Client != "" {
		parts = append(parts, "client: "+doc.Client)
	}
	if doc.Matter != "" {
		parts = append(parts, "matter: "+doc.Matter)
	}
	if doc.FileName != "" {
		parts = append(parts, doc.FileName)
	}
	return strings.Join(parts, "  ")
}

// citation formats the page/line/section locator for an excerpt.
func citation(ex consolidate.Excerpt) string {
	var parts []string
	if ex.Page > 0 {
		parts = append(parts, fmt.Sprintf("p. %d", ex.Page))
	}
	if ex.LineStart > 0 {
		if ex.LineEnd > ex.LineStart {
			parts = append(parts, fmt.Sprintf("lines %d-%d", ex.LineStart, ex.LineEnd))
		} else {
			parts = append(parts, fmt.Sprintf("line %d", ex.LineStart))
		}
	}
	if ex.Section != "" {
		parts = append(parts, ex.Section)
	}
	return strings.Join(parts, ", ")
}
