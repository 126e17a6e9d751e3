package main

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"library-insight/library"
)

// Output formats for --output.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// render writes v in the selected format. table draws the human layout.
func (a *app) render(v any, table func(w io.Writer)) error {
	switch a.output {
	case formatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		_, err = fmt.Fprintln(a.out, string(data))
		return err
	case formatYAML:
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		table(a.out)
		return nil
	}
}

func validOutput(format string) bool {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return true
	}
	return false
}

// titleWidth sizes the title column to the terminal, 30 when not a terminal.
func titleWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 30
	}
	cols, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 30
	}
	return max(20, min(60, cols-70))
}

func truncateString(s string, maxLength int) string {
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(r[:maxLength])
	}
	return string(r[:maxLength-3]) + "..."
}

func printBooks(w io.Writer, books []library.BookView) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books found.")
		return
	}
	tw := titleWidth(w)
	fmt.Fprintf(w, "%-5s %-*s %-22s %-16s %-10s %6s %7s %6s\n", "ID", tw, "Title", "Author", "Genre", "Status", "Rating", "Borrows", "Views")
	fmt.Fprintln(w, strings.Repeat("-", tw+80))
	for _, b := range books {
		fmt.Fprintf(w, "%-5d %-*s %-22s %-16s %-10s %6.2f %7d %6d\n",
			b.ID, tw, truncateString(b.Title, tw), truncateString(b.Author, 22), truncateString(b.Genre, 16),
			b.Status, b.AverageRating, b.BorrowCount, b.ViewCount)
	}
}

func printBorrowings(w io.Writer, rows []library.Borrowing) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No borrowings found.")
		return
	}
	fmt.Fprintf(w, "%-6s %-36s %-6s %-16s %-16s %-10s\n", "ID", "User", "Book", "Borrowed", "Due", "Status")
	fmt.Fprintln(w, strings.Repeat("-", 96))
	for _, br := range rows {
		fmt.Fprintf(w, "%-6d %-36s %-6d %-16s %-16s %-10s\n",
			br.ID, br.UserID, br.BookID, br.BorrowDate.Format("2006-01-02 15:04"), br.DueDate.Format("2006-01-02 15:04"), br.Status)
	}
}

func printBorrowingViews(w io.Writer, rows []library.BorrowingView) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No borrowings found.")
		return
	}
	fmt.Fprintf(w, "%-6s %-20s %-30s %-10s %-12s %-12s %-10s\n", "ID", "User", "Book", "Code", "Borrowed", "Due", "Status")
	fmt.Fprintln(w, strings.Repeat("-", 106))
	for _, r := range rows {
		fmt.Fprintf(w, "%-6d %-20s %-30s %-10s %-12s %-12s %-10s\n",
			r.ID, truncateString(r.UserName, 20), truncateString(r.BookTitle, 30), r.BookCode,
			r.BorrowDate.Format("2006-01-02"), r.DueDate.Format("2006-01-02"), r.Status)
	}
}

func printUsers(w io.Writer, users []library.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users registered.")
		return
	}
	fmt.Fprintf(w, "%-36s %-25s %-30s %-8s\n", "ID", "Name", "Email", "Role")
	fmt.Fprintln(w, strings.Repeat("-", 102))
	for _, u := range users {
		fmt.Fprintf(w, "%-36s %-25s %-30s %-8s\n", u.ID, truncateString(u.Name, 25), truncateString(u.Email, 30), u.Role)
	}
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, k := range slices.Sorted(maps.Keys(counts)) {
		n := counts[k]
		if k == "" {
			k = "(none)"
		}
		fmt.Fprintf(w, "  %-30s %d\n", truncateString(k, 30), n)
	}
}
