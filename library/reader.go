package library

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const readerPageSize = 1500

const clearScreen = "\033[2J\033[H"

// ReadEbook pages through the ebook file of bookID for userID, reading
// commands from in and drawing pages to out. An Available book is checked out
// to the reader first; a book lent to someone else is refused. Opening the
// book counts as a view.
func (lm *LibraryManager) ReadEbook(bookID int64, userID string, in io.Reader, out io.Writer) error {
	book, ok, err := lm.store.GetBook(bookID)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("book", bookID)
	}
	if !book.IsEbook || strings.TrimSpace(book.EbookPath) == "" {
		return &ValidationError{Reason: fmt.Sprintf("book %d has no ebook", bookID)}
	}
	reader, err := lm.GetUser(userID)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(filepath.Clean(book.EbookPath))
	if err != nil {
		return fmt.Errorf("open ebook: %w", err)
	}
	pages := paginate(string(content), readerPageSize)
	if len(pages) == 0 {
		return &ValidationError{Reason: fmt.Sprintf("book %d has no content to read", bookID)}
	}

	if book.Status == BookAvailable {
		if _, err := lm.Circulation.Checkout(userID, bookID); err != nil {
			return fmt.Errorf("check out for reading: %w", err)
		}
		fmt.Fprintf(out, "Book '%s' checked out to %s for reading.\n", book.Title, reader.Name)
	} else {
		held, err := lm.Circulation.Borrowings(BorrowingFilter{UserID: userID, BookID: bookID})
		if err != nil {
			return err
		}
		if !holdsOpen(held) {
			return conflict("book %d is checked out by another user", bookID)
		}
	}

	if _, err := lm.Circulation.RecordView(bookID); err != nil {
		return err
	}

	return pageLoop(book, reader, pages, in, out)
}

func holdsOpen(borrowings []Borrowing) bool {
	for _, br := range borrowings {
		if !br.Status.Terminal() {
			return true
		}
	}
	return false
}

// paginate splits text into pages of at most size runes.
func paginate(text string, size int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	pages := make([]string, 0, len(runes)/size+1)
	for i := 0; i < len(runes); i += size {
		end := min(i+size, len(runes))
		pages = append(pages, string(runes[i:end]))
	}
	return pages
}

func pageLoop(book Book, reader User, pages []string, in io.Reader, out io.Writer) error {
	// NewReader hands back in unchanged when the caller already buffers it,
	// so an enclosing shell keeps its place in the stream.
	lines := bufio.NewReader(in)
	rule := strings.Repeat("═", 79)
	current := 0

	fmt.Fprint(out, clearScreen)
	for {
		fmt.Fprintln(out, rule)
		fmt.Fprintf(out, "📖 %s by %s\n", book.Title, book.Author)
		fmt.Fprintf(out, "Reader: %s | Page %d of %d\n", reader.Name, current+1, len(pages))
		fmt.Fprintf(out, "%s\n\n", rule)
		fmt.Fprintln(out, pages[current])
		fmt.Fprintf(out, "\n%s\n", rule)
		fmt.Fprintln(out, "Navigation: [n]ext | [p]revious | [g]oto page | [q]uit")
		fmt.Fprint(out, "> ")

		line, err := readLine(lines)
		if err != nil {
			return endOfInput(err)
		}
		input := strings.ToLower(line)
		fmt.Fprint(out, clearScreen)

		switch input {
		case "n", "next":
			if current < len(pages)-1 {
				current++
			} else {
				fmt.Fprintln(out, "You're already on the last page.")
			}
		case "p", "prev", "previous":
			if current > 0 {
				current--
			} else {
				fmt.Fprintln(out, "You're already on the first page.")
			}
		case "g", "goto":
			fmt.Fprintf(out, "Enter page number (1-%d): ", len(pages))
			line, err := readLine(lines)
			if err != nil {
				return endOfInput(err)
			}
			n, err := strconv.Atoi(line)
			if err != nil {
				fmt.Fprintln(out, "Invalid page number.")
				continue
			}
			current = max(0, min(n-1, len(pages)-1))
		case "q", "quit", "exit":
			fmt.Fprintf(out, "Finished reading '%s'. The book remains checked out to you.\n", book.Title)
			return nil
		case "":
		default:
			fmt.Fprintf(out, "Unknown command: %s\n", input)
		}
	}
}

// readLine returns the next trimmed line, or io.EOF once input is exhausted.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	return strings.TrimSpace(line), err
}

func endOfInput(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
