package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"library-insight/library"
)

func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, &library.ValidationError{Reason: fmt.Sprintf("invalid %s ID: %s", kind, s)}
	}
	return id, nil
}

// titleCase turns "overdue" into "Overdue" and "dark" into "Dark".
func titleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// ------------------ Catalog ------------------

func newBookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "book", Short: "Manage catalog books"}
	cmd.AddCommand(newBookAddCmd(a), newBookListCmd(a), newBookShowCmd(a))
	return cmd
}

func newBookAddCmd(a *app) *cobra.Command {
	var (
		b         library.Book
		published string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if published != "" {
				t, err := time.Parse("2006-01-02", published)
				if err != nil {
					return &library.ValidationError{Reason: "published date must be YYYY-MM-DD", Err: err}
				}
				b.PublishedAt = t
			}
			added, err := a.mgr.AddBook(b)
			if err != nil {
				return err
			}
			return a.render(added, func(w io.Writer) {
				fmt.Fprintf(w, "Added book ID %d: '%s' by %s\n", added.ID, added.Title, added.Author)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&b.Code, "code", "", "catalog code")
	f.StringVar(&b.Title, "title", "", "title")
	f.StringVar(&b.Author, "author", "", "author")
	f.StringVar(&b.Publisher, "publisher", "", "publisher")
	f.StringVar(&b.Genre, "genre", "", "genre")
	f.StringVar(&b.Description, "description", "", "description")
	f.StringVar(&b.CoverPath, "cover", "", "cover image path")
	f.BoolVar(&b.IsEbook, "ebook", false, "the book is an ebook")
	f.StringVar(&b.EbookPath, "ebook-path", "", "ebook text file")
	f.StringVar(&published, "published", "", "publication date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("author")
	return cmd
}

func newBookListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			books, err := a.mgr.ListBooks()
			if err != nil {
				return err
			}
			return a.render(books, func(w io.Writer) { printBooks(w, books) })
		},
	}
}

func newBookShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <book-id>",
		Short: "Show one book with its rating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			v, err := a.mgr.GetBook(id)
			if err != nil {
				return err
			}
			return a.render(v, func(w io.Writer) { fmt.Fprintln(w, library.PrettyBook(v)) })
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over title, author, genre and description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			books, err := a.mgr.SearchBooks(query)
			if err != nil {
				return err
			}
			return a.render(books, func(w io.Writer) {
				if len(books) == 0 {
					fmt.Fprintf(w, "No books found matching '%s'.\n", query)
					return
				}
				fmt.Fprintf(w, "Found %d book(s) matching '%s':\n", len(books), query)
				printBooks(w, books)
			})
		},
	}
}

func newViewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "view <book-id>",
		Short: "Record a view of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			b, err := a.mgr.Circulation.RecordView(id)
			if err != nil {
				return err
			}
			return a.render(b, func(w io.Writer) {
				fmt.Fprintf(w, "'%s' has been viewed %d time(s)\n", b.Title, b.ViewCount)
			})
		},
	}
}

func newReadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read <book-id> <user-id>",
		Short: "Read an ebook page by page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			return a.mgr.ReadEbook(id, args[1], a.in, a.out)
		},
	}
}

// ------------------ Users ------------------

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage library users"}

	var (
		email string
		admin bool
	)
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a user",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := library.RoleMember
			if admin {
				role = library.RoleAdmin
			}
			u, err := a.mgr.AddUser(strings.Join(args, " "), email, role)
			if err != nil {
				return err
			}
			return a.render(u, func(w io.Writer) {
				fmt.Fprintf(w, "Added %s '%s' with ID %s\n", strings.ToLower(string(u.Role)), u.Name, u.ID)
			})
		},
	}
	add.Flags().StringVar(&email, "email", "", "email address")
	add.Flags().BoolVar(&admin, "admin", false, "register as an administrator")
	_ = add.MarkFlagRequired("email")

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := a.mgr.ListUsers()
			if err != nil {
				return err
			}
			return a.render(users, func(w io.Writer) { printUsers(w, users) })
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

// ------------------ Circulation ------------------

func newCheckoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <book-id> <user-id>",
		Short: "Lend an available book to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			br, err := a.mgr.Circulation.Checkout(args[1], id)
			if err != nil {
				return err
			}
			return a.render(br, func(w io.Writer) {
				fmt.Fprintf(w, "Borrowing %d: book %d checked out to %s, due %s\n",
					br.ID, br.BookID, br.UserID, br.DueDate.Format("2006-01-02"))
			})
		},
	}
}

// newReleaseCmd builds return and cancel, which differ only in the operation.
func newReleaseCmd(use, short, done string, release func(int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <borrowing-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("borrowing", args[0])
			if err != nil {
				return err
			}
			if err := release(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Borrowing %d %s. Book is now available for checkout\n", id, done)
			return nil
		},
	}
}

func newReturnCmd(a *app) *cobra.Command {
	return newReleaseCmd("return", "Return a borrowed book", "returned", func(id int64) error {
		return a.mgr.Circulation.Return(id)
	})
}

func newCancelCmd(a *app) *cobra.Command {
	return newReleaseCmd("cancel", "Cancel an open borrowing", "cancelled", func(id int64) error {
		return a.mgr.Circulation.Cancel(id)
	})
}

func newMarkOverdueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-overdue <borrowing-id>",
		Short: "Mark one borrowing overdue if it is past due",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("borrowing", args[0])
			if err != nil {
				return err
			}
			if err := a.mgr.Circulation.MarkOverdue(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Borrowing %d checked for overdue\n", id)
			return nil
		},
	}
}

func newOverdueCmd(a *app) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List overdue borrowings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if refresh {
				n, err := a.mgr.Circulation.RefreshOverdue()
				if err != nil {
					return err
				}
				a.log.Info().Int("marked", n).Msg("overdue refresh")
			}
			rows, err := a.mgr.Circulation.OverdueBorrowings()
			if err != nil {
				return err
			}
			return a.render(rows, func(w io.Writer) { printBorrowings(w, rows) })
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "persist the Overdue status for every past-due borrowing first")
	return cmd
}

func newBorrowingsCmd(a *app) *cobra.Command {
	var (
		f      library.BorrowingFilter
		bookID int64
		status string
	)
	cmd := &cobra.Command{
		Use:   "borrowings",
		Short: "List borrowings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f.BookID = bookID
			f.Status = library.BorrowingStatus(titleCase(status))
			rows, err := a.mgr.Circulation.Borrowings(f)
			if err != nil {
				return err
			}
			return a.render(rows, func(w io.Writer) { printBorrowings(w, rows) })
		},
	}
	cmd.Flags().StringVar(&f.UserID, "user", "", "only this user's borrowings")
	cmd.Flags().Int64Var(&bookID, "book", 0, "only borrowings of this book")
	cmd.Flags().StringVar(&status, "status", "", "Active, Overdue, Returned or Cancelled")
	return cmd
}
