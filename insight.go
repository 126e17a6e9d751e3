package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"library-insight/library"
)

// ------------------ Recommendations ------------------

func newRecommendCmd(a *app) *cobra.Command {
	var (
		p      library.Preferences
		userID string
	)
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend books by preference, or for a user's reading history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				books []library.BookView
				err   error
			)
			if userID != "" {
				books, err = a.mgr.Recommend.ForUser(userID, p.Count)
			} else {
				books, err = a.mgr.Recommend.ByPreferences(p)
			}
			if err != nil {
				return err
			}
			return a.render(books, func(w io.Writer) { printBooks(w, books) })
		},
	}
	f := cmd.Flags()
	f.StringVar(&p.Genre, "genre", "", "genre substring")
	f.StringVar(&p.Author, "author", "", "author substring")
	f.Float64Var(&p.MinRating, "min-rating", 0, "minimum average rating")
	f.IntVarP(&p.Count, "count", "n", 0, "number of books (default from config)")
	f.StringVar(&userID, "user", "", "personalize for this user")
	return cmd
}

func newSimilarCmd(a *app) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "similar <book-id>",
		Short: "Books sharing a genre or author with a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			books, err := a.mgr.Recommend.Similar(id, count)
			if err != nil {
				return err
			}
			return a.render(books, func(w io.Writer) { printBooks(w, books) })
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "number of books (default from config)")
	return cmd
}

func newTrendingCmd(a *app) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "trending",
		Short: "Most borrowed and viewed books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			books, err := a.mgr.Recommend.Trending(count)
			if err != nil {
				return err
			}
			return a.render(books, func(w io.Writer) { printBooks(w, books) })
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "number of books (default from config)")
	return cmd
}

func newAskCmd(a *app) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the library assistant for recommendations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.mgr.Chatbot.Ask(strings.Join(args, " "), userID)
			if err != nil {
				return err
			}
			return a.render(resp, func(w io.Writer) {
				fmt.Fprintln(w, resp.Message)
				if len(resp.Books) > 0 {
					fmt.Fprintln(w)
					printBooks(w, resp.Books)
				}
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user asking, for personalized answers")
	return cmd
}

// ------------------ Analytics ------------------

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Headline library statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.mgr.Analytics.Dashboard()
			if err != nil {
				return err
			}
			return a.render(s, func(w io.Writer) {
				fmt.Fprintf(w, "Books:       %d total, %d available, %d borrowed, %d ebooks\n",
					s.TotalBooks, s.AvailableBooks, s.BorrowedBooks, s.EbooksCount)
				fmt.Fprintf(w, "Users:       %d members, %d admins\n", s.TotalMembers, s.TotalAdmins)
				fmt.Fprintf(w, "Borrowings:  %d active, %d overdue, %d all time\n",
					s.ActiveBorrowings, s.OverdueBorrowings, s.TotalBorrowingsAllTime)
				fmt.Fprintf(w, "Reviews:     %d, average rating %.2f\n", s.TotalReviews, s.AverageRating)
			})
		},
	}
}

func newTopCmd(a *app) *cobra.Command {
	var count int
	cmd := &cobra.Command{Use: "top", Short: "Top-N rankings"}
	cmd.PersistentFlags().IntVarP(&count, "count", "n", 0, "number of rows (default from config)")

	ranking := func(use, short string, rank func(*library.Analytics, int) ([]library.BookView, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				books, err := rank(a.mgr.Analytics, count)
				if err != nil {
					return err
				}
				return a.render(books, func(w io.Writer) { printBooks(w, books) })
			},
		}
	}

	borrowers := &cobra.Command{
		Use:   "borrowers",
		Short: "Users with the most borrowings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := a.mgr.Analytics.TopBorrowers(count)
			if err != nil {
				return err
			}
			return a.render(rows, func(w io.Writer) {
				if len(rows) == 0 {
					fmt.Fprintln(w, "No borrowings recorded.")
					return
				}
				fmt.Fprintf(w, "%-25s %-30s %6s %7s %8s\n", "Name", "Email", "Total", "Active", "Overdue")
				fmt.Fprintln(w, strings.Repeat("-", 80))
				for _, r := range rows {
					fmt.Fprintf(w, "%-25s %-30s %6d %7d %8d\n", truncateString(r.Name, 25), truncateString(r.Email, 30),
						r.TotalBorrowings, r.ActiveBorrowings, r.OverdueBorrowings)
				}
			})
		},
	}

	cmd.AddCommand(
		ranking("borrowed", "Most borrowed books", (*library.Analytics).TopBorrowed),
		ranking("viewed", "Most viewed books", (*library.Analytics).TopViewed),
		ranking("rated", "Highest rated reviewed books", (*library.Analytics).TopRated),
		borrowers,
	)
	return cmd
}

// ------------------ Reports ------------------

func newReportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "report", Short: "Borrowing, inventory and member reports"}

	var status string
	borrowing := &cobra.Command{
		Use:   "borrowing",
		Short: "Borrowings with status counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := a.mgr.Analytics.BorrowingReport(status)
			if err != nil {
				return err
			}
			return a.render(r, func(w io.Writer) {
				fmt.Fprintf(w, "Total: %d  Active: %d  Returned: %d  Overdue: %d  Cancelled: %d\n\n",
					r.TotalBorrowings, r.ActiveBorrowings, r.ReturnedBorrowings, r.OverdueBorrowings, r.CancelledBorrowings)
				printBorrowingViews(w, r.Borrowings)
			})
		},
	}
	borrowing.Flags().StringVar(&status, "status", "", "only borrowings with this status")

	var filter library.InventoryFilter
	inventory := &cobra.Command{
		Use:   "inventory",
		Short: "Catalog inventory with breakdowns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := a.mgr.Analytics.InventoryReport(filter)
			if err != nil {
				return err
			}
			return a.render(r, func(w io.Writer) {
				fmt.Fprintf(w, "Total: %d  Available: %d  Borrowed: %d  Ebooks: %d\n\n",
					r.TotalBooks, r.AvailableBooks, r.BorrowedBooks, r.Ebooks)
				printBooks(w, r.Books)
				printCounts(w, "By genre", r.BooksByGenre)
				printCounts(w, "By author", r.BooksByAuthor)
				printCounts(w, "By publisher", r.BooksByPublisher)
			})
		},
	}
	inventory.Flags().StringVar(&filter.Genre, "genre", "", "exact genre, any case")
	inventory.Flags().StringVar(&filter.Author, "author", "", "author substring")
	inventory.Flags().StringVar(&filter.Publisher, "publisher", "", "publisher substring")

	members := &cobra.Command{
		Use:   "members",
		Short: "Registered users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := a.mgr.Analytics.MemberReport()
			if err != nil {
				return err
			}
			return a.render(r, func(w io.Writer) {
				fmt.Fprintf(w, "Members: %d  Admins: %d  Active borrowers: %d  (generated %s)\n\n",
					r.TotalMembers, r.TotalAdmins, r.ActiveBorrowers, r.GeneratedAt.Format("2006-01-02 15:04"))
				printUsers(w, r.Members)
			})
		},
	}

	var months int
	trend := &cobra.Command{
		Use:   "trend",
		Short: "Borrowings per month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := a.mgr.Analytics.BorrowingTrend(months)
			if err != nil {
				return err
			}
			return a.render(rows, func(w io.Writer) {
				for _, m := range rows {
					fmt.Fprintf(w, "%-10s %5d %s\n", m.Month, m.Count, strings.Repeat("#", min(m.Count, 60)))
				}
			})
		},
	}
	trend.Flags().IntVar(&months, "months", library.DefaultTrendMonths, "number of months ending this month")

	var count int
	genres := &cobra.Command{
		Use:   "genres",
		Short: "Books per genre",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := a.mgr.Analytics.GenreDistribution(count)
			if err != nil {
				return err
			}
			return a.render(rows, func(w io.Writer) {
				if len(rows) == 0 {
					fmt.Fprintln(w, "No genres recorded.")
					return
				}
				for _, g := range rows {
					fmt.Fprintf(w, "%-30s %5d\n", truncateString(g.Genre, 30), g.Count)
				}
			})
		},
	}
	genres.Flags().IntVarP(&count, "count", "n", 0, "number of genres (default from config)")

	cmd.AddCommand(borrowing, inventory, members, trend, genres)
	return cmd
}
