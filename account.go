package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"library-insight/library"
)

// ------------------ Reviews ------------------

func printReviews(w io.Writer, reviews []library.Review) {
	if len(reviews) == 0 {
		fmt.Fprintln(w, "No reviews yet.")
		return
	}
	fmt.Fprintf(w, "Average rating %.2f over %d review(s)\n", library.AverageRating(reviews), len(reviews))
	fmt.Fprintf(w, "%-5s %-36s %-6s %-6s %-12s %s\n", "ID", "User", "Book", "Rating", "Date", "Comment")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, r := range reviews {
		fmt.Fprintf(w, "%-5d %-36s %-6d %-6s %-12s %s\n", r.ID, r.UserID, r.BookID,
			strings.Repeat("*", r.Rating), r.ReviewDate.Format("2006-01-02"), truncateString(r.Comment, 40))
	}
}

func newReviewCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "review", Short: "Rate and review books"}

	var (
		rating  int
		comment string
	)
	add := &cobra.Command{
		Use:   "add <book-id> <user-id>",
		Short: "Review a book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			r, err := a.mgr.Reviews.Add(args[1], bookID, rating, comment)
			if err != nil {
				return err
			}
			return a.render(r, func(w io.Writer) { fmt.Fprintf(w, "Added review ID %d\n", r.ID) })
		},
	}
	add.Flags().IntVar(&rating, "rating", 0, "rating from 1 to 5")
	add.Flags().StringVar(&comment, "comment", "", "review text")
	_ = add.MarkFlagRequired("rating")

	update := &cobra.Command{
		Use:   "update <review-id>",
		Short: "Change a review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("review", args[0])
			if err != nil {
				return err
			}
			r, err := a.mgr.Reviews.Update(id, rating, comment)
			if err != nil {
				return err
			}
			return a.render(r, func(w io.Writer) { fmt.Fprintf(w, "Updated review ID %d\n", r.ID) })
		},
	}
	update.Flags().IntVar(&rating, "rating", 0, "rating from 1 to 5")
	update.Flags().StringVar(&comment, "comment", "", "review text")
	_ = update.MarkFlagRequired("rating")

	del := &cobra.Command{
		Use:   "delete <review-id>",
		Short: "Delete a review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("review", args[0])
			if err != nil {
				return err
			}
			if err := a.mgr.Reviews.Delete(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted review ID %d\n", id)
			return nil
		},
	}

	var (
		bookID int64
		userID string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List reviews of a book or by a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				reviews []library.Review
				err     error
			)
			switch {
			case bookID != 0:
				reviews, err = a.mgr.Reviews.ByBook(bookID)
			case userID != "":
				reviews, err = a.mgr.Reviews.ByUser(userID)
			default:
				return &library.ValidationError{Reason: "one of --book or --user is required"}
			}
			if err != nil {
				return err
			}
			return a.render(reviews, func(w io.Writer) { printReviews(w, reviews) })
		},
	}
	list.Flags().Int64Var(&bookID, "book", 0, "reviews of this book")
	list.Flags().StringVar(&userID, "user", "", "reviews written by this user")

	cmd.AddCommand(add, update, del, list)
	return cmd
}

// ------------------ Notifications ------------------

func newNotifyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "notify", Short: "User notifications"}

	send := &cobra.Command{
		Use:   "send <user-id> <message>",
		Short: "Send a notification to a user",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.mgr.Notifications.Notify(args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return a.render(n, func(w io.Writer) { fmt.Fprintf(w, "Sent notification ID %d\n", n.ID) })
		},
	}

	var unread bool
	list := &cobra.Command{
		Use:   "list <user-id>",
		Short: "List a user's notifications, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			notes, err := a.mgr.Notifications.List(args[0], unread)
			if err != nil {
				return err
			}
			return a.render(notes, func(w io.Writer) {
				if len(notes) == 0 {
					fmt.Fprintln(w, "No notifications.")
					return
				}
				for _, n := range notes {
					mark := " "
					if !n.IsRead {
						mark = "*"
					}
					fmt.Fprintf(w, "%s %-5d %-16s %s\n", mark, n.ID, n.Timestamp.Format("2006-01-02 15:04"), n.Message)
				}
			})
		},
	}
	list.Flags().BoolVar(&unread, "unread", false, "only unread notifications")

	read := &cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark a notification read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("notification", args[0])
			if err != nil {
				return err
			}
			return a.mgr.Notifications.MarkRead(id)
		},
	}

	readAll := &cobra.Command{
		Use:   "read-all <user-id>",
		Short: "Mark every notification of a user read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mgr.Notifications.MarkAllRead(args[0])
		},
	}

	del := &cobra.Command{
		Use:   "delete <notification-id>",
		Short: "Delete a notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("notification", args[0])
			if err != nil {
				return err
			}
			return a.mgr.Notifications.Delete(id)
		},
	}

	cmd.AddCommand(send, list, read, readAll, del)
	return cmd
}

// ------------------ Settings ------------------

func newThemeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "theme", Short: "Per-user display theme"}

	show := &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show a user's theme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.mgr.Settings.ForUser(args[0])
			if err != nil {
				return err
			}
			return a.render(s, func(w io.Writer) { fmt.Fprintln(w, s.Theme) })
		},
	}

	set := &cobra.Command{
		Use:   "set <user-id> <Light|Dark>",
		Short: "Change a user's theme",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.mgr.Settings.UpdateTheme(args[0], titleCase(args[1]))
			if err != nil {
				return err
			}
			return a.render(s, func(w io.Writer) { fmt.Fprintf(w, "Theme set to %s\n", s.Theme) })
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}

// ------------------ Metrics ------------------

// metricSample is one flattened library_* series for display.
type metricSample struct {
	Name   string            `json:"name" yaml:"name"`
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Value  float64           `json:"value" yaml:"value"`
}

func gatherLibraryMetrics(g prometheus.Gatherer) ([]metricSample, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	var samples []metricSample
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "library_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			s := metricSample{Name: mf.GetName(), Labels: make(map[string]string)}
			for _, lp := range m.GetLabel() {
				s.Labels[lp.GetName()] = lp.GetValue()
			}
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				s.Value = m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				s.Value = m.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				s.Name += "_count"
				s.Value = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			samples = append(samples, s)
		}
	}
	return samples, nil
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for k, v := range labels {
		parts = append(parts, fmt.Sprintf("%s=%q", k, v))
	}
	slices.Sort(parts)
	return "{" + strings.Join(parts, ",") + "}"
}

func newMetricsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Circulation and engine counters for this process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			samples, err := gatherLibraryMetrics(prometheus.DefaultGatherer)
			if err != nil {
				return err
			}
			return a.render(samples, func(w io.Writer) {
				if len(samples) == 0 {
					fmt.Fprintln(w, "No library metrics recorded in this session.")
					return
				}
				for _, s := range samples {
					fmt.Fprintf(w, "%s%s %g\n", s.Name, formatLabels(s.Labels), s.Value)
				}
			})
		},
	}
}
