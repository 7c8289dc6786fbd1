// analytics_cmd.go -- analytics overview|by-day|by-status|by-category|events.
package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/michame/console/internal/format"
)

func newAnalyticsCommand(app *App) *cobra.Command {
	analytics := &cobra.Command{
		Use:   "analytics",
		Short: "Ride and revenue analytics",
	}

	overview := &cobra.Command{
		Use:   "overview",
		Short: "Headline counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			ov, err := app.reader().Overview(ctx)
			if err != nil {
				return err
			}
			return app.render(ov, func() *table {
				return kv(
					"Rides total", strconv.Itoa(ov.Rides.Total),
					"Rides today", strconv.Itoa(ov.Rides.Today),
					"Rides this week", strconv.Itoa(ov.Rides.Week),
					"Active rides", strconv.Itoa(ov.Rides.Active),
					"Completion rate", ov.Rides.CompletionRate+"%",
					"Cancellation rate", ov.Rides.CancellationRate+"%",
					"Revenue today", format.Price(ov.Revenue.Today, "BRL"),
					"Revenue this week", format.Price(ov.Revenue.Week, "BRL"),
					"Revenue this month", format.Price(ov.Revenue.Month, "BRL"),
					"Customers", strconv.Itoa(ov.Customers.Total),
					"Active conversations", strconv.Itoa(ov.Conversations.Active),
				)
			})
		},
	}

	byDay := &cobra.Command{
		Use:   "by-day",
		Short: "Rides per day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			days, _ := cmd.Flags().GetInt("days")
			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			data, err := app.reader().RidesByDay(ctx, days)
			if err != nil {
				return err
			}
			return app.render(data, func() *table {
				t := newTable("DATE", "RIDES", "COMPLETED", "REVENUE")
				for _, d := range data {
					t.add(d.Date, strconv.Itoa(d.Rides), strconv.Itoa(d.Completed), format.Price(d.Revenue, "BRL"))
				}
				return t
			})
		},
	}
	byDay.Flags().Int("days", 7, "number of trailing days")

	byStatus := &cobra.Command{
		Use:   "by-status",
		Short: "Ride counts per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			data, err := app.reader().RidesByStatus(ctx)
			if err != nil {
				return err
			}
			return app.render(data, func() *table {
				t := newTable("STATUS", "COUNT")
				for _, d := range data {
					t.add(d.Status, strconv.Itoa(d.Count))
				}
				return t
			})
		},
	}

	byCategory := &cobra.Command{
		Use:   "by-category",
		Short: "Ride counts per vehicle category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			data, err := check(app.client.RidesByCategory(ctx), "Failed to load categories")
			if err != nil {
				return err
			}
			return app.render(data, func() *table {
				t := newTable("CATEGORY", "COUNT")
				for _, d := range data {
					t.add(d.Category, strconv.Itoa(d.Count))
				}
				return t
			})
		},
	}

	events := &cobra.Command{
		Use:   "events",
		Short: "Recent ride events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			data, err := app.reader().RecentEvents(ctx, limit)
			if err != nil {
				return err
			}
			return app.render(data, func() *table {
				t := newTable("WHEN", "TYPE", "RIDE", "TITLE", "CUSTOMER")
				for _, e := range data {
					t.add(format.RelativeTime(e.Timestamp), e.Type, e.RideID, e.Title, format.Deref(e.CustomerName, "-"))
				}
				return t
			})
		},
	}
	events.Flags().Int("limit", 10, "maximum events")

	analytics.AddCommand(overview, byDay, byStatus, byCategory, events)
	return analytics
}
