// rides_cmd.go -- rides list|get|logs|refresh|cancel.
package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/michame/console/internal/apiclient"
	"github.com/michame/console/internal/datasource"
	"github.com/michame/console/internal/format"
	"github.com/michame/console/internal/models"
)

func newRidesCommand(app *App) *cobra.Command {
	rides := &cobra.Command{
		Use:   "rides",
		Short: "Inspect and act on ride requests",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List rides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			status, _ := f.GetString("status")
			search, _ := f.GetString("search")
			page, _ := f.GetInt("page")
			limit, _ := f.GetInt("limit")

			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			q := apiclient.RideQuery{Page: page, Limit: limit}
			if status != datasource.StatusAll {
				q.Status = status
			}
			return app.watch(cmd, func(ctx context.Context) error {
				res, err := app.reader().Rides(ctx, q)
				if err != nil {
					return err
				}
				res.Rides = datasource.FilterRides(res.Rides, search, datasource.StatusAll)
				return app.render(res, func() *table { return ridesTable(res.Rides) })
			})
		},
	}
	list.Flags().String("status", "", "filter by status (requested, accepted, no-driver, failed, completed, cancelled)")
	list.Flags().String("search", "", "filter by ride id or phone number")
	list.Flags().Int("page", 1, "page number")
	list.Flags().Int("limit", datasource.DefaultPageSize, "rides per page")
	addWatchFlags(list)

	get := &cobra.Command{
		Use:   "get <ride-id>",
		Short: "Show one ride with its event timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			return app.watch(cmd, func(ctx context.Context) error {
				ride, err := app.reader().Ride(ctx, args[0])
				if err != nil {
					return err
				}
				return app.render(ride, func() *table { return rideDetail(ride) })
			})
		},
	}
	addWatchFlags(get)

	logs := &cobra.Command{
		Use:   "logs <ride-id>",
		Short: "Show the message and API log of a ride",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			return app.watch(cmd, func(ctx context.Context) error {
				entries, err := app.reader().RideLogs(ctx, args[0])
				if err != nil {
					return err
				}
				return app.render(entries, func() *table {
					t := newTable("TIME", "TYPE", "DIRECTION", "CONTENT")
					for _, e := range entries {
						t.add(format.Timestamp(e.Timestamp), e.Type, orDash(e.Direction), format.Truncate(e.Content, 80))
					}
					return t
				})
			})
		},
	}
	addWatchFlags(logs)

	refresh := &cobra.Command{
		Use:   "refresh <ride-id>",
		Short: "Re-sync a ride with the dispatch provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			ride, err := check(app.client.RefreshRide(ctx, args[0]), "Failed to refresh ride")
			if err != nil {
				return err
			}
			return app.render(ride, func() *table { return rideDetail(ride) })
		},
	}

	cancel := &cobra.Command{
		Use:   "cancel <ride-id>",
		Short: "Cancel a ride",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason, _ := cmd.Flags().GetString("reason")
			ctx := cmd.Context()
			if err := app.authed(ctx); err != nil {
				return err
			}
			ride, err := check(app.client.CancelRide(ctx, args[0], reason), "Failed to cancel ride")
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Err, "Ride %s cancelled\n", ride.ID)
			return app.render(ride, func() *table { return rideDetail(ride) })
		},
	}
	cancel.Flags().String("reason", "", "cancellation reason")

	rides.AddCommand(list, get, logs, refresh, cancel)
	return rides
}

func addWatchFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("watch", "w", false, "keep polling until interrupted")
	cmd.Flags().Duration("interval", 0, "poll interval with --watch (default MICHAME_POLL_INTERVAL)")
}

// watch runs fn once, or repeatedly every interval when --watch is set.
// Cancellation of the command context ends the loop without error.
func (a *App) watch(cmd *cobra.Command, fn func(ctx context.Context) error) error {
	ctx := cmd.Context()
	if err := fn(ctx); err != nil {
		return err
	}
	if on, _ := cmd.Flags().GetBool("watch"); !on {
		return nil
	}

	every, _ := cmd.Flags().GetDuration("interval")
	if every <= 0 {
		every = a.Config.PollInterval
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			fmt.Fprintf(a.Out, "\n-- %s --\n", format.Timestamp(now))
			if err := fn(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

func ridesTable(rides []models.Ride) *table {
	t := newTable("ID", "STATUS", "CUSTOMER", "PHONE", "PICKUP", "DROPOFF", "PRICE", "WHEN")
	for _, r := range rides {
		price := r.FinalPrice
		if price == nil {
			price = r.EstimatedPrice
		}
		t.add(r.ID, r.Status, format.Deref(r.CustomerName, "-"), format.PhoneNumber(r.PhoneNumber),
			format.Truncate(r.PickupLocation, 30), format.Truncate(r.DropoffLocation, 30),
			format.OptionalPrice(price, "BRL"), format.RelativeTime(r.Timestamp))
	}
	return t
}

func rideDetail(r models.Ride) *table {
	t := kv(
		"ID", r.ID,
		"Status", r.Status,
		"Category", orDash(r.Category),
		"Customer", format.Deref(r.CustomerName, "-"),
		"Phone", format.PhoneNumber(r.PhoneNumber),
		"Pickup", r.PickupLocation,
		"Dropoff", r.DropoffLocation,
		"Estimated", format.OptionalPrice(r.EstimatedPrice, "BRL"),
		"Final", format.OptionalPrice(r.FinalPrice, "BRL"),
		"Driver", format.Deref(r.DriverName, "-"),
		"Vehicle", format.Deref(r.DriverVehicle, "-")+" "+format.Deref(r.DriverPlate, ""),
		"Dispatch id", format.Deref(r.MachineRideID, "-"),
		"Requested", format.Timestamp(r.Timestamp),
	)
	for i, e := range r.Events {
		t.add("Event "+strconv.Itoa(i+1), format.Timestamp(e.CreatedAt)+"  "+e.Title)
	}
	return t
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
