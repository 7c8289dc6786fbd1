// drivers_cmd.go -- drivers list. The backend has no driver endpoint, so data is fixtures.
package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/michame/console/internal/datasource"
	"github.com/michame/console/internal/format"
	"github.com/michame/console/internal/models"
)

type driversView struct {
	Summary datasource.DriverSummary `json:"summary"`
	Drivers []models.Driver          `json:"drivers"`
}

func newDriversCommand(app *App) *cobra.Command {
	drivers := &cobra.Command{
		Use:   "drivers",
		Short: "Fleet overview (demo data)",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List drivers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			search, _ := cmd.Flags().GetString("search")
			status, _ := cmd.Flags().GetString("status")

			ctx := cmd.Context()
			if err := app.connect(ctx); err != nil {
				return err
			}
			all, err := app.reader().Drivers(ctx)
			if err != nil {
				return err
			}

			v := driversView{Summary: datasource.SummarizeDrivers(all)}
			needle := strings.ToLower(search)
			for _, d := range all {
				if needle != "" && !strings.Contains(strings.ToLower(d.Name), needle) && !strings.Contains(strings.ToLower(d.VehiclePlate), needle) {
					continue
				}
				if status != "" && status != datasource.StatusAll && d.Status != status {
					continue
				}
				v.Drivers = append(v.Drivers, d)
			}

			return app.render(v, func() *table {
				t := newTable("ID", "NAME", "VEHICLE", "PLATE", "STATUS", "RATING", "RIDES", "EARNINGS", "LAST ACTIVE")
				for _, d := range v.Drivers {
					t.add(d.ID, d.Name, d.VehicleType, d.VehiclePlate, d.Status, fmt.Sprintf("%.1f", d.Rating),
						strconv.Itoa(d.TotalRides), format.Price(d.Earnings, ""), format.RelativeTime(d.LastActive))
				}
				return t
			})
		},
	}
	list.Flags().String("search", "", "filter by name or plate")
	list.Flags().String("status", "", "filter by status (available, busy, offline)")

	drivers.AddCommand(list)
	return drivers
}
