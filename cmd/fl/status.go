package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jspencer/fieldlink/internal/session"
)

func newStatusCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running agent's session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			var snap session.Snapshot
			if err := newLocalClient(port).get("/api/status", &snap); err != nil {
				return err
			}
			printStatus(cmd, snap)
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", defaultObservePort, "observe API port")
	return cmd
}

func printStatus(cmd *cobra.Command, snap session.Snapshot) {
	out := cmd.OutOrStdout()

	availability := "OFFLINE"
	if snap.Online {
		availability = "ONLINE"
	}
	fmt.Fprintf(out, "Availability: %s\n", availability)
	fmt.Fprintf(out, "Gateway:      %s\n", strings.ToUpper(string(snap.State)))

	if snap.Active != nil {
		fmt.Fprintf(out, "Active job:   #%d %s (%s)\n", snap.Active.ID, snap.Active.Problem, snap.Active.Status)
	} else {
		fmt.Fprintf(out, "Active job:   none\n")
	}

	if len(snap.Pending) == 0 {
		fmt.Fprintf(out, "Pending:      none\n")
		return
	}
	fmt.Fprintf(out, "Pending:\n")
	for _, job := range snap.Pending {
		fmt.Fprintf(out, "  #%d %s — %.2f\n", job.ID, job.Problem, job.Price)
	}
}

func newOnlineCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "online",
		Short: "Go online and start receiving job offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			var snap session.Snapshot
			if err := newLocalClient(port).post("/api/online", nil, &snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Online. Gateway: %s\n", snap.State)
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", defaultObservePort, "observe API port")
	return cmd
}

func newOfflineCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "offline",
		Short: "Go offline and discard pending offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newLocalClient(port).post("/api/offline", nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Offline.")
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", defaultObservePort, "observe API port")
	return cmd
}

func newReconnectCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "reconnect",
		Short: "Force an immediate gateway reconnect attempt",
		RunE: func(cmd *cobra.Command, args []string) error {
			var snap session.Snapshot
			if err := newLocalClient(port).post("/api/reconnect", nil, &snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Gateway: %s\n", snap.State)
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", defaultObservePort, "observe API port")
	return cmd
}

func newLocationCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "location <latitude> <longitude>",
		Short: "Report the worker's current position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, lng, err := parseCoords(args[0], args[1])
			if err != nil {
				return err
			}
			body := map[string]float64{"latitude": lat, "longitude": lng}
			if err := newLocalClient(port).post("/api/location", body, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Position updated: %v, %v\n", lat, lng)
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", defaultObservePort, "observe API port")
	return cmd
}
