package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jspencer/fieldlink/internal/session"
)

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "jobs",
		Aliases: []string{"job"},
		Short:   "Act on job offers and the active job",
	}

	cmd.AddCommand(newJobsAcceptCmd())
	cmd.AddCommand(newJobsRejectCmd())
	cmd.AddCommand(newJobsCompleteCmd())
	cmd.AddCommand(newJobsCancelCmd())
	return cmd
}

func newJobsAcceptCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "accept <job-id>",
		Short: "Accept a pending job offer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			var snap session.Snapshot
			path := fmt.Sprintf("/api/jobs/%d/accept", jobID)
			if err := newLocalClient(port).post(path, nil, &snap); err != nil {
				return err
			}
			if snap.Active != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Accepted job #%d: %s\n", snap.Active.ID, snap.Active.Problem)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Accepted job #%d\n", jobID)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", defaultObservePort, "observe API port")
	return cmd
}

func newJobsRejectCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "reject <job-id>",
		Short: "Reject a pending job offer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			path := fmt.Sprintf("/api/jobs/%d/reject", jobID)
			if err := newLocalClient(port).post(path, nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rejected job #%d\n", jobID)
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", defaultObservePort, "observe API port")
	return cmd
}

func newJobsCompleteCmd() *cobra.Command {
	var port int
	var price float64

	cmd := &cobra.Command{
		Use:   "complete <job-id>",
		Short: "Complete the active job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			path := fmt.Sprintf("/api/jobs/%d/complete", jobID)
			body := map[string]float64{"price": price}
			if err := newLocalClient(port).post(path, body, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed job #%d (%.2f)\n", jobID, price)
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", defaultObservePort, "observe API port")
	cmd.Flags().Float64Var(&price, "price", 0, "final price charged")
	return cmd
}

func newJobsCancelCmd() *cobra.Command {
	var port int
	var reason string

	cmd := &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel the active job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			path := fmt.Sprintf("/api/jobs/%d/cancel", jobID)
			body := map[string]string{"reason": reason}
			if err := newLocalClient(port).post(path, body, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancelled job #%d\n", jobID)
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", defaultObservePort, "observe API port")
	cmd.Flags().StringVar(&reason, "reason", "", "cancellation reason")
	return cmd
}

func parseJobID(arg string) (int64, error) {
	jobID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || jobID <= 0 {
		return 0, fmt.Errorf("invalid job id %q", arg)
	}
	return jobID, nil
}

func parseCoords(latArg, lngArg string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(latArg, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q", latArg)
	}
	lng, err := strconv.ParseFloat(lngArg, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q", lngArg)
	}
	return lat, lng, nil
}
