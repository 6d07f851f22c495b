package leasemain

import (
	"fmt"
	"strings"

	"github.com/nextdhcp/leasehook/core/lease"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the lease table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := loadTable(cmd, opts)
			if err != nil {
				return err
			}

			data := make([][]string, 0, len(table))
			for _, e := range table {
				data = append(data, []string{e.MAC, e.IP, e.Hostname, e.Location})
			}

			w := tablewriter.NewWriter(cmd.OutOrStdout())
			w.SetHeader([]string{"MAC", "IP", "Hostname", "Location"})
			w.SetAutoFormatHeaders(false)
			w.AppendBulk(data)
			w.Render()

			return nil
		},
	}
}

func newEndpointsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints",
		Short: "Print the service endpoints announced through the lease table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := loadTable(cmd, opts)
			if err != nil {
				return err
			}

			endpoints := lease.Endpoints(table)

			data := make([][]string, 0, len(endpoints))
			for _, ep := range endpoints {
				data = append(data, []string{
					strings.ToUpper(string(ep.Service)),
					ep.URL.String(),
					ep.MAC,
					ep.Location,
				})
			}

			w := tablewriter.NewWriter(cmd.OutOrStdout())
			w.SetHeader([]string{"Service", "URL", "MAC", "Location"})
			w.SetAutoFormatHeaders(false)
			w.AppendBulk(data)
			w.Render()

			return nil
		},
	}
}

// loadTable reads the configured lease table without locking it
func loadTable(cmd *cobra.Command, opts *options) (lease.Table, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, failure(err)
	}

	store, err := cfg.OpenStorage()
	if err != nil {
		return nil, failure(fmt.Errorf("failed to open lease table: %w", err))
	}
	defer store.Close()

	table, err := store.Load(cmd.Context())
	if err != nil {
		return nil, failure(err)
	}

	return table, nil
}
