package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/trafficapp/datarecording"
	"github.com/sarchlab/trafficapp/stats"
)

var (
	inspectEndpoint string
	inspectLimit    int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <recording.sqlite3>",
	Short: "Print the records of a SQLite recording",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := os.Stat(args[0])
		if err != nil {
			return err
		}

		reader := datarecording.NewReader(args[0])
		defer reader.Close()

		reader.MapTable(stats.DeliveryTable, stats.DeliveryRow{})
		reader.MapTable(stats.ReplyTable, stats.ReplyRow{})

		params := datarecording.QueryParams{
			Limit:   inspectLimit,
			OrderBy: "Endpoint, MsgID",
		}
		if inspectEndpoint != "" {
			params.Where = "Endpoint = ?"
			params.Args = []any{inspectEndpoint}
		}

		return printRecords(cmd.Context(), cmd.OutOrStdout(), reader, params)
	},
}

func printRecords(
	ctx context.Context,
	out io.Writer,
	reader datarecording.DataReader,
	params datarecording.QueryParams,
) error {
	if ctx == nil {
		ctx = context.Background()
	}

	deliveries, total, err := reader.Query(ctx, stats.DeliveryTable, params)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "deliveries (%d)\n", total)
	fmt.Fprintln(w, "endpoint\tmsgId\tdelay_ms\tpacketSize_B\treceivingTime_ms")

	for _, r := range deliveries {
		d := r.(*stats.DeliveryRow)
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n",
			d.Endpoint, d.MsgID, d.DelayMs, d.PacketSizeB, d.ReceivingTimeMs)
	}

	replies, total, err := reader.Query(ctx, stats.ReplyTable, params)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "replies (%d)\n", total)
	fmt.Fprintln(w,
		"endpoint\tmsgId\tpacketSize_B\tsendingTime_ms\tcalculationStart_ms\treceiver")

	for _, r := range replies {
		p := r.(*stats.ReplyRow)
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%s\n",
			p.Endpoint, p.MsgID, p.PacketSizeB, p.SendingTimeMs,
			p.CalculationStartMs, p.Receiver)
	}

	return w.Flush()
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectEndpoint, "endpoint", "e", "",
		"only show the records of this endpoint")
	inspectCmd.Flags().IntVarP(&inspectLimit, "limit", "n", 0,
		"maximum number of rows per table, 0 for all")

	rootCmd.AddCommand(inspectCmd)
}
