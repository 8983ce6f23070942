package client

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ValentinKolb/dIPC/cmd/util"
	"github.com/ValentinKolb/dIPC/ipc/client"
	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	sendCmd = &cobra.Command{
		Use:   "send [type] [data]",
		Short: "Sends one message and prints the replies",
		Long:  "Sends one message of the given type. data is parsed as JSON and sent as string if it is not valid JSON. In raw mode type is sent as is. Replies are printed until --wait elapses.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			registry, c, err := connect(ctx, func(c *client.Client) {
				c.OnDefault(printEvent)
				c.On(common.EventData, printEvent)
			})
			if err != nil {
				return err
			}
			defer registry.Close()

			var data any
			if len(args) == 2 {
				data = parseData(args[1])
			}
			if err := c.Emit(args[0], data); err != nil {
				return err
			}

			select {
			case <-time.After(viper.GetDuration("wait")):
			case <-ctx.Done():
			}
			return nil
		},
	}

	listenCmd = &cobra.Command{
		Use:   "listen",
		Short: "Prints all messages received until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			registry, _, err := connect(ctx, func(c *client.Client) {
				c.OnDefault(printEvent)
				c.On(common.EventData, printEvent)
				c.On(common.EventDisconnect, func(client.Event) {
					Logger.Infof("Disconnected, waiting for reconnection")
				})
			})
			if err != nil {
				return err
			}
			defer registry.Close()

			<-ctx.Done()
			return nil
		},
	}

	pingCmd = &cobra.Command{
		Use:   "ping",
		Short: "Measures the round trip time of ping messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			count := viper.GetInt("count")
			interval := viper.GetDuration("interval")
			rtt := metrics.NewTimer()
			pongs := make(chan pingPayload, 1)

			registry, c, err := connect(ctx, func(c *client.Client) {
				c.On("pong", func(ev client.Event) {
					var p pingPayload
					if err := ev.Decode(&p); err != nil {
						Logger.Warningf("Invalid pong: %v", err)
						return
					}
					pongs <- p
				})
			})
			if err != nil {
				return err
			}
			defer registry.Close()

			lost := 0
			timeout := util.WaitTimeout("wait", time.Second)
		loop:
			for seq := 1; count <= 0 || seq <= count; seq++ {
				sent := time.Now()
				if err := c.Emit("ping", pingPayload{ID: fmt.Sprintf("%d", seq), Sent: sent.UnixNano()}); err != nil {
					return err
				}

				select {
				case p := <-pongs:
					d := time.Since(time.Unix(0, p.Sent))
					rtt.Update(d)
					fmt.Printf("pong seq=%s time=%s\n", p.ID, d)
				case <-time.After(timeout):
					lost++
					fmt.Printf("ping seq=%d timed out\n", seq)
				case <-ctx.Done():
					break loop
				}

				select {
				case <-time.After(interval):
				case <-ctx.Done():
					break loop
				}
			}

			printSummary(rtt, lost)
			return nil
		},
	}
)

func init() {
	key := "wait"
	sendCmd.Flags().Duration(key, time.Second, util.WrapString("How long to wait for replies"))
	pingCmd.Flags().Duration(key, time.Second, util.WrapString("How long to wait for each pong"))

	key = "count"
	pingCmd.Flags().Int(key, 5, util.WrapString("Number of pings to send (0 = until interrupted)"))
	key = "interval"
	pingCmd.Flags().Duration(key, 500*time.Millisecond, util.WrapString("Delay between two pings"))
}

// pingPayload is the data of ping and pong messages. The server echoes it back.
type pingPayload struct {
	ID   string `json:"id"`
	Sent int64  `json:"sent"`
}

// parseData interprets a command line argument as JSON, falling back to a string
func parseData(arg string) any {
	var v any
	if err := json.Unmarshal([]byte(arg), &v); err != nil {
		return arg
	}
	return v
}

// printSummary prints the round trip statistics
func printSummary(rtt metrics.Timer, lost int) {
	fmt.Println()
	fmt.Printf("%d pongs received, %d lost\n", rtt.Count(), lost)
	if rtt.Count() == 0 {
		return
	}
	ps := rtt.Percentiles([]float64{0.5, 0.99})
	fmt.Printf("rtt min/avg/p50/p99/max = %s/%s/%s/%s/%s\n",
		time.Duration(rtt.Min()),
		time.Duration(rtt.Mean()),
		time.Duration(ps[0]),
		time.Duration(ps[1]),
		time.Duration(rtt.Max()),
	)
}
