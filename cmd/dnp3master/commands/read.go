package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-dnp3/dnp3master/internal/telemetry"
	"github.com/go-dnp3/dnp3master/master"
)

var (
	readEndpoint string
	readAddress  uint16
	readClasses  string
	readTimeout  time.Duration
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Issue a one-time class read against an outstation",
	Long: `Connect to a single outstation over TCP, issue one read() request for
the given classes, print the result, and disconnect.

Examples:
  dnp3master read --endpoint 127.0.0.1:20000 --address 1024 --classes 0,1,2,3`,
	RunE: runRead,
}

func init() {
	readCmd.Flags().StringVar(&readEndpoint, "endpoint", "127.0.0.1:20000", "TCP endpoint host:port")
	readCmd.Flags().Uint16Var(&readAddress, "address", 1024, "outstation address")
	readCmd.Flags().StringVar(&readClasses, "classes", "0,1,2,3", "comma-separated classes to read (0,1,2,3)")
	readCmd.Flags().DurationVar(&readTimeout, "timeout", 10*time.Second, "how long to wait for the result")
}

func runRead(cmd *cobra.Command, args []string) error {
	classes, err := parseClasses(readClasses)
	if err != nil {
		return err
	}

	_, span := telemetry.StartTaskSpan(cmd.Context(), readEndpoint, readAddress, "read")
	defer span.End()

	ch, done, err := oneShotChannel(readEndpoint, readAddress)
	if err != nil {
		telemetry.RecordError(cmd.Context(), err)
		return err
	}
	defer ch.Destroy()

	result := make(chan master.ReadResult, 1)
	ch.Read(readAddress, master.ClassesRequest{Classes: classes}, func(r master.ReadResult) {
		result <- r
	})

	select {
	case r := <-result:
		if r.Err != nil {
			telemetry.RecordError(cmd.Context(), r.Err)
			return fmt.Errorf("read failed: %w", r.Err)
		}
		cmd.Println("read completed successfully")
	case <-time.After(readTimeout):
		return fmt.Errorf("timed out waiting for read result after %s", readTimeout)
	case <-done:
		return fmt.Errorf("channel closed before read completed")
	}
	return nil
}

func parseClasses(s string) (master.Classes, error) {
	var c master.Classes
	any := false
	for _, raw := range strings.Split(s, ",") {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			continue
		}
		any = true
		switch tok {
		case "0":
			c.Class0 = true
		case "1":
			c.Class1 = true
		case "2":
			c.Class2 = true
		case "3":
			c.Class3 = true
		default:
			return c, fmt.Errorf("invalid class %q (valid: 0,1,2,3)", tok)
		}
	}
	if !any {
		return c, fmt.Errorf("no classes specified")
	}
	return c, nil
}

// oneShotChannel creates a single-endpoint TCP channel with one
// association and waits (up to a short grace period) for it to connect,
// for the ad-hoc read/operate CLI commands.
func oneShotChannel(endpoint string, address uint16) (*master.Channel, <-chan struct{}, error) {
	done := make(chan struct{})
	connected := make(chan struct{}, 1)
	onState := func(s master.ClientState) {
		if s == master.StateConnected {
			select {
			case connected <- struct{}{}:
			default:
			}
		}
		if s == master.StateShutdown {
			close(done)
		}
	}

	ch := master.CreateChannelTCP([]string{endpoint}, master.DefaultConnectStrategy(), 2048, 2048, onState, nil)
	ch.AddAssociation(address, master.DefaultAssociationConfig(), master.SystemClockHandler{}, master.NopReadHandler{})
	ch.Enable()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	select {
	case <-connected:
	case <-ctx.Done():
		ch.Destroy()
		return nil, nil, fmt.Errorf("could not connect to %s within 10s", endpoint)
	}
	return ch, done, nil
}
