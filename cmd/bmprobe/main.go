package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/google/gousb"
	"github.com/spf13/cobra"

	"github.com/seagrayinc/bmprobe/pkg/bmp"
)

var (
	vidFlag string
	pidFlag string
	debug   bool

	logLevel = new(slog.LevelVar)
)

var rootCmd = &cobra.Command{
	Use:   "bmprobe",
	Short: "Discover Black Magic Probes and read their USB descriptor strings",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			logLevel.Set(slog.LevelDebug)
		}
	},
	RunE:          runScan,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&vidFlag, "vid", "", "match a different vendor id (hex)")
	rootCmd.PersistentFlags().StringVar(&pidFlag, "pid", "", "match a different product id (hex)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	scan := &cobra.Command{
		Use:   "scan",
		Short: "Open matching probes and print their descriptor strings",
		RunE:  runScan,
	}
	rootCmd.AddCommand(scan)

	list := &cobra.Command{
		Use:   "list",
		Short: "List matching devices without claiming them",
		RunE:  runList,
	}
	rootCmd.AddCommand(list)

	ports := &cobra.Command{
		Use:   "ports",
		Short: "List the serial ports probes expose",
		RunE:  runPorts,
	}
	rootCmd.AddCommand(ports)
}

func matcher() (bmp.Matcher, error) {
	m := bmp.DefaultMatcher()
	if vidFlag != "" {
		v, err := parseID(vidFlag)
		if err != nil {
			return m, fmt.Errorf("--vid: %w", err)
		}
		m.VendorID = v
	}
	if pidFlag != "" {
		p, err := parseID(pidFlag)
		if err != nil {
			return m, fmt.Errorf("--pid: %w", err)
		}
		m.ProductID = p
	}
	return m, nil
}

func parseID(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%q is not a 16-bit hex id", s)
	}
	return uint16(v), nil
}

func runScan(cmd *cobra.Command, args []string) error {
	m, err := matcher()
	if err != nil {
		return err
	}

	ctx := gousb.NewContext()
	defer ctx.Close()

	probes, err := bmp.Discover(ctx, m)
	if err != nil {
		return err
	}
	if len(probes) == 0 {
		fmt.Printf("no devices matching %s\n", m)
		return nil
	}
	for _, p := range probes {
		fmt.Printf("%s bus %d addr %d: %s, %s, serial %s\n",
			p, p.Bus, p.Address, p.Manufacturer, p.Product, p.Serial)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	m, err := matcher()
	if err != nil {
		return err
	}

	entries, err := bmp.List(m)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Printf("no devices matching %s\n", m)
		return nil
	}
	for _, e := range entries {
		fmt.Println(e)
	}
	return nil
}

func runPorts(cmd *cobra.Command, args []string) error {
	m, err := matcher()
	if err != nil {
		return err
	}

	ports, err := bmp.Ports(m)
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Printf("no serial ports matching %s\n", m)
		return nil
	}
	for _, p := range ports {
		if p.Serial == "" {
			fmt.Println(p.Name)
			continue
		}
		fmt.Printf("%s (serial %s)\n", p.Name, p.Serial)
	}
	return nil
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
