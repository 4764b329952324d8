// Command hotrod-cli is a thin command-line client over the hotrod package:
// one subcommand per cache operation, plus an interactive shell.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	hotrod "github.com/infinispan/go-hotrod"
	"github.com/infinispan/go-hotrod/logging"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

func signalChannel() chan os.Signal {
	ch := make(chan os.Signal, 32)
	signal.Notify(ch, unix.SIGINT, unix.SIGTERM, unix.SIGQUIT)
	return ch
}

func main() {
	var configPath string
	var servers []string
	var cache string
	var timeout time.Duration
	var verbose bool

	root := &cobra.Command{
		Use:   "hotrod-cli",
		Short: "Command-line client for Hot Rod caches",
		Long: `hotrod-cli talks to one or more Hot Rod servers over the
v25 wire protocol.

Complete documentation is available at https://github.com/infinispan/go-hotrod`,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&configPath, "config", "f", defaultConfigPath(), "path to a YAML config file")
	flags.StringSliceVarP(&servers, "servers", "s", nil, "comma-separated server addresses, overrides the config file")
	flags.StringVarP(&cache, "cache", "c", "", "remote cache name, overrides the config file")
	flags.DurationVarP(&timeout, "timeout", "t", 0, "call timeout, overrides the config file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log failed topology updates")

	resolve := func() (cliConfig, error) {
		cfg, err := loadCLIConfig(configPath)
		if err != nil {
			return cliConfig{}, fmt.Errorf("load config %s: %w", configPath, err)
		}
		if len(servers) > 0 {
			cfg.Servers = servers
		}
		if cache != "" {
			cfg.Cache = cache
		}
		if timeout > 0 {
			cfg.Timeout = timeout
		}
		return cfg, nil
	}

	connect := func(ctx context.Context) (*hotrod.Client, error) {
		cfg, err := resolve()
		if err != nil {
			return nil, err
		}
		opts := []hotrod.Option{
			hotrod.WithCacheName(cfg.Cache),
			hotrod.WithCallTimeout(cfg.Timeout),
		}
		if verbose {
			opts = append(opts, hotrod.WithLogFunc(logging.Stdout))
		}
		return hotrod.New(ctx, cfg.Servers, opts...)
	}

	root.AddCommand(
		newConfigCmd(&configPath),
		newPingCmd(connect),
		newGetCmd(connect),
		newPutCmd(connect),
		newRemoveCmd(connect),
		newContainsCmd(connect),
		newShellCmd(connect),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.hotrod-cli.yaml"
	}
	return ".hotrod-cli.yaml"
}

type connectFunc func(ctx context.Context) (*hotrod.Client, error)

func newConfigCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config-init",
		Short: "Write an example config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := scaffoldCLIConfig(*configPath); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", *configPath)
			return nil
		},
	}
	return cmd
}

func newPingCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the configured servers are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer client.Disconnect()
			if err := client.Ping(ctx); err != nil {
				return err
			}
			fmt.Println("OK")
			return nil
		},
	}
}

func newGetCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Fetch the value stored under key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer client.Disconnect()

			var value string
			found, err := client.Get(ctx, args[0], &value)
			if err != nil {
				return err
			}
			if !found {
				fmt.Println("(not found)")
				return nil
			}
			fmt.Println(value)
			return nil
		},
	}
}

func newPutCmd(connect connectFunc) *cobra.Command {
	var lifespan string
	var maxIdle string

	cmd := &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Store value under key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer client.Disconnect()

			opts := putOptionsFrom(lifespan, maxIdle)
			if _, err := client.Put(ctx, args[0], args[1], opts...); err != nil {
				return err
			}
			fmt.Println("OK")
			return nil
		},
	}
	cmd.Flags().StringVar(&lifespan, "lifespan", "", `entry lifespan, e.g. "10s", "5m", "inf"`)
	cmd.Flags().StringVar(&maxIdle, "max-idle", "", `entry max idle time, same format as --lifespan`)
	return cmd
}

func putOptionsFrom(lifespan, maxIdle string) []hotrod.StoreOption {
	var opts []hotrod.StoreOption
	if lifespan != "" {
		opts = append(opts, hotrod.WithLifespan(lifespan))
	}
	if maxIdle != "" {
		opts = append(opts, hotrod.WithMaxIdle(maxIdle))
	}
	return opts
}

func newRemoveCmd(connect connectFunc) *cobra.Command {
	var previous bool

	cmd := &cobra.Command{
		Use:   "remove <key>",
		Short: "Delete the entry stored under key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer client.Disconnect()

			prev, err := client.Remove(ctx, args[0], previous)
			if err != nil {
				return err
			}
			if previous {
				if prev == nil {
					fmt.Println("(no previous value)")
				} else {
					fmt.Println(string(prev))
				}
				return nil
			}
			fmt.Println("OK")
			return nil
		},
	}
	cmd.Flags().BoolVar(&previous, "previous", false, "print the value that was stored under key before removal")
	return cmd
}

func newContainsCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "contains <key>",
		Short: "Report whether key is present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer client.Disconnect()

			ok, err := client.ContainsKey(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(ok)
			return nil
		},
	}
}

// splitCommandLine tokenizes a shell line on whitespace, keeping it simple:
// no quoting support, matching the scope of the original interactive
// debugging tool this is modeled on.
func splitCommandLine(line string) []string {
	return strings.Fields(line)
}
