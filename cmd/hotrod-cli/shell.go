package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	hotrod "github.com/infinispan/go-hotrod"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

const shellHistoryFile = ".hotrod-cli_history"

func newShellCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive REPL against the configured cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer client.Disconnect()
			return runShell(ctx, client)
		},
	}
}

func runShell(ctx context.Context, client *hotrod.Client) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := historyFilePath()
	if f, err := os.Open(historyPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	sig := signalChannel()
	done := make(chan struct{})
	go func() {
		select {
		case <-sig:
			line.Close()
		case <-done:
		}
	}()
	defer close(done)

	fmt.Println(`hotrod-cli shell. Commands: get put remove contains ping help quit`)
	for {
		input, err := line.Prompt("hotrod> ")
		if err != nil {
			// liner returns io.EOF on ^D and ErrPromptAborted on ^C.
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if shouldQuit := runShellCommand(ctx, client, input); shouldQuit {
			return nil
		}
	}
}

func historyFilePath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/" + shellHistoryFile
	}
	return shellHistoryFile
}

// runShellCommand dispatches one line of shell input and reports whether
// the shell should exit.
func runShellCommand(ctx context.Context, client *hotrod.Client, input string) bool {
	fields := splitCommandLine(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		fmt.Println("get <key> | put <key> <value> [lifespan] [max-idle] | remove <key> | contains <key> | ping | quit")
	case "ping":
		if err := client.Ping(ctx); err != nil {
			fmt.Println("error:", err)
			return false
		}
		fmt.Println("OK")
	case "get":
		if len(args) != 1 {
			fmt.Println("usage: get <key>")
			return false
		}
		var value string
		found, err := client.Get(ctx, args[0], &value)
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		if !found {
			fmt.Println("(not found)")
			return false
		}
		fmt.Println(value)
	case "put":
		if len(args) < 2 {
			fmt.Println("usage: put <key> <value> [lifespan] [max-idle]")
			return false
		}
		var lifespan, maxIdle string
		if len(args) > 2 {
			lifespan = args[2]
		}
		if len(args) > 3 {
			maxIdle = args[3]
		}
		opts := putOptionsFrom(lifespan, maxIdle)
		if _, err := client.Put(ctx, args[0], args[1], opts...); err != nil {
			fmt.Println("error:", err)
			return false
		}
		fmt.Println("OK")
	case "remove":
		if len(args) != 1 {
			fmt.Println("usage: remove <key>")
			return false
		}
		previous, err := client.Remove(ctx, args[0], true)
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		if previous == nil {
			fmt.Println("(no previous value)")
			return false
		}
		fmt.Println(string(previous))
	case "contains":
		if len(args) != 1 {
			fmt.Println("usage: contains <key>")
			return false
		}
		ok, err := client.ContainsKey(ctx, args[0])
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		fmt.Println(ok)
	default:
		fmt.Printf("unknown command %q, type \"help\"\n", cmd)
	}
	return false
}
