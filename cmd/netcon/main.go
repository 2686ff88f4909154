// netcon is a small remote-console tool for dedicated game servers.
//
// It connects to a server's netcon endpoint, authenticates, and either
// runs a single command or tails the console-log stream.
//
// Usage:
//
//	netcon [options]
//
// Options:
//
//	-addr     TCP address of the netcon listener (default: 127.0.0.1:37015)
//	-ws       WebSocket URL; overrides -addr when set
//	-exec     command to run, e.g. "status" or "kickid 12345"
//	-tail     stream console-log lines until interrupted
//	-timeout  per-request timeout (default: 5s)
//	-verbose  log protocol traffic
//
// Environment:
//
//	R5_TARGET_KEYS   comma-separated base64 pre-shared envelope keys
//	R5_RCON_KEY      single pre-shared envelope key (used when
//	                 R5_TARGET_KEYS is unset)
//	R5_RCON_PASSWORD RCON password presented during authentication
//
// Example:
//
//	R5_RCON_KEY=... R5_RCON_PASSWORD=... netcon -addr game.example:37015 -exec status
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pion/logging"

	"github.com/sleep1223/r5-server-bot/pkg/crypto"
	"github.com/sleep1223/r5-server-bot/pkg/netcon"
	"github.com/sleep1223/r5-server-bot/pkg/session"
)

func main() {
	var (
		addr    = flag.String("addr", "127.0.0.1:37015", "TCP address of the netcon listener")
		wsURL   = flag.String("ws", "", "WebSocket URL; overrides -addr when set")
		execCmd = flag.String("exec", "", "command to run")
		tail    = flag.Bool("tail", false, "stream console-log lines until interrupted")
		timeout = flag.Duration("timeout", netcon.DefaultRequestTimeout, "per-request timeout")
		verbose = flag.Bool("verbose", false, "log protocol traffic")
	)
	flag.Parse()

	if *execCmd == "" && !*tail {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -exec and/or -tail")
		flag.Usage()
		os.Exit(2)
	}

	password := os.Getenv("R5_RCON_PASSWORD")
	if password == "" {
		log.Fatal("R5_RCON_PASSWORD is not set")
	}

	keys, err := keysFromEnv()
	if err != nil {
		log.Fatalf("loading keys: %v", err)
	}

	config := netcon.Config{RequestTimeout: *timeout}
	if *verbose {
		config.LoggerFactory = logging.NewDefaultLoggerFactory()
	}

	var client *netcon.Client
	if *wsURL != "" {
		client, err = netcon.DialWebSocket(*wsURL, keys, config)
	} else {
		client, err = netcon.Dial(*addr, keys, config)
	}
	if err != nil {
		log.Fatalf("connecting: %v", err)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	authCtx, cancel := context.WithTimeout(ctx, *timeout*time.Duration(max(1, keys.Len())))
	err = client.Authenticate(authCtx, password)
	cancel()
	if err != nil {
		log.Fatalf("authenticating: %v", err)
	}

	// Subscribe before exec so the command's console output is not missed.
	var sub *netcon.Subscription
	if *tail {
		sub = client.SubscribeConsoleLog()
	}

	if *execCmd != "" {
		res, err := client.ExecCommand(ctx, *execCmd, "")
		if err != nil {
			log.Fatalf("exec: %v", err)
		}
		if res.Message != "" {
			fmt.Print(res.Message)
			if !strings.HasSuffix(res.Message, "\n") {
				fmt.Println()
			}
		}
		if !res.Success {
			log.Fatal("command failed")
		}
	}

	if *tail {
		for {
			select {
			case line, ok := <-sub.C():
				if !ok {
					return
				}
				fmt.Print(line)
				if !strings.HasSuffix(line, "\n") {
					fmt.Println()
				}
			case <-ctx.Done():
				return
			}
		}
	}
}

// keysFromEnv builds the envelope key set from R5_TARGET_KEYS (ordered,
// comma-separated) or R5_RCON_KEY. These keys protect the wire; the
// RCON password is a separate credential.
func keysFromEnv() (*session.KeySet, error) {
	raw := os.Getenv("R5_TARGET_KEYS")
	if raw == "" {
		raw = os.Getenv("R5_RCON_KEY")
	}
	if raw == "" {
		return nil, fmt.Errorf("neither R5_TARGET_KEYS nor R5_RCON_KEY is set")
	}

	var encoded []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			encoded = append(encoded, part)
		}
	}

	keys, err := crypto.ParseKeys(encoded)
	if err != nil {
		return nil, err
	}
	return session.NewKeySet(keys)
}
