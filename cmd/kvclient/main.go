// Command kvclient runs a single command against a kvserver.
//
//	kvclient [flags] put KEY VALUE
//	kvclient [flags] get KEY
//	kvclient [flags] mput KEY=VALUE...
//	kvclient [flags] mget KEY...
//
// Credentials default to KV_USER and KV_PASSWORD; the server address to
// KV_SERVER_ADDR.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/josenovais97/distributed-systems/pkg/client"
	"github.com/josenovais97/distributed-systems/pkg/config"
	"github.com/josenovais97/distributed-systems/pkg/logger"
)

type Config struct {
	Addr     string        `env:"KV_SERVER_ADDR" envDefault:"localhost:12345"`
	Username string        `env:"KV_USER"`
	Password string        `env:"KV_PASSWORD"`
	Timeout  time.Duration `env:"KV_CLIENT_TIMEOUT" envDefault:"30s"`
}

var (
	errUsage    = errors.New("usage: kvclient [flags] put KEY VALUE | get KEY | mput KEY=VALUE... | mget KEY...")
	errNotFound = errors.New("key not found")
)

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "kvclient:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return err
	}

	fs := flag.NewFlagSet("kvclient", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", cfg.Addr, "server address")
	user := fs.String("user", cfg.Username, "username")
	password := fs.String("password", cfg.Password, "password")
	register := fs.Bool("register", false, "register the user if the server does not know it")
	timeout := fs.Duration("timeout", cfg.Timeout, "overall time limit, including time queued for a slot")
	verbose := fs.Bool("v", false, "log protocol progress to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd, err := parseCommand(fs.Args())
	if err != nil {
		return err
	}
	if *user == "" {
		return errors.New("a username is required (-user or KV_USER)")
	}

	log := logger.Noop()
	if *verbose {
		log = logger.New(logger.WithOutput(stderr), logger.WithTextFormatter(), logger.WithLevel(slog.LevelDebug))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c, err := client.Dial(ctx, *addr,
		client.WithRegister(*register),
		client.WithLogger(log),
		client.WithWaitHandler(func(pos int) {
			fmt.Fprintf(stderr, "waiting for a free session slot (position %d)\n", pos)
		}),
	)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Login(ctx, *user, *password); err != nil {
		return err
	}
	if err := cmd(ctx, c, stdout); err != nil {
		return err
	}
	return c.Logout(ctx)
}

type command func(ctx context.Context, c *client.Client, out io.Writer) error

func parseCommand(args []string) (command, error) {
	if len(args) == 0 {
		return nil, errUsage
	}
	name, rest := args[0], args[1:]

	switch name {
	case "put":
		if len(rest) != 2 {
			return nil, errUsage
		}
		return func(ctx context.Context, c *client.Client, _ io.Writer) error {
			return c.Put(ctx, rest[0], []byte(rest[1]))
		}, nil

	case "get":
		if len(rest) != 1 {
			return nil, errUsage
		}
		return func(ctx context.Context, c *client.Client, out io.Writer) error {
			v, ok, err := c.Get(ctx, rest[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s", errNotFound, rest[0])
			}
			_, err = fmt.Fprintf(out, "%s\n", v)
			return err
		}, nil

	case "mput":
		if len(rest) == 0 {
			return nil, errUsage
		}
		pairs := make(map[string][]byte, len(rest))
		for _, kv := range rest {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return nil, fmt.Errorf("%w: %q is not KEY=VALUE", errUsage, kv)
			}
			pairs[k] = []byte(v)
		}
		return func(ctx context.Context, c *client.Client, _ io.Writer) error {
			return c.MultiPut(ctx, pairs)
		}, nil

	case "mget":
		if len(rest) == 0 {
			return nil, errUsage
		}
		return func(ctx context.Context, c *client.Client, out io.Writer) error {
			found, err := c.MultiGet(ctx, rest)
			if err != nil {
				return err
			}
			for _, k := range slices.Sorted(maps.Keys(found)) {
				if _, err := fmt.Fprintf(out, "%s=%s\n", k, found[k]); err != nil {
					return err
				}
			}
			return nil
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
}
