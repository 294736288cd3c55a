package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/kailas-cloud/ragchat/internal/version"
)

func main() {
	cmd := &cli.Command{
		Name:      "ragchat-ask",
		Version:   version.String(),
		Usage:     "Ask questions against a running ragchat server",
		ArgsUsage: "[question]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "ragchat server base URL",
				Value:   "http://localhost:8000",
				Sources: cli.EnvVars("RAGCHAT_URL"),
			},
			&cli.IntFlag{
				Name:  "k",
				Usage: "Number of context documents (server default when unset)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: 2 * time.Minute,
			},
			&cli.BoolFlag{
				Name:  "contexts",
				Usage: "Print the retrieved contexts",
				Value: true,
			},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err.Error())
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	c := newClient(cmd.String("url"), cmd.Duration("timeout"))
	k := int(cmd.Int("k"))
	p := printer{out: os.Stdout, showContexts: cmd.Bool("contexts")}

	if cmd.Args().Len() > 0 {
		question := strings.Join(cmd.Args().Slice(), " ")
		resp, err := c.ask(ctx, question, k)
		if err != nil {
			return err
		}
		p.print(resp)
		return nil
	}

	return repl(ctx, c, k, os.Stdin, p)
}

// repl reads one question per line until EOF or "exit".
func repl(ctx context.Context, c *client, k int, in io.Reader, p printer) error {
	prompt := color.New(color.FgGreen, color.Bold).SprintFunc()
	fmt.Fprintln(p.out, prompt("ragchat"), "type a question and press Enter, 'exit' to quit")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(p.out, prompt("? "))
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") {
			return nil
		}

		resp, err := c.ask(ctx, line, k)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		p.print(resp)
	}
}

type printer struct {
	out          io.Writer
	showContexts bool
}

func (p printer) print(resp askResponse) {
	answer := color.New(color.FgCyan, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	fmt.Fprintln(p.out, answer("Answer:"), resp.Answer)
	fmt.Fprintf(p.out, "%s %s\n", dim("confidence:"), confidenceColor(resp.Confidence)("%.2f", resp.Confidence))

	if !p.showContexts {
		return
	}
	for i, ctxText := range resp.Contexts {
		fmt.Fprintf(p.out, "%s %s\n", dim(fmt.Sprintf("[%d]", i+1)), ctxText)
	}
	fmt.Fprintln(p.out)
}

func confidenceColor(v float64) func(format string, a ...interface{}) string {
	switch {
	case v >= 0.8:
		return color.New(color.FgGreen).SprintfFunc()
	case v >= 0.5:
		return color.New(color.FgYellow).SprintfFunc()
	default:
		return color.New(color.FgRed).SprintfFunc()
	}
}
