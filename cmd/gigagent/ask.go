package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gig-recommender/internal/app"
	"gig-recommender/internal/common/camunda"
	"gig-recommender/internal/common/config"
	apperrors "gig-recommender/internal/common/errors"
	"gig-recommender/internal/orchestrator"
)

type AskCmd struct {
	Zeebe   bool          `long:"zeebe" description:"Start the BPMN process on the configured broker instead of running in process"`
	Timeout time.Duration `long:"timeout" default:"5m" description:"Overall deadline for the run"`
	Args    struct {
		Query []string `positional-arg-name:"query"`
	} `positional-args:"yes"`

	root *Options
}

func (c *AskCmd) Execute(_ []string) error {
	query, err := c.query()
	if err != nil {
		return err
	}

	cfg, err := c.root.loadConfig()
	if err != nil {
		return err
	}
	log := c.root.newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	if c.Zeebe {
		return c.askZeebe(ctx, cfg, query)
	}

	a, err := app.Build(ctx, cfg, log, app.Options{})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("shutdown", map[string]interface{}{"error": err.Error()})
		}
	}()

	rec, err := a.Orchestrator.Run(ctx, query)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.root.stdout, rec.Text)
	return nil
}

// query joins positional arguments, falling back to stdin.
func (c *AskCmd) query() (string, error) {
	query := strings.TrimSpace(strings.Join(c.Args.Query, " "))
	if query != "" {
		return query, nil
	}
	data, err := io.ReadAll(c.root.stdin)
	if err != nil {
		return "", fmt.Errorf("read query from stdin: %w", err)
	}
	query = strings.TrimSpace(string(data))
	if query == "" {
		return "", apperrors.NewInvalidQueryError("query is empty")
	}
	return query, nil
}

func (c *AskCmd) askZeebe(ctx context.Context, cfg *config.Config, query string) error {
	client, err := camunda.NewClientWithConfig(&camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: cfg.Camunda.Plaintext,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.Timeout),
		RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
	})
	if err != nil {
		return err
	}
	defer client.Close()

	vars, err := client.RunProcess(ctx, orchestrator.ProcessID, map[string]interface{}{"query": query})
	if err != nil {
		return err
	}
	text, err := recommendationFrom(vars)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.root.stdout, text)
	return nil
}

// recommendationFrom reads the recommendation text out of the completed
// process variables.
func recommendationFrom(vars map[string]interface{}) (string, error) {
	text, ok := vars["recommendation"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return "", apperrors.NewModelResponseMalformedError(
			fmt.Sprintf("process %s finished without a recommendation", orchestrator.ProcessID))
	}
	return text, nil
}
