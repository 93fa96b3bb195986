package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/brojonat/github-bounty-agent/near"
)

func debugCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "health",
			Usage: "Check server health and connectivity",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "endpoint",
					Aliases: []string{"e"},
					Value:   "http://localhost:8080",
					Usage:   "Server endpoint",
					EnvVars: []string{EnvServerEndpoint},
				},
			},
			Action: checkHealth,
		},
		{
			Name:  "get-bounty",
			Usage: "Query the escrowed bounty for a repo directly from the contract",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "agent-api",
					Usage:   "Shade agent API base URL",
					EnvVars: []string{"SHADE_AGENT_API_URL"},
					Value:   "http://localhost:3140",
				},
				&cli.StringFlag{
					Name:    "contract",
					Usage:   "Agent contract account id",
					EnvVars: []string{"AGENT_CONTRACT_ID"},
				},
				&cli.StringFlag{
					Name:     "repo",
					Usage:    "Repository identifier (owner/name)",
					Required: true,
				},
			},
			Action: debugGetBounty,
		},
	}
}

func checkHealth(ctx *cli.Context) error {
	res, err := http.Get(ctx.String("endpoint") + "/health")
	if err != nil {
		return fmt.Errorf("could not reach server: %w", err)
	}
	return printServerResponse(res)
}

func debugGetBounty(c *cli.Context) error {
	caller, err := near.NewClient(c.String("agent-api"), c.String("contract"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	raw, err := caller.View(ctx, "get_bounty", map[string]string{"repo_id": c.String("repo")})
	if err != nil {
		return fmt.Errorf("view get_bounty failed: %w", err)
	}

	// Raw result is a U128 yoctoNEAR string; print both representations.
	yocto := string(raw)
	fmt.Printf("{\"yocto\": %s, \"near\": %q}\n", yocto, near.FromYocto(trimQuotes(yocto)))
	return nil
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
