package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/brojonat/github-bounty-agent/agent"
	"github.com/brojonat/github-bounty-agent/http/api"
)

var (
	EnvServerSecretKey = "GBA_SECRET_KEY"
	EnvServerEndpoint  = "SERVER_ENDPOINT"
)

func getAuthToken(ctx *cli.Context) error {
	r, err := http.NewRequest(
		http.MethodPost,
		ctx.String("endpoint")+"/token",
		nil,
	)
	if err != nil {
		return err
	}
	r.SetBasicAuth(ctx.String("email"), ctx.String("secret-key"))
	res, err := http.DefaultClient.Do(r)
	if err != nil {
		return fmt.Errorf("could not do server request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("could not read response body: %w", err)
	}

	var resp api.DefaultJSONResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}

	if resp.Error != "" {
		return fmt.Errorf("server error: %s", resp.Error)
	}

	// Handle env file update if specified
	envFile := ctx.String("env-file")
	if envFile != "" {
		content, err := os.ReadFile(envFile)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to read .env file: %w", err)
		}

		lines := strings.Split(string(content), "\n")
		found := false
		for i, line := range lines {
			if strings.HasPrefix(line, "AUTH_TOKEN=") {
				lines[i] = fmt.Sprintf("AUTH_TOKEN=%s", resp.Message)
				found = true
				break
			}
		}
		if !found {
			lines = append(lines, fmt.Sprintf("AUTH_TOKEN=%s", resp.Message))
		}

		if err := os.WriteFile(envFile, []byte(strings.Join(lines, "\n")), 0644); err != nil {
			return fmt.Errorf("failed to write .env file: %w", err)
		}
		fmt.Printf("Bearer token written to %s\n", envFile)
	}

	res.Body = io.NopCloser(bytes.NewReader(body))
	return printServerResponse(res)
}

func doAuthedGet(ctx *cli.Context, path string) error {
	r, err := http.NewRequest(http.MethodGet, ctx.String("endpoint")+path, nil)
	if err != nil {
		return err
	}
	r.Header.Set("Authorization", "Bearer "+ctx.String("token"))
	res, err := http.DefaultClient.Do(r)
	if err != nil {
		return fmt.Errorf("could not do server request: %w", err)
	}
	return printServerResponse(res)
}

func listPayouts(ctx *cli.Context) error {
	return doAuthedGet(ctx, "/payouts")
}

func listUnknownPayouts(ctx *cli.Context) error {
	return doAuthedGet(ctx, "/payouts/unknown")
}

func getPayoutStats(ctx *cli.Context) error {
	r, err := http.NewRequest(http.MethodGet, ctx.String("endpoint")+"/payouts/stats", nil)
	if err != nil {
		return err
	}
	res, err := http.DefaultClient.Do(r)
	if err != nil {
		return fmt.Errorf("could not do server request: %w", err)
	}
	return printServerResponse(res)
}

func releaseBounty(ctx *cli.Context) error {
	req := agent.PayoutRequest{
		RepoID:    ctx.String("repo"),
		Recipient: ctx.String("recipient"),
		PRNumber:  ctx.Int("pr-number"),
		Amount:    ctx.String("amount"),
	}
	b, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("could not serialize payout request: %w", err)
	}
	r, err := http.NewRequest(
		http.MethodPost,
		ctx.String("endpoint")+"/payouts/release",
		bytes.NewReader(b),
	)
	if err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Authorization", "Bearer "+ctx.String("token"))
	res, err := http.DefaultClient.Do(r)
	if err != nil {
		return fmt.Errorf("could not do server request: %w", err)
	}
	return printServerResponse(res)
}

func endpointFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "endpoint",
		Aliases: []string{"e"},
		Value:   "http://localhost:8080",
		Usage:   "Server endpoint",
		EnvVars: []string{EnvServerEndpoint},
	}
}

func tokenFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "token",
		Usage:    "Bearer token",
		EnvVars:  []string{"AUTH_TOKEN"},
		Required: true,
	}
}

func adminCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "auth",
			Usage: "Authentication related commands",
			Subcommands: []*cli.Command{
				{
					Name:  "get-token",
					Usage: "Get a sudo token from the server",
					Flags: []cli.Flag{
						endpointFlag(),
						&cli.StringFlag{
							Name:     "email",
							Usage:    "Email to associate with the token",
							Required: true,
						},
						&cli.StringFlag{
							Name:    "secret-key",
							Usage:   "Server secret key",
							EnvVars: []string{EnvServerSecretKey},
						},
						&cli.StringFlag{
							Name:  "env-file",
							Usage: "Write the token to this .env file",
						},
					},
					Action: getAuthToken,
				},
			},
		},
		{
			Name:  "payouts",
			Usage: "Payout ledger commands",
			Subcommands: []*cli.Command{
				{
					Name:   "list",
					Usage:  "List all payout records",
					Flags:  []cli.Flag{endpointFlag(), tokenFlag()},
					Action: listPayouts,
				},
				{
					Name:   "unknown",
					Usage:  "List payouts with ambiguous outcomes needing reconciliation",
					Flags:  []cli.Flag{endpointFlag(), tokenFlag()},
					Action: listUnknownPayouts,
				},
				{
					Name:   "stats",
					Usage:  "Show aggregate payout stats",
					Flags:  []cli.Flag{endpointFlag()},
					Action: getPayoutStats,
				},
				{
					Name:  "release",
					Usage: "Manually trigger a bounty payout",
					Flags: []cli.Flag{
						endpointFlag(),
						tokenFlag(),
						&cli.StringFlag{
							Name:     "repo",
							Usage:    "Repository identifier (owner/name)",
							Required: true,
						},
						&cli.StringFlag{
							Name:     "recipient",
							Usage:    "Contributor NEAR account",
							Required: true,
						},
						&cli.IntFlag{
							Name:     "pr-number",
							Usage:    "Pull request number",
							Required: true,
						},
						&cli.StringFlag{
							Name:  "amount",
							Usage: "Amount in NEAR (defaults to the quoted bounty)",
						},
					},
					Action: releaseBounty,
				},
			},
		},
	}
}
