package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/mmcdole/reel/internal/config"
	"github.com/mmcdole/reel/internal/registry"
	"github.com/mmcdole/reel/internal/tui/styles"
)

// clearSpinnerLine clears the spinner line from the terminal
const clearSpinnerLine = "\r                                    \r"

func setupAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return runSetupFlow(ctx, cfg)
}

func clearCacheAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.ClearCache(cfg); err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, "cache cleared")
	return nil
}

// runSetupFlow asks for the server URL and API key, checks them and saves
// the config
func runSetupFlow(ctx context.Context, cfg *config.Config) error {
	fmt.Println()
	fmt.Println("Welcome to reel!")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	for {
		serverURL, err := prompt(reader, fmt.Sprintf("Server API URL [%s]: ", cfg.Server.URL))
		if err != nil {
			return err
		}
		if serverURL != "" {
			cfg.Server.URL = serverURL
		}

		apiKey, err := prompt(reader, "API key: ")
		if err != nil {
			return err
		}
		if apiKey == "" {
			fmt.Println("API key cannot be empty. Please try again.")
			continue
		}
		cfg.Server.APIKey = apiKey

		fmt.Println()
		if err := checkServerWithSpinner(ctx, cfg); err != nil {
			fmt.Printf("\n✗ Could not reach the server: %v\n", err)
			fmt.Println("Please check the URL and key and try again.")
			fmt.Println()
			continue
		}
		break
	}

	if err := config.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println(styles.SuccessStyle.Render("✓ Configuration saved!"))
	fmt.Println()
	fmt.Println("Run reel again to start the application.")
	return nil
}

func prompt(reader *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(input), nil
}

// checkServerWithSpinner runs a health check with a visual spinner
func checkServerWithSpinner(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client := registry.NewClient(cfg.Server.URL, cfg.Server.APIKey)

	resultCh := make(chan error, 1)
	go func() {
		resultCh <- client.Health(ctx)
	}()

	frame := 0
	fmt.Printf("\r%s Checking server...", styles.SpinnerFrames[frame])

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-resultCh:
			fmt.Print(clearSpinnerLine)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Connected to %s\n", client.BaseURL())
			return nil

		case <-ticker.C:
			frame++
			fmt.Printf("\r%s Checking server...", styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])

		case <-ctx.Done():
			fmt.Print(clearSpinnerLine)
			return fmt.Errorf("health check timed out")
		}
	}
}
